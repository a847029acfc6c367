package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/lehigh-university-libraries/bookshelf/internal/filename"
	"github.com/lehigh-university-libraries/bookshelf/internal/identity"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"github.com/spf13/cobra"
)

func newHashCmd(opts *rootOptions) *cobra.Command {
	var meta models.Metadata

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the book identity for a set of bibliographic fields",
		Example: `  bookshelf hash --title Lalka --authors "Bolesław Prus" --year 1890 --place Warszawa`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Identity
			fmt.Fprintln(cmd.OutOrStdout(), identity.New(cfg.Length, cfg.StripDiacritics).Derive(meta))
			return nil
		},
	}

	cmd.Flags().StringVar(&meta.Title, "title", "", "Book title")
	cmd.Flags().StringVar(&meta.Authors, "authors", "", "Book authors")
	cmd.Flags().StringVar(&meta.Year, "year", "", "Year of publication")
	cmd.Flags().StringVar(&meta.Place, "place", "", "Place of publication")

	return cmd
}

func newParseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <filename>...",
		Short: "Show how scan filenames are parsed",
		Args:  cobra.MinimumNArgs(1),
		Example: `  bookshelf parse Lalka_tom1_s0001.jpg Lalka_w3.PNG "Weird name.jpg"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := filename.New(opts.cfg.Filename.Padding, opts.cfg.Filename.Labels)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tALIAS\tTOKEN\tTYPE\tROMAN\tEXT")
			var rejected int
			for _, name := range args {
				desc, err := parser.Parse(name)
				if err != nil {
					rejected++
					fmt.Fprintf(w, "%s\trejected\t\t\t\t\n", name)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", name, desc.Alias, desc.RawToken, desc.TypeLabel, desc.Roman, desc.Extension)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if rejected > 0 {
				return fmt.Errorf("%d of %d filenames rejected", rejected, len(args))
			}
			return nil
		},
	}

	return cmd
}
