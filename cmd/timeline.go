package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/bookshelf/internal/mirror"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"github.com/lehigh-university-libraries/bookshelf/internal/timeline"
	"github.com/spf13/cobra"
)

func newTimelineCmd(opts *rootOptions) *cobra.Command {
	var (
		source      string
		output      string
		parquetPath string
	)

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Build the chronological index of dates found in ingested books",
		Long: `Rebuilds the timeline from scratch.

Every dated mention extracted during ingestion becomes one entry, sorted by
date. Books are read from the book store or from the local metadata.json
mirrors under the processed directory.`,
		Example: `  # Write outputs/date_index.json from the book store
  bookshelf timeline

  # Build from local mirrors and also write Parquet
  bookshelf timeline --source mirror --parquet outputs/date_index.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if output == "" {
				output = cfg.Timeline.Output
			}

			var aggs []*models.BookAggregate
			switch source {
			case "store":
				bookStore, err := openStore(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer bookStore.Close()
				aggs, err = bookStore.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list books: %w", err)
				}
			case "mirror":
				var err error
				aggs, err = mirror.New(cfg.Paths.Processed).LoadAll()
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported source: %s", source)
			}

			entries := timeline.Build(aggs, cfg.Timeline.SnippetLength)
			slog.Info("Built timeline", "source", source, "books", len(aggs), "entries", len(entries))

			if err := timeline.SaveJSON(output, entries); err != nil {
				return err
			}
			if parquetPath != "" {
				if err := timeline.SaveParquet(parquetPath, entries); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d timeline entries from %d books to %s\n", len(entries), len(aggs), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "store", "Where to read books from: store or mirror")
	cmd.Flags().StringVarP(&output, "output", "o", "", "JSON output path (default timeline.output)")
	cmd.Flags().StringVar(&parquetPath, "parquet", "", "Also write the timeline as Parquet to this path")

	return cmd
}
