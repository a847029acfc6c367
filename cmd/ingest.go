package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest every scan currently in the inbox",
		Long: `Runs one batch over the inbox directory.

Scan files must be named <alias>_<type><number>.<ext>, for example
Lalka_tom1_s0001.jpg. The first time an alias is seen its bibliographic
metadata is taken from the configured sources (catalog file, console prompt
or LLM). Malformed names are discarded; files that fail to persist stay in
the inbox for the next run.`,
		Example: `  # Ingest ./scans with the default configuration
  bookshelf ingest

  # Use another configuration file
  bookshelf ingest --config /etc/bookshelf.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, bookStore, err := newEngine(cmd.Context(), opts.cfg, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() {
				if err := bookStore.Close(); err != nil {
					slog.Error("Failed to close book store", "err", err)
				}
			}()

			summary, err := engine.Run(cmd.Context())
			if summary != nil {
				summary.Print(cmd.OutOrStdout())
			}
			return err
		},
	}

	return cmd
}
