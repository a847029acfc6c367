package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/bookshelf/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool

	cfg      config.Config
	closeLog func()
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bookshelf",
		Short: "Book scan ingestion with OCR and a dated-mention timeline",
		Long: `Bookshelf ingests scanned book pages from an inbox directory.

Each page is matched to its book by bibliographic identity, copied under a
standardized name, read with OCR and merged into the book's record. The
timeline command builds a chronological index of the dates found in the text.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			opts.cfg = cfg

			closeLog, err := setupLogging(cfg.Paths.Logs, opts.verbose, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.closeLog = closeLog
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "bookshelf.yaml", "Path to the YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newTimelineCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newHashCmd(opts))
	cmd.AddCommand(newParseCmd(opts))

	return cmd
}
