package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lehigh-university-libraries/bookshelf/internal/ingest"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		debounce time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the inbox and ingest new scans as they arrive",
		Long: `Runs a batch over the current inbox, then watches it for new files.

Events are debounced so that a scanner writing many pages produces a single
batch once it goes quiet.`,
		Example: `  # Watch with the default two second quiet period
  bookshelf watch

  # Process what is there and exit
  bookshelf watch --once`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, bookStore, err := newEngine(ctx, opts.cfg, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() {
				if err := bookStore.Close(); err != nil {
					slog.Error("Failed to close book store", "err", err)
				}
			}()

			if err := runBatch(ctx, engine, cmd.OutOrStdout()); err != nil || once {
				return err
			}
			return watchInbox(ctx, opts.cfg.Paths.Inbox, debounce, func() error {
				return runBatch(ctx, engine, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period after the last file event before a batch starts")
	cmd.Flags().BoolVar(&once, "once", false, "Process existing files and exit (don't watch)")

	return cmd
}

func runBatch(ctx context.Context, engine *ingest.Engine, out io.Writer) error {
	summary, err := engine.Run(ctx)
	if summary != nil && summary.Total > 0 {
		summary.Print(out)
	}
	return err
}

// watchInbox calls batch after every quiet period that follows a create,
// write or rename in dir, until ctx is done. Batches never overlap.
func watchInbox(ctx context.Context, dir string, debounce time.Duration, batch func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	slog.Info("Watching inbox", "dir", dir, "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopped watching inbox")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("Inbox event", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case <-timer.C:
			if err := batch(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Batch failed", "err", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "err", err)
		}
	}
}
