package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/bookshelf/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a read-only HTTP API over the book store",
		Long: `Serves the ingested books and their timeline as JSON.

Endpoints:
  GET /api/books          list books
  GET /api/books/{hash}   one book with all its scans
  GET /api/timeline       dated mentions in chronological order (?book=<hash>)
  GET /healthcheck        OK when the book store is reachable`,
		Example: `  # Start server on default port 8888
  bookshelf serve

  # Start server on custom port
  bookshelf serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bookStore, err := openStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer bookStore.Close()

			handler := handlers.New(bookStore, opts.cfg.Timeline.SnippetLength)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Bookshelf API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
