package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-assistant/internal/server"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts.cfg, opts.log)
			if err != nil {
				return err
			}

			srv := server.New(a.assistant, serverOptions(opts.cfg, a.checks), opts.log)
			return runUntilSignal(ctx, opts, srv, a.Close)
		},
	}
}

// runUntilSignal serves until ctx is cancelled, then shuts the server down and
// runs cleanup with a bounded deadline.
func runUntilSignal(ctx context.Context, opts *rootOptions, srv *server.Server, cleanup func(context.Context)) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			opts.log.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
		}
		cleanup(context.Background())
		return err
	case <-ctx.Done():
	}

	opts.log.Info("Shutdown signal received, stopping...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		opts.log.Error("Error shutting down HTTP server", map[string]interface{}{"error": err.Error()})
	}
	cleanup(shutdownCtx)
	opts.log.Info("stopped gracefully", nil)
	return nil
}
