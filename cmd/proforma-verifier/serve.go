package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/proforma-verifier/internal/async"
	"github.com/joseph-ayodele/proforma-verifier/internal/export"
	"github.com/joseph-ayodele/proforma-verifier/internal/server"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the verification HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			verifier, closeFn, err := a.buildVerifier(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeFn(); err != nil {
					a.logger.Warn("extractor.close_error", "error", err)
				}
			}()

			queue := async.NewVerifyQueue(verifier, a.logger, async.OptionsFrom(a.cfg.Queue)...)
			srv := server.New(server.ConfigFrom(a.cfg.HTTP, version), queue, export.NewService(a.logger), a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen() }()

			select {
			case err := <-errCh:
				if err != nil {
					a.logger.Error("http.serve_error", "error", err)
				}
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			var errs []error
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			queue.Shutdown(shutdownCtx)
			a.logger.Info("stopped")
			return errors.Join(errs...)
		},
	}
}
