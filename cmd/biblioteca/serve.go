package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/pkg/database"
	"github.com/noah-isme/biblioteca-api/pkg/jobs"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return c.withApp(cmd, func(a *app) error {
				if migrate {
					if _, err := database.Migrate(ctx, a.db, a.logger); err != nil {
						return err
					}
				}
				a.maintenance.WarnLegacyTriggers(ctx)

				queue := jobs.NewQueue("sanctions", a.sanctions.HandleJob, jobs.QueueConfig{
					Workers:  1,
					Coalesce: true,
					Logger:   a.logger,
				})
				queue.Start(ctx)
				defer queue.Stop()
				if c.cfg.Sanctions.SchedulerEnabled {
					a.sanctions.StartScheduler(ctx, queue, c.cfg.Sanctions.SweepInterval)
				}

				return runServer(ctx, a, fmt.Sprintf(":%d", c.cfg.Port))
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, a *app, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", zap.String("addr", addr), zap.String("env", a.cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
