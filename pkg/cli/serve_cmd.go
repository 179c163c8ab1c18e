package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tokern/dbcat/internal/api"
	"github.com/tokern/dbcat/internal/extract"
	"github.com/tokern/dbcat/internal/middleware"
	"github.com/tokern/dbcat/internal/service/catalog"
	"github.com/tokern/dbcat/internal/service/scan"
	"github.com/tokern/dbcat/internal/service/scheduler"
)

func newServeCmd(a *app) *cobra.Command {
	var sel selection
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Long: `Serve the read-only catalog API. With --scan-schedule the selected
sources are also rescanned on a cron schedule, e.g. "@hourly" or "0 */6 * * *".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			filters, err := sel.patterns.Compile()
			if err != nil {
				return err
			}
			store, repos, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			srvCfg := a.cfg.Server
			if srvCfg.ScanSchedule != "" {
				sched := scheduler.NewScheduler(
					scan.NewService(store, repos, extract.DefaultRegistry(), a.logger), a.logger)
				if _, err := sched.Add(srvCfg.ScanSchedule, sel.sources, filters); err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
				a.logger.Info("scheduled scans enabled", "schedule", srvCfg.ScanSchedule)
			}

			handler := api.NewRouter(ctx, catalog.NewService(repos), api.Config{
				AllowedOrigins: srvCfg.AllowedOrigins,
				RateLimit: middleware.RateLimitConfig{
					RequestsPerSecond: srvCfg.RateLimitRPS,
					Burst:             srvCfg.RateLimitBurst,
				},
			}, a.logger)

			return listen(ctx, &http.Server{
				Addr:              srvCfg.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      time.Minute,
				IdleTimeout:       120 * time.Second,
			}, srvCfg.ShutdownGrace, a)
		},
	}
	sel.bind(cmd.Flags())
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("scan-schedule", "", "Cron schedule for background scans")
	return cmd
}

// listen serves until ctx is done, then shuts down within grace.
func listen(ctx context.Context, srv *http.Server, grace time.Duration, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("catalog API listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
