package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/slaengine/internal/adapters/policyfile"
	"github.com/example/slaengine/internal/app"
	"github.com/example/slaengine/internal/config"
	"github.com/example/slaengine/internal/ctxutil"
	"github.com/example/slaengine/internal/lock"
	"github.com/example/slaengine/internal/wire"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the periodic sweep scheduler",
		Long: `Sweep on a fixed interval until interrupted. Optionally imports and
watches the configured policy file and exposes Prometheus metrics.
Only one scheduler may run per database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
				current.SweepInterval = config.Duration(interval)
			}
			if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
				current.MetricsAddr = addr
			}

			fl := lock.NewFileLock(current.DBPath + ".lock")
			if err := fl.TryLock(); err != nil {
				return err
			}
			defer fl.Unlock()

			ctx, stop := signal.NotifyContext(NewContext(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, wire.Current(), logger)
		},
	}
	cmd.Flags().Duration("interval", 0, "sweep interval (overrides config)")
	cmd.Flags().String("metrics-addr", "", "listen address for /metrics (overrides config)")
	return cmd
}

func serve(ctx context.Context, a *wire.App, logger *zap.Logger) error {
	cfg := a.Config
	g, ctx := errgroup.WithContext(ctx)

	if cfg.PolicyFile != "" {
		policies, err := policyfile.Load(cfg.PolicyFile)
		if err != nil {
			return err
		}
		if err := a.Policies.SyncPolicies(ctx, policies); err != nil {
			return fmt.Errorf("failed to import %s: %w", cfg.PolicyFile, err)
		}
		logger.Info("policies imported", zap.String("path", cfg.PolicyFile), zap.Int("count", len(policies)))

		if cfg.WatchPolicies {
			w := policyfile.NewWatcher(cfg.PolicyFile, a.Policies.SyncPolicies, logger)
			watchCtx := ctxutil.WithActorID(ctx, "policy-watcher")
			g.Go(func() error { return ignoreCancel(w.Run(watchCtx)) })
		}
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	scheduler := app.NewScheduler(a.SLA, cfg.SweepInterval.Std(), logger)
	g.Go(func() error { return ignoreCancel(scheduler.Run(ctx)) })

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
