package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/polygate/polygate/pkg/config"
	"github.com/polygate/polygate/pkg/factory"
	"github.com/polygate/polygate/pkg/telemetry/logging"
	"github.com/polygate/polygate/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel      string
	metricsListen string
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Polygate gateway",
	Long: `Start the Polygate gateway with the specified configuration.

The gateway composes one client per configured provider, routes
requests across model deployments, and serves Prometheus metrics when
enabled.

Examples:
  # Start with default config
  polygate run

  # Start with custom config
  polygate run --config /etc/polygate/config.yaml

  # Override the metrics listen address
  polygate run --metrics-listen :9100

  # Reload pricing and cache tuning on config changes
  polygate run --watch`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.metricsListen, "metrics-listen", "", "override metrics listen address")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload the config file on change")
}

// cacheMetricsInterval is how often cache counters are folded into the
// Prometheus collector.
const cacheMetricsInterval = 30 * time.Second

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if runFlags.metricsListen != "" {
		cfg.Metrics.ListenAddress = runFlags.metricsListen
	}
	if err := cfg.ResolveSecrets(); err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	}, os.Stderr)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.Config{
			Namespace: cfg.Metrics.Namespace,
			Subsystem: cfg.Metrics.Subsystem,
		}, prometheus.NewRegistry())
	}

	gateway, err := factory.New(cfg, logger, collector)
	if err != nil {
		return err
	}
	defer gateway.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if collector != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Metrics.ListenAddress,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", "address", cfg.Metrics.ListenAddress)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()

		go func() {
			ticker := time.NewTicker(cacheMetricsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					gateway.PublishCacheMetrics()
				}
			}
		}()
	}

	if runFlags.watch {
		go func() {
			err := config.Watch(ctx, cfgFile, logger, func(next *config.Config) {
				// Pricing is the only section safe to swap while
				// clients are live. Everything else needs a restart.
				if err := gateway.Pricing().Update(next.Pricing); err != nil {
					logger.Error("pricing reload rejected", "error", err)
					return
				}
				logger.Info("pricing reloaded", "models", gateway.Pricing().Len())
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	logger.Info("gateway started",
		"providers", len(cfg.Providers),
		"deployments", len(cfg.Deployments),
		"strategy", cfg.Routing.Strategy,
		"cache", cfg.Cache.Enabled,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("stopping metrics server: %w", err)
		}
	}
	return nil
}
