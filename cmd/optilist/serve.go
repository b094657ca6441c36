package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/optilist/internal/config"
	"github.com/vango-dev/optilist/internal/errors"
	"github.com/vango-dev/optilist/internal/store"
	"github.com/vango-dev/optilist/pkg/middleware"
	"github.com/vango-dev/optilist/pkg/server"
)

func serveCmd(load loader) *cobra.Command {
	var (
		addr    string
		driver  string
		dsn     string
		metrics bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the list server",
		Long: `Run the list server.

Clients connect to /live over WebSocket and push "create" commands;
each stored item is sent back as an insert patch before the reply.

Examples:
  optilist serve
  optilist serve --addr 127.0.0.1:9000 --store sqlite --dsn items.sqlite
  optilist serve --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			if driver != "" {
				cfg.Store.Driver = driver
			}
			if dsn != "" {
				cfg.Store.DSN = dsn
			}
			if metrics {
				cfg.Metrics.Enabled = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, verbose)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&driver, "store", "", "Item store: memory or sqlite")
	cmd.Flags().StringVar(&dsn, "dsn", "", "SQLite database path")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Serve Prometheus metrics")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, verbose bool) error {
	logger, err := newLogger(cfg, verbose)
	if err != nil {
		return err
	}

	items, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return errors.New("E301").WithDetail(err.Error()).Wrap(err)
	}
	defer items.Close()

	opts := []server.Option{
		server.WithConfig(serverConfig(cfg)),
		server.WithLogger(logger),
		server.WithMiddleware(middleware.OpenTelemetry()),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := middleware.Prometheus(middleware.WithRegistry(reg))
		opts = append(opts,
			server.WithMiddleware(m),
			server.WithSessionObserver(m),
			server.WithMetrics(reg),
		)
	}

	srv := server.New(items, opts...)
	success("Listening on %s", cfg.Server.Address)
	info("store: %s", cfg.Store.Driver)
	if cfg.Metrics.Enabled {
		info("metrics: %s", cfg.Metrics.Path)
	}
	if err := srv.Run(ctx); err != nil {
		return errors.New("E201").WithDetail(err.Error()).Wrap(err)
	}
	return nil
}

func serverConfig(cfg *config.Config) *server.Config {
	sc := server.DefaultConfig()
	sc.Address = cfg.Server.Address
	sc.ReadTimeout = cfg.Server.ReadTimeout.Std()
	sc.WriteTimeout = cfg.Server.WriteTimeout.Std()
	sc.HeartbeatInterval = cfg.Server.HeartbeatInterval.Std()
	sc.ShutdownTimeout = cfg.Server.ShutdownTimeout.Std()
	sc.MaxSessions = cfg.Server.MaxSessions
	sc.MaxMessageSize = cfg.Server.MaxMessageSize
	sc.MetricsPath = cfg.Metrics.Path
	return sc
}
