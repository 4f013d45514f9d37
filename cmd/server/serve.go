package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"topomap/internal/config"
	"topomap/internal/editor"
	"topomap/internal/handler"
	"topomap/internal/hub"
	"topomap/internal/metrics"
	"topomap/internal/monitor"
	"topomap/internal/repository/sqlite"
	"topomap/internal/service"
	"topomap/internal/topology"
	"topomap/internal/watcher"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr      string
		seedPath  string
		noMonitor bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if seedPath != "" {
				cfg.Seed.Path = seedPath
			}
			if noMonitor {
				cfg.Monitor.Enabled = false
			}
			return serve(cmd.Context(), cfg, cfgPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&seedPath, "seed", "", "topology file loaded into an empty database")
	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "disable reachability probing")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, cfgPath string) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfgPath != "" {
		logger.Info("config loaded", zap.String("path", cfgPath))
	} else {
		logger.Info("no config file found, using defaults")
	}
	logger.Info("starting topomap server")
	logger.Debug("effective config", zap.String("summary", cfg.Summary()))

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()
	logger.Info("database opened", zap.String("path", cfg.Database.Path))

	reg := metrics.NewRegistry()
	bus := service.NewEventBus()
	svc := service.NewTopologyService(topology.NewStore(), repo, bus,
		service.WithLogger(logger),
		service.WithMetrics(reg),
	)
	if err := svc.Hydrate(ctx); err != nil {
		return err
	}
	seedIfEmpty(ctx, svc, cfg.Seed.Path, logger)

	vp, err := svc.LoadViewport(ctx)
	if err != nil {
		logger.Warn("failed to load viewport, using default", zap.Error(err))
	}
	ed := editor.New(svc, editor.WithLogger(logger), editor.WithViewport(vp))

	// Initialize the push hub and connect the event bus to it
	pushHub := hub.New(logger)
	go pushHub.Run(ctx)

	eventChan := make(chan service.Event, 100)
	bus.Subscribe(eventChan)
	go func() {
		defer bus.Unsubscribe(eventChan)
		for {
			select {
			case event := <-eventChan:
				pushHub.Broadcast(event)
			case <-ctx.Done():
				return
			}
		}
	}()

	if cfg.Monitor.Enabled {
		mon := monitor.New(svc, monitor.Config{
			Interval:      cfg.Monitor.Interval.Duration(),
			Timeout:       cfg.Monitor.Timeout.Duration(),
			Ports:         cfg.Monitor.Ports,
			MaxConcurrent: cfg.Monitor.MaxConcurrent,
			WarnLatency:   cfg.Monitor.WarnLatency.Duration(),
		},
			monitor.WithMetrics(reg),
			monitor.WithEventBus(bus),
			monitor.WithLogger(logger),
		)
		go mon.Run(ctx)
	}

	if cfg.Seed.Path != "" && cfg.Seed.Watch {
		go func() {
			err := watcher.ReloadOnChange(ctx, cfg.Seed.Path, svc, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("seed watcher stopped", zap.Error(err))
			}
		}()
	}

	router := handler.NewRouter(handler.RouterConfig{
		Service:        svc,
		Editor:         ed,
		Hub:            pushHub,
		Metrics:        reg,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}

// seedIfEmpty loads the seed file when the database holds no devices
func seedIfEmpty(ctx context.Context, svc *service.TopologyService, path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	if nodes, _ := svc.Counts(); nodes > 0 {
		logger.Debug("database not empty, skipping seed", zap.String("path", path))
		return
	}
	fragment, err := watcher.LoadFile(path)
	if err != nil {
		logger.Warn("failed to read seed file", zap.String("path", path), zap.Error(err))
		return
	}
	if err := svc.Reload(ctx, fragment); err != nil {
		logger.Warn("seed file rejected", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("database seeded", zap.String("path", path), zap.Int("nodes", len(fragment.Nodes)))
}
