package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"topomap/internal/config"
	"topomap/internal/logging"
	"topomap/internal/repository/sqlite"
	"topomap/internal/service"
	"topomap/internal/topology"
)

type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "topomap",
		Short: "Network topology editor",
		Long: `topomap keeps a graph of network devices and the cables between them,
serves an editing API with live SSE and WebSocket updates, and probes
devices for reachability.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: search "+config.ConfigFileName+")")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")

	cmd.AddCommand(
		newServeCmd(opts),
		newPortsCmd(),
		newImportCmd(opts),
		newExportCmd(opts),
		newInitCmd(opts),
	)
	return cmd
}

// loadConfig reads the config file and applies flag overrides
func (o *rootOptions) loadConfig() (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if o.configPath != "" {
		cfg, path, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}

	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// openService opens the database and hydrates a service from it
func openService(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) (*service.TopologyService, func() error, error) {
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	svc := service.NewTopologyService(topology.NewStore(), repo, nil, service.WithLogger(logger))
	if err := svc.Hydrate(cmd.Context()); err != nil {
		repo.Close()
		return nil, nil, err
	}
	return svc, repo.Close, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}
