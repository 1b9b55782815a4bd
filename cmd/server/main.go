package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/catherinevee/mdcagent/internal/api"
	"github.com/catherinevee/mdcagent/internal/app"
	"github.com/catherinevee/mdcagent/internal/shared/config"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
	"github.com/catherinevee/mdcagent/internal/shared/metrics"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		host       = flag.String("host", "", "Server host (overrides config)")
		port       = flag.Int("port", 0, "Server port (overrides config)")
	)
	flag.Parse()

	if err := run(*configPath, *host, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, host string, port int) error {
	manager, err := config.NewManager(configPath)
	if err != nil {
		return err
	}
	defer manager.Stop()

	cfg := manager.Get()
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Init(cfg.Logging, app.Version); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := logging.WithComponent("server")

	collector := metrics.NewCollector()
	service, err := app.NewService(cfg, collector)
	if err != nil {
		return err
	}

	server, err := api.NewServer(cfg.Server, service, collector, app.Version)
	if err != nil {
		return err
	}
	server.SetVerbose(cfg.Debug)

	manager.OnChange(func(updated *config.Config) {
		if err := logging.SetLevel(updated.Logging.Level); err != nil {
			logger.Warn().Err(err).Msg("Ignoring invalid log level")
		}
		service.SetVerbose(updated.Debug)
		server.SetVerbose(updated.Debug)
		logger.Info().
			Str("log_level", updated.Logging.Level).
			Bool("debug", updated.Debug).
			Msg("Applied configuration reload")
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info().Msg("Server stopped")
	return nil
}
