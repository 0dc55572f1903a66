// Package main runs the upgrade advisor REST API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/api"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/app"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/config"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/logging"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/version"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath  = flag.String("config", "", "Config file (default: ~/.mtg-upgrade-advisor/config.toml)")
	port        = flag.Int("port", 0, "API server port (overrides server.port)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("upgrade-advisor API server %s\n", version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.LoadFrom(*configPath)
	}
	return config.Load()
}

// run wires the advisor and serves until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(*debug || cfg.App.DebugMode)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	advisorApp, err := app.New(ctx, cfg, app.Options{Logger: logger, Registerer: reg})
	if err != nil {
		return fmt.Errorf("failed to initialize advisor: %w", err)
	}
	defer advisorApp.Close()

	if cfg.Validation.TablesPath != "" && cfg.Validation.WatchTables {
		// Registered after Close so the watcher is gone before the app shuts down.
		stopWatcher := startTablesWatcher(ctx, advisorApp.Advisor, cfg.Validation.TablesPath, logger)
		defer stopWatcher()
	}

	requestTimeout, _ := cfg.GetRequestTimeout()
	server := api.NewServer(&api.Config{
		Port:           cfg.Server.Port,
		RequestTimeout: requestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		DefaultFormat:  advisorApp.DefaultFormat(),
		Version:        version.String(),
	}, advisorApp.Advisor, reg, logger.Named("api"))

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	logger.Info("upgrade advisor running",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version.String()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}

	logger.Info("API server stopped")
	return nil
}

type tablesWatcher interface {
	WatchTables(ctx context.Context, path string) error
}

// startTablesWatcher runs w in the background. The returned func cancels it
// and blocks until it has returned.
func startTablesWatcher(ctx context.Context, w tablesWatcher, path string, logger *zap.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		if err := w.WatchTables(ctx, path); err != nil {
			logger.Warn("tables watcher stopped", zap.Error(err))
		}
		return nil
	})
	return func() {
		cancel()
		_ = g.Wait()
	}
}
