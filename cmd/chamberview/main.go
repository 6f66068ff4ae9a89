package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/chamberview/internal/cache"
	"github.com/soltixdb/chamberview/internal/config"
	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/logging"
	"github.com/soltixdb/chamberview/internal/router"
	"github.com/soltixdb/chamberview/internal/services"
	"github.com/soltixdb/chamberview/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Chamberview starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	loc := cfg.Engine.GetLocation()
	engine := downsampling.NewEngine(logger, loc)
	logger.Info("Engine initialized",
		"timezone", loc.String(),
		"index_mode", cfg.Engine.IndexMode,
		"default_strategy", cfg.Engine.DefaultStrategy,
		"max_workers", cfg.Engine.MaxWorkers)

	memo, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to initialize memo cache", "type", cfg.Cache.Type, "error", err)
	}
	defer func() { _ = memo.Close() }()
	logger.Info("Memo cache initialized", "type", memo.Stats().Type, "ttl", cfg.Cache.TTL)

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	svc := services.NewAggregationService(logger, engine, memo, cfg.Engine, cfg.Sensors)
	app := router.New(logger, svc, *cfg)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.DefaultShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
