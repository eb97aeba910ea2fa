package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/calebrow/fleetsift/internal/config"
	"github.com/calebrow/fleetsift/internal/ingest"
	"github.com/calebrow/fleetsift/internal/inventory"
	"github.com/calebrow/fleetsift/internal/mapping"
	"github.com/calebrow/fleetsift/internal/server"
	"github.com/calebrow/fleetsift/internal/store"
	"github.com/calebrow/fleetsift/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "backup":
			runBackup(os.Args[2:])
			return
		case "restore":
			runRestore(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		}
	}
	runServe(os.Args[1:])
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("FleetSift server starting", zap.String("version", version.Short()))

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Open the inventory database
	db, err := store.New(cfg.GetString("db.path"))
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := inventory.NewSQLiteRepository(ctx, db)
	if err != nil {
		logger.Fatal("failed to prepare inventory schema", zap.Error(err))
	}

	// Load the location mapping file if one is present
	locations, err := mapping.Load(cfg.GetString("locations.path"))
	if err != nil {
		logger.Fatal("failed to load location mapping", zap.Error(err))
	}
	if locations != nil {
		logger.Info("location mapping loaded", zap.String("path", cfg.GetString("locations.path")))
	}

	registry := prometheus.NewRegistry()
	parser := ingest.NewParser(logger,
		ingest.WithOffloadThresholds(cfg.GetInt("ingest.offload_bytes"), cfg.GetInt("ingest.offload_files")),
		ingest.WithMetrics(ingest.NewMetrics(registry)),
	)

	addr := cfg.GetString("server.addr")
	srv := server.New(addr, server.Deps{
		Parser:   parser,
		Repo:     repo,
		Mapping:  locations,
		Registry: registry,
	}, logger)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("FleetSift server ready", zap.String("addr", addr))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("FleetSift server stopped")
}
