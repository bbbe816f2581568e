// Redress - Rail passenger rights decisions in 60 seconds.
// Copyright (c) 2025 opensource.rail
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-rail/redress/internal/api"
	"github.com/opensource-rail/redress/internal/bus"
	"github.com/opensource-rail/redress/internal/cache"
	"github.com/opensource-rail/redress/internal/compensation"
	"github.com/opensource-rail/redress/internal/dedupe"
	"github.com/opensource-rail/redress/internal/domain"
	"github.com/opensource-rail/redress/internal/exemption"
	"github.com/opensource-rail/redress/internal/fx"
	"github.com/opensource-rail/redress/internal/pipeline"
	"github.com/opensource-rail/redress/internal/repository"
	"github.com/opensource-rail/redress/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("REDRESS_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting redress",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("REDRESS_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Exemption Engine
	engine, err := exemption.NewEngine()
	if err != nil {
		slog.Error("failed to initialize exemption engine", "error", err)
		os.Exit(1)
	}
	if err := loadExemptionsFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load exemption data", "error", err)
		os.Exit(1)
	}
	slog.Info("exemption engine initialized",
		"matrix_count", engine.MatrixCount(),
		"override_count", engine.OverrideCount(),
	)

	// Initialize FX rate provider (static reference rates behind the cache)
	rates := fx.NewCachedProvider(fx.NewStaticProvider(), cacheImpl, api.GlobalTenantID, cfg.Claims.FXCacheTTLHours)

	// Initialize Compensation Calculator
	calc := compensation.New(cfg.Claims, rates)
	slog.Info("compensation calculator initialized",
		"fee_pct", cfg.Claims.ServiceFeePct,
		"fee_mode", cfg.Claims.ServiceFeeMode,
	)

	// Initialize Duplicate Detector
	detector := dedupe.NewDetector(repo, cacheImpl, cfg.Claims.DuplicateWindowHours)
	slog.Info("duplicate detector initialized", "window", detector.Window())

	// Initialize Evaluation Pipeline
	pipe := pipeline.New(engine, calc, detector)
	slog.Info("evaluation pipeline initialized", "engine_version", pipeline.EngineVersion)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("REDRESS_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, pipe)

		// Get tenant IDs to process (comma-separated)
		tenantIDs := []string{}
		if envTenants := os.Getenv("REDRESS_TENANTS"); envTenants != "" {
			for _, id := range strings.Split(envTenants, ",") {
				if id = strings.TrimSpace(id); id != "" {
					tenantIDs = append(tenantIDs, id)
				}
			}
		}

		workerCfg := worker.Config{
			TenantIDs:   tenantIDs,
			WorkerCount: 5,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, pipe, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("redress is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("redress shutdown complete")
}

// loadExemptionsFromDatabase loads the builtin exemption matrix and
// overrides plus any database records into the engine. Database records
// are managed via the /matrix and /overrides APIs.
func loadExemptionsFromDatabase(ctx context.Context, repo domain.Repository, engine *exemption.Engine) error {
	matrix := exemption.BuiltinMatrix()
	dbMatrix, err := repo.ListMatrixRecords(ctx, api.GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list matrix records from database", "error", err)
	} else {
		matrix = append(matrix, dbMatrix...)
	}
	engine.LoadMatrix(matrix)

	overrides := exemption.BuiltinOverrides()
	dbOverrides, err := repo.ListOverrides(ctx, api.GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list overrides from database", "error", err)
	} else {
		overrides = append(overrides, dbOverrides...)
	}
	return engine.LoadOverrides(overrides)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🚆 REDRESS                  ║")
	fmt.Println("  ║    Passenger Rights Decision Engine       ║")
	fmt.Println("  ║     Every delayed minute accounted.       ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /evaluate           - Evaluate a journey claim")
	fmt.Println("    GET  /evaluations/{id}   - Get evaluation by ID")
	fmt.Println("    GET  /journeys/{id}      - Get journey by ID")
	fmt.Println("    GET  /matrix             - List exemption matrix records")
	fmt.Println("    POST /matrix             - Upsert a matrix record")
	fmt.Println("    POST /matrix/reload      - Hot-reload the exemption matrix")
	fmt.Println("    GET  /overrides          - List override records")
	fmt.Println("    POST /overrides          - Create or update an override")
	fmt.Println("    DELETE /overrides/{id}   - Delete an override")
	fmt.Println("    POST /overrides/reload   - Hot-reload overrides")
	fmt.Println("    GET  /health             - Health check")
	fmt.Println()
}
