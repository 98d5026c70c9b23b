// Package main is the entry point for the Moneybots Charts API
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/moneybotscharts/internal/api"
	"github.com/nsvirk/moneybotscharts/internal/api/middleware"
	"github.com/nsvirk/moneybotscharts/internal/config"
	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/internal/repository"
	"github.com/nsvirk/moneybotscharts/internal/service"
	"github.com/nsvirk/moneybotscharts/pkg/utils/state"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Connect to Postgres
	db, err := repository.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	// Connect Redis
	redisClient, err := repository.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Init logger
	err = zaplogger.InitLogger(db)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")

	stateManager, err := state.NewState(db)
	if err != nil {
		zaplogger.Fatal("failed to create state manager", zaplogger.Fields{"error": err.Error()})
	}

	// NSE clients share one cookie jar and rate limit
	nse := transport.New(
		transport.WithTimeout(cfg.HTTPTimeout),
		transport.WithRateLimit(rate.Limit(cfg.HTTPRateLimit), 1),
	)
	dir := directory.New(nse)
	assembler := snapshot.NewAssembler(nse)
	historicalClient := historical.NewClient(nse, dir)
	strictHistoricalClient := historical.NewClient(nse, dir, historical.WithStrictIntervals())

	// Services
	instrumentService := service.NewInstrumentService(dir, repository.NewInstrumentRepository(db), stateManager)
	snapshotService := service.NewSnapshotService(
		assembler,
		repository.NewSnapshotRepository(db),
		repository.NewSnapshotCache(redisClient, cfg.SnapshotCacheTTL),
		cfg.SnapshotGroups,
		cfg.SnapshotWorkers,
	)
	historicalService := service.NewHistoricalService(historicalClient, strictHistoricalClient, repository.NewBarRepository(db))

	// Serve lookups from the last stored masters until the first download
	if err := instrumentService.WarmUp(); err != nil {
		zaplogger.Warn("Instrument warm up incomplete", zaplogger.Fields{"error": err.Error()})
	}

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, cfg, api.Services{
		Instruments: instrumentService,
		Snapshots:   snapshotService,
		Historical:  historicalService,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Setup and start cron jobs
	cronService := service.NewCronService(instrumentService, snapshotService)
	cronService.Start()

	// Forward stored snapshot notifications to Redis
	publishService := service.NewPublishService(redisClient, cfg.PostgresDsn)
	go publishService.PublishSnapshotsToRedisChannel(ctx)

	// Start the server
	go startServer(e, cfg)

	<-ctx.Done()
	zaplogger.Info("SERVER SHUTTING DOWN")

	<-cronService.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zaplogger.Error("Server shutdown failed", zaplogger.Fields{"error": err.Error()})
	}
	if err := redisClient.Close(); err != nil {
		zaplogger.Warn("Redis close failed", zaplogger.Fields{"error": err.Error()})
	}
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3008"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zaplogger.Fatal("Server stopped", zaplogger.Fields{"error": err.Error()})
	}
}
