package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeti47/framegrab/server/capture-server/handlers"
	"github.com/yeti47/framegrab/server/capture-server/middleware"
	"github.com/yeti47/framegrab/server/core/ccc/db"
	"github.com/yeti47/framegrab/server/core/ccc/logging"
	"github.com/yeti47/framegrab/server/core/ccc/metrics"
	"github.com/yeti47/framegrab/server/core/ccc/tracing"
	"github.com/yeti47/framegrab/server/core/clips"
	"github.com/yeti47/framegrab/server/core/config"
	"github.com/yeti47/framegrab/server/core/extraction"
	"github.com/yeti47/framegrab/server/core/history"
	"github.com/yeti47/framegrab/server/core/media"
	"github.com/yeti47/framegrab/server/core/stats"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to prepare directories: %v", err)
	}

	logger, logCloser := logging.New(logging.Options{
		Level:    logging.LogLevel(cfg.LogLevel),
		Dir:      cfg.LogPath,
		FileName: "capture-server",
		Console:  cfg.LogConsole,
	})
	defer logCloser.Close()
	logger.Info("Starting capture server", "address", cfg.Address(), "clips_dir", cfg.ClipsDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.TracingEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	journal, err := history.NewSQLiteRepository(database)
	if err != nil {
		log.Fatalf("Failed to create extraction journal: %v", err)
	}

	caps := media.NewCapabilityProber(logger, cfg.FFmpegPath).Probe(ctx)
	if !caps.Available {
		logger.Error("ffmpeg is not available, extractions will fail", "program", cfg.FFmpegPath)
	}

	recorder := metrics.NopRecorder
	if cfg.MetricsEnabled {
		recorder = metrics.Prometheus
	}

	builder := media.NewStrategyBuilder(media.StrategyOptions{
		Program:   cfg.FFmpegPath,
		Reconnect: caps.Reconnect,
	})
	executor := media.NewProcessExecutor(logger, media.ExecutorSettings{
		Timeout:   cfg.ExecTimeout(),
		KillGrace: cfg.KillGrace(),
	})
	retention := clips.NewRetentionManager(logger, func(string) {
		recorder.ObserveRetentionRemoval()
	})

	service := extraction.NewService(logger, extraction.Settings{
		ClipsDir:      cfg.ClipsDir,
		ClipExtension: cfg.ClipExtension,
		MaxClipFiles:  cfg.MaxClipFiles,
		FileFallback:  cfg.FileFallback,
	}, extraction.Dependencies{
		Builder:   builder,
		Executor:  executor,
		Retention: retention,
		Metadata:  clips.NewFFprobeMetadataExtractor(logger),
		Journal:   journal,
		Recorder:  recorder,
	})

	counter := stats.NewInFlightCounter(func(current int64) {
		metrics.InFlightRequests.Set(float64(current))
	})
	inFlight := middleware.NewInFlightMiddleware(logger, counter, stats.NewLimiter(cfg.MaxConcurrent))

	snapshotHandler := handlers.NewSnapshotHandler(logger, service, cfg.ErrorImage)
	clipHandler := handlers.NewClipHandler(logger, service, cfg.ClipsBaseURL)
	statsHandler := handlers.NewStatsHandler(logger, counter, journal)

	router := initializeGin(cfg)
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(inFlight.Track())

	setupRoutes(router, cfg, inFlight, snapshotHandler, clipHandler, statsHandler)

	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down capture server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}

// setupRoutes configures the HTTP routes
func setupRoutes(router *gin.Engine, cfg *config.Config, inFlight *middleware.InFlightMiddleware, snapshotHandler *handlers.SnapshotHandler, clipHandler *handlers.ClipHandler, statsHandler *handlers.StatsHandler) {
	api := router.Group("/api")

	extract := api.Group("")
	extract.Use(inFlight.Limit())
	extract.POST("/snapshot", snapshotHandler.TakeSnapshot)
	extract.POST("/clip", clipHandler.CreateClip)

	api.GET("/concurrent", statsHandler.GetConcurrent)
	api.GET("/extractions", statsHandler.ListExtractions)

	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "capture-server",
		})
	})
}
