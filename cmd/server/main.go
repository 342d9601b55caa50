package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/wager-engine/internal/api"
	"github.com/stitts-dev/wager-engine/internal/api/handlers"
	"github.com/stitts-dev/wager-engine/internal/api/middleware"
	"github.com/stitts-dev/wager-engine/internal/cache"
	"github.com/stitts-dev/wager-engine/internal/config"
	"github.com/stitts-dev/wager-engine/internal/engine"
	"github.com/stitts-dev/wager-engine/internal/storage"
	"github.com/stitts-dev/wager-engine/internal/websocket"
	"github.com/stitts-dev/wager-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := storage.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := storage.NewSelectionStore(db.DB)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize services
	resultCache := cache.NewResultCache(redisClient, cfg.CacheTTL)

	hub := websocket.NewHub(log)
	go hub.Run()

	engineCfg := engine.DefaultConfig()
	if cfg.EngineWorkers > 0 {
		engineCfg.Workers = cfg.EngineWorkers
	}
	if cfg.EngineBatchSize > 0 {
		engineCfg.BatchSize = cfg.EngineBatchSize
	}
	if cfg.MaxParlayLegs > 0 {
		engineCfg.Generator.MaxLegs = cfg.MaxParlayLegs
	}
	if cfg.MinEdge > 0 {
		engineCfg.Edge.MinEdge = cfg.MinEdge
	}
	if cfg.KellyDivisor > 0 {
		engineCfg.Edge.KellyDivisor = cfg.KellyDivisor
		engineCfg.Scorer.KellyDivisor = cfg.KellyDivisor
	}
	if cfg.CorrelationCeiling > 0 {
		engineCfg.Generator.CorrelationCeiling = cfg.CorrelationCeiling
	}
	eng := engine.New(engineCfg)

	optimizationHandler := handlers.NewOptimizationHandler(
		eng, resultCache, store, hub,
		time.Duration(cfg.OptimizationTimeout)*time.Second,
	)
	healthHandler := handlers.NewHealthHandler(db, redisClient)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, optimizationHandler)

	// WebSocket endpoint at root level (not under /api/v1)
	router.GET("/ws/runs/:run_id", hub.HandleRunProgress)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
