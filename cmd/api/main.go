package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/protokol-team/protokol/internal/adapter/handler"
	"github.com/protokol-team/protokol/internal/adapter/repository"
	"github.com/protokol-team/protokol/internal/infrastructure/cache"
	"github.com/protokol-team/protokol/internal/infrastructure/database"
	"github.com/protokol-team/protokol/internal/infrastructure/external/asr"
	"github.com/protokol-team/protokol/internal/infrastructure/lock"
	"github.com/protokol-team/protokol/internal/infrastructure/storage"
	"github.com/protokol-team/protokol/internal/usecase/pipeline"
	"github.com/protokol-team/protokol/internal/usecase/summary"
	pkgai "github.com/protokol-team/protokol/pkg/ai"
	"github.com/protokol-team/protokol/pkg/config"
	pkglogger "github.com/protokol-team/protokol/pkg/logger"
	pkgvalidator "github.com/protokol-team/protokol/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := pkglogger.New(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run AutoMigrate only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running GORM AutoMigrate (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run AutoMigrate: %v", err)
		}
	} else {
		log.Println("🔄 Applying sql-migrate migrations...")
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	statusCache := cache.NewStatusCache(redisClient, logger)

	// Initialize object storage for source recordings
	log.Println("🎙️  Connecting to object storage...")
	audioStore, err := storage.NewMinIOClient(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	jobRepo := repository.NewJobRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	embeddingRepo := repository.NewEmbeddingRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)

	// Initialize model clients
	log.Println("🤖 Initializing model clients...")
	segmenter := asr.NewSegmenterClient(&cfg.ASR, logger)
	transcriber := asr.NewTranscriberClient(&cfg.ASR, logger)
	chatClient := pkgai.NewOllamaClient(&cfg.Ollama, logger)
	embedClient := pkgai.NewEmbeddingClient(&cfg.Ollama, logger)

	// Initialize pipeline services
	log.Println("🧵 Initializing pipeline...")
	locker := lock.NewAdvisoryLocker(db, logger)
	summaryService := summary.NewService(
		chatClient,
		embedClient,
		embeddingRepo,
		jobRepo,
		summaryRepo,
		&cfg.Summary,
		&cfg.Ollama,
		logger,
	)
	pipelineService := pipeline.NewService(
		jobRepo,
		segmentRepo,
		embeddingRepo,
		audioStore,
		segmenter,
		transcriber,
		embedClient,
		summaryService,
		locker,
		statusCache,
		logger,
	)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	jobHandler := handler.NewJobHandler(jobRepo, summaryRepo, pipelineService, statusCache, logger)
	router := handler.NewRouter(cfg, jobHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
