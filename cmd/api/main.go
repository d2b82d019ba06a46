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

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/api"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/api/handler"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/api/middleware"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/config"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/repository"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/service"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize repositories
	indexRepo := repository.NewCustomIndexRepository(db)
	runRepo := repository.NewRunRepository(db)
	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Embedding.Dimensions,
	})
	if err != nil {
		appLogger.Fatalf("Failed to initialize Qdrant repository: %v", err)
	}
	defer qdrantRepo.Close()

	// Ensure Qdrant collection exists
	ctx := context.Background()
	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		appLogger.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}

	// Initialize raw-input archival storage (optional)
	var objectStorage storage.ObjectStorage
	if cfg.Storage.Enabled {
		objectStorage, err = storage.NewStorage(&storage.S3Config{
			Type:      storage.StorageType(cfg.Storage.Type),
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			appLogger.Fatalf("Failed to initialize storage: %v", err)
		}
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			appLogger.Fatalf("Failed to ensure storage bucket: %v", err)
		}
	}

	// Initialize schema registry and validator
	registry := schema.NewRegistry(indexRepo)
	if err := registry.LoadCustom(ctx); err != nil {
		appLogger.Warnf("Failed to load custom indexes at startup: %v", err)
	}
	validator := schema.NewValidator(registry)

	// Initialize services
	pacer := service.NewPacer(cfg.Pipeline.CallInterval)
	embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	documentStore := repository.NewDocumentStore(qdrantRepo, embeddingService)

	enricher := service.NewEnrichmentService(&service.EnrichmentClientConfig{
		Model:     cfg.Enrichment.Generic.Model,
		APIKey:    cfg.Enrichment.Generic.APIKey,
		BaseURL:   cfg.Enrichment.Generic.BaseURL,
		MaxTokens: cfg.Enrichment.Generic.MaxTokens,
		Timeout:   cfg.Enrichment.Timeout,
	}, pacer, appLogger)
	sourced := service.NewSourcedEnrichmentService(&service.EnrichmentClientConfig{
		Model:     cfg.Enrichment.Sourced.Model,
		APIKey:    cfg.Enrichment.Sourced.APIKey,
		BaseURL:   cfg.Enrichment.Sourced.BaseURL,
		MaxTokens: cfg.Enrichment.Sourced.MaxTokens,
		Timeout:   cfg.Enrichment.Timeout,
	}, pacer, appLogger)
	fixer := service.NewAutoFixService(&service.EnrichmentClientConfig{
		Model:     cfg.Enrichment.Generic.Model,
		APIKey:    cfg.Enrichment.Generic.APIKey,
		BaseURL:   cfg.Enrichment.Generic.BaseURL,
		MaxTokens: cfg.Enrichment.Generic.MaxTokens,
		Timeout:   cfg.Enrichment.Timeout,
	}, pacer, appLogger)
	committer := service.NewCommitService(documentStore, pacer, appLogger)
	archive := service.NewArchiveService(objectStorage)

	// Initialize handlers
	indexHandler := handler.NewIndexHandler(indexRepo, registry, documentStore, appLogger)
	studioHandler := handler.NewStudioHandler(handler.StudioDeps{
		Registry:  registry,
		Validator: validator,
		Enricher:  enricher,
		Sourced:   sourced,
		Fixer:     fixer,
		Committer: committer,
		Archive:   archive,
		RunRepo:   runRepo,
		MaxBatch:  cfg.Pipeline.MaxBatch,
		Logger:    appLogger,
	})

	// Setup router
	router := api.SetupRouter(api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Logger:       appLogger,
		IndexHandler: indexHandler,
		Studio:       studioHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.Infof("Starting API server: port=%d, mode=%s", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}
