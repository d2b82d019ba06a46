package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/config"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/input"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/repository"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "axora-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	filePath := flag.String("file", "", "Input file: JSON/CSV records, or newline-separated names with -mode natural_language")
	indexID := flag.String("index", schema.PharmaceuticalProductsID, "Destination index")
	mode := flag.String("mode", string(domain.ModeStructured), "Ingestion mode: structured, ai_enriched, natural_language")
	autoFix := flag.Bool("autofix", false, "Attempt AI auto-fix on records with validation errors (structured mode)")
	approveAll := flag.Bool("approve-all", false, "Approve every enriched document without interactive review")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *filePath == "" {
		appLogger.Fatal("Missing required -file flag")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		"file":              *filePath,
		logger.FieldIndexID: *indexID,
		logger.FieldMode:    *mode,
	}).Info("Starting batch ingestion")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	indexRepo := repository.NewCustomIndexRepository(db)
	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Embedding.Dimensions,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize Qdrant repository")
	}
	defer qdrantRepo.Close()

	// Handle interrupts: cancellation lands between batch items
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure Qdrant collection")
	}

	// Initialize schema registry and validator
	registry := schema.NewRegistry(indexRepo)
	if err := registry.LoadCustom(ctx); err != nil {
		appLogger.WithError(err).Warn("Failed to load custom indexes")
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
	committer := service.NewCommitService(documentStore, pacer, appLogger)

	wizard := service.NewWizard(service.WizardDeps{
		Validator: validator,
		Enricher: service.NewEnrichmentService(&service.EnrichmentClientConfig{
			Model:     cfg.Enrichment.Generic.Model,
			APIKey:    cfg.Enrichment.Generic.APIKey,
			BaseURL:   cfg.Enrichment.Generic.BaseURL,
			MaxTokens: cfg.Enrichment.Generic.MaxTokens,
			Timeout:   cfg.Enrichment.Timeout,
		}, pacer, appLogger),
		Sourced: service.NewSourcedEnrichmentService(&service.EnrichmentClientConfig{
			Model:     cfg.Enrichment.Sourced.Model,
			APIKey:    cfg.Enrichment.Sourced.APIKey,
			BaseURL:   cfg.Enrichment.Sourced.BaseURL,
			MaxTokens: cfg.Enrichment.Sourced.MaxTokens,
			Timeout:   cfg.Enrichment.Timeout,
		}, pacer, appLogger),
		Fixer: service.NewAutoFixService(&service.EnrichmentClientConfig{
			Model:     cfg.Enrichment.Generic.Model,
			APIKey:    cfg.Enrichment.Generic.APIKey,
			BaseURL:   cfg.Enrichment.Generic.BaseURL,
			MaxTokens: cfg.Enrichment.Generic.MaxTokens,
			Timeout:   cfg.Enrichment.Timeout,
		}, pacer, appLogger),
		Committer: committer,
		MaxBatch:  cfg.Pipeline.MaxBatch,
		Logger:    appLogger,
	})

	if err := wizard.SelectMode(domain.IngestMode(*mode), *indexID); err != nil {
		appLogger.WithError(err).Fatal("Invalid ingestion mode")
	}

	src, err := os.Open(*filePath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open input file")
	}
	defer src.Close()

	progress := func(index, total int, label string) {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", index+1, total, label)
	}

	switch domain.IngestMode(*mode) {
	case domain.ModeStructured, domain.ModeAIEnriched:
		reader, err := input.ForFilename(*filePath)
		if err != nil {
			appLogger.WithError(err).Fatal("Unsupported input format")
		}
		records, err := reader.ReadRecords(src, cfg.Pipeline.MaxBatch)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to read records")
		}
		if err := wizard.LoadRecords(records); err != nil {
			appLogger.WithError(err).Fatal("Failed to load records")
		}

	case domain.ModeNaturalLanguage:
		names, err := input.ReadNames(src, cfg.Pipeline.MaxBatch)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to read product names")
		}
		if err := wizard.LoadNames(names); err != nil {
			appLogger.WithError(err).Fatal("Failed to load product names")
		}
	}

	if domain.IngestMode(*mode) == domain.ModeStructured {
		docs, err := wizard.Validate(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Validation failed")
		}
		reportValidation(docs)

		if *autoFix {
			docs, err = wizard.AutoFix(ctx, progress)
			if err != nil {
				appLogger.WithError(err).Fatal("Auto-fix failed")
			}
			fmt.Fprintln(os.Stderr, "After auto-fix:")
			reportValidation(docs)
		}
	} else {
		if !*approveAll {
			appLogger.Fatal("Enrichment modes require interactive review; pass -approve-all to bypass it explicitly")
		}

		enriched, err := wizard.RunEnrichment(ctx, progress)
		if err != nil {
			appLogger.WithError(err).Fatal("Enrichment failed")
		}
		fmt.Fprintf(os.Stderr, "Enriched %d documents\n", len(enriched))

		approved := wizard.Gate().ApproveAllPending()
		fmt.Fprintf(os.Stderr, "Approved %d documents\n", approved)
	}

	if err := wizard.ContinueToIngest(ctx); err != nil {
		appLogger.WithError(err).Fatal("Nothing to ingest")
	}
	if gate := wizard.Gate(); gate != nil {
		for _, held := range gate.ValidationFailures() {
			fmt.Fprintf(os.Stderr, "HELD BACK %s: enriched data fails schema validation\n",
				held.ProcessedData.DisplayName())
		}
	}

	summary, err := wizard.Ingest(ctx, progress)
	if err != nil {
		appLogger.WithError(err).Fatal("Ingestion failed")
	}

	fmt.Printf("Ingestion %s: %d/%d succeeded, %d failed\n",
		summary.Phase, summary.Succeeded, summary.Total, summary.Failed)
	for _, failure := range summary.Failures() {
		fmt.Printf("  FAILED %s: %s\n", failure.ProductName, failure.Error)
	}

	if summary.Phase == domain.IngestionError {
		os.Exit(1)
	}
}

func reportValidation(docs []*domain.ProcessedDocument) {
	valid, warned, failed := 0, 0, 0
	for _, doc := range docs {
		switch {
		case doc.HasErrors():
			failed++
		case doc.HasWarnings():
			warned++
		default:
			valid++
		}
	}
	fmt.Fprintf(os.Stderr, "Validated %d records: %d clean, %d with warnings, %d with errors\n",
		len(docs), valid, warned, failed)
}
