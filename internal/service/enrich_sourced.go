package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/prompts"
)

// SourcedEnrichmentService builds complete records from nothing but a product
// name, using a search-grounded provider that cites pharmaceutical references
// (BDPM, ANSM, Vidal) for what it returns.
type SourcedEnrichmentService struct {
	client    *resty.Client
	model     string
	endpoint  string
	apiKey    string
	maxTokens int
	pacer     *Pacer
	logger    *logger.Logger
}

// NewSourcedEnrichmentService creates the natural-language enrichment client.
func NewSourcedEnrichmentService(cfg *EnrichmentClientConfig, pacer *Pacer, log *logger.Logger) *SourcedEnrichmentService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.perplexity.ai"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	return &SourcedEnrichmentService{
		client:    client,
		model:     cfg.Model,
		endpoint:  baseURL + "/chat/completions",
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens,
		pacer:     pacer,
		logger:    log,
	}
}

func (s *SourcedEnrichmentService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// EnrichName researches a single product name and returns a complete record
// with its sources.
func (s *SourcedEnrichmentService) EnrichName(ctx context.Context, name string) (*Enrichment, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("sourced enrichment not configured: %w", ErrMissingAPIKey)
	}

	req := llmRequest{
		Model: s.model,
		Messages: []llmMessage{
			{Role: "system", Content: prompts.SourcedSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Produit pharmaceutique à documenter: %s", name)},
		},
		MaxTokens:   s.maxTokens,
		Temperature: 0.1,
	}

	start := time.Now()
	content, err := postChat(ctx, s.client, s.endpoint, req)
	if err != nil {
		return nil, err
	}

	enrichment, err := parseEnrichment(content, domain.Record{"product_name": name})
	if err != nil {
		return nil, err
	}

	s.log(ctx).WithFields(logger.Fields{
		"product":              name,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		"sources":              len(enrichment.Sources),
	}).Debug("Sourced enrichment completed")

	if len(enrichment.Sources) == 0 {
		enrichment.Warnings = append(enrichment.Warnings, "aucune source citée, fiabilité à vérifier")
	}

	return enrichment, nil
}

// EnrichNames researches product names strictly sequentially under the pacer.
// Item failures become rejected documents; the loop stops only on
// cancellation.
func (s *SourcedEnrichmentService) EnrichNames(ctx context.Context, names []string, onProgress ProgressFunc) []*domain.EnrichedDocument {
	docs := make([]*domain.EnrichedDocument, 0, len(names))
	total := len(names)

	for i, name := range names {
		if err := s.pacer.Wait(ctx); err != nil {
			s.log(ctx).WithError(err).Warn("Sourced enrichment batch canceled")
			break
		}

		if onProgress != nil {
			onProgress(i, total, name)
		}

		input := domain.Record{"product_name": name}
		enrichment, err := s.EnrichName(ctx, name)
		if err != nil {
			s.log(ctx).WithFields(logger.Fields{
				"product": name,
			}).WithError(err).Error("Sourced enrichment call failed")
		}
		docs = append(docs, buildEnrichedDocument(input, enrichment, err))
	}

	return docs
}
