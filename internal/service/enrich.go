package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/prompts"
)

// requiredOutputFields are never optional in the enrichment output contract,
// even at low confidence. A weak value is surfaced to the review gate, never
// silently dropped.
var requiredOutputFields = []string{"product_code", "product_name", "dci"}

// defaultCallTimeout bounds every single enrichment call: a hung provider
// stalls one item, not the whole run.
const defaultCallTimeout = 60 * time.Second

// Enrichment is the structured outcome of one successful enrichment call.
type Enrichment struct {
	Record     domain.Record
	Confidence domain.Confidence
	Reasoning  []string
	Warnings   []string
	Sources    []string
}

// enrichEnvelope mirrors the JSON the provider is instructed to return.
type enrichEnvelope struct {
	Record     domain.Record  `json:"record"`
	Confidence map[string]int `json:"confidence"`
	Reasoning  []string       `json:"reasoning"`
	Warnings   []string       `json:"warnings"`
	Sources    []string       `json:"sources"`
}

// ProgressFunc is invoked before each batch item starts.
type ProgressFunc func(index, total int, label string)

// EnrichmentClientConfig holds configuration for an enrichment client.
type EnrichmentClientConfig struct {
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// EnrichmentService completes partial pharmaceutical records through a
// chat-completion provider, with per-field confidence scores.
type EnrichmentService struct {
	client    *resty.Client
	model     string
	endpoint  string
	apiKey    string
	maxTokens int
	pacer     *Pacer
	logger    *logger.Logger
}

// NewEnrichmentService creates the generic enrichment client.
func NewEnrichmentService(cfg *EnrichmentClientConfig, pacer *Pacer, log *logger.Logger) *EnrichmentService {
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
		baseURL = "https://api.openai.com/v1"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	return &EnrichmentService{
		client:    client,
		model:     cfg.Model,
		endpoint:  baseURL + "/chat/completions",
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens,
		pacer:     pacer,
		logger:    log,
	}
}

func (s *EnrichmentService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// EnrichOne turns one partial record into a complete structured record.
// Failures (missing credential, transport, malformed response) are returned
// as errors and never retried at this layer.
func (s *EnrichmentService) EnrichOne(ctx context.Context, input domain.Record) (*Enrichment, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("enrichment not configured: %w", ErrMissingAPIKey)
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input record: %w", err)
	}

	req := llmRequest{
		Model: s.model,
		Messages: []llmMessage{
			{Role: "system", Content: prompts.EnrichSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Fiche produit partielle à compléter:\n%s", inputJSON)},
		},
		MaxTokens:      s.maxTokens,
		Temperature:    0.2,
		ResponseFormat: jsonResponseFormat,
	}

	content, err := postChat(ctx, s.client, s.endpoint, req)
	if err != nil {
		return nil, err
	}

	return parseEnrichment(content, input)
}

// EnrichBatch enriches records strictly sequentially under the pacer,
// reporting progress before each call. A per-item failure yields a rejected
// document carrying the error as its sole warning; the batch never aborts on
// item failure, only on cancellation between items.
func (s *EnrichmentService) EnrichBatch(ctx context.Context, inputs []domain.Record, onProgress ProgressFunc) []*domain.EnrichedDocument {
	docs := make([]*domain.EnrichedDocument, 0, len(inputs))
	total := len(inputs)

	for i, input := range inputs {
		if err := s.pacer.Wait(ctx); err != nil {
			s.log(ctx).WithError(err).Warn("Enrichment batch canceled")
			break
		}

		label := input.DisplayName()
		if onProgress != nil {
			onProgress(i, total, label)
		}

		enrichment, err := s.enrichOneSafe(ctx, input)
		docs = append(docs, buildEnrichedDocument(input, enrichment, err))
	}

	return docs
}

func (s *EnrichmentService) enrichOneSafe(ctx context.Context, input domain.Record) (*Enrichment, error) {
	enrichment, err := s.EnrichOne(ctx, input)
	if err != nil {
		s.log(ctx).WithFields(logger.Fields{
			"product": input.DisplayName(),
		}).WithError(err).Error("Enrichment call failed")
	}
	return enrichment, err
}

// parseEnrichment decodes the provider envelope and enforces the output
// contract: required fields are backfilled from the input and flagged rather
// than dropped.
func parseEnrichment(content string, input domain.Record) (*Enrichment, error) {
	var envelope enrichEnvelope
	if err := decodeEnvelope(content, &envelope); err != nil {
		return nil, err
	}
	if envelope.Record == nil {
		return nil, fmt.Errorf("malformed enrichment response: missing record")
	}

	warnings := envelope.Warnings
	for _, field := range requiredOutputFields {
		if envelope.Record.GetString(field) != "" {
			continue
		}
		if fallback := input.GetString(field); fallback != "" {
			envelope.Record[field] = fallback
		}
		warnings = append(warnings, fmt.Sprintf("champ requis %q absent de la réponse, à vérifier manuellement", field))
	}

	return &Enrichment{
		Record:     envelope.Record,
		Confidence: buildConfidence(envelope.Confidence),
		Reasoning:  envelope.Reasoning,
		Warnings:   warnings,
		Sources:    envelope.Sources,
	}, nil
}

// buildConfidence converts the provider's open string-keyed map into the
// explicit confidence structure, so a real field named "overall" or "error"
// can never be confused with the aggregate or the failure sentinel.
func buildConfidence(raw map[string]int) domain.Confidence {
	c := domain.Confidence{PerField: make(map[string]int, len(raw))}
	for field, score := range raw {
		if field == "overall" {
			c.Overall = clampScore(score)
			continue
		}
		c.PerField[field] = clampScore(score)
	}
	if c.Overall == 0 && len(c.PerField) > 0 {
		sum := 0
		for _, score := range c.PerField {
			sum += score
		}
		c.Overall = sum / len(c.PerField)
	}
	return c
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// buildEnrichedDocument wraps an enrichment outcome into the review-gate
// document shape. Failed items arrive pre-rejected with the error text as
// their sole warning.
func buildEnrichedDocument(input domain.Record, enrichment *Enrichment, err error) *domain.EnrichedDocument {
	doc := &domain.EnrichedDocument{
		ID:           uuid.New().String(),
		OriginalData: input.Clone(),
		Status:       domain.ReviewPending,
	}

	if err != nil {
		doc.Status = domain.ReviewRejected
		doc.EnrichedData = input.Clone()
		doc.Confidence = domain.Confidence{Failed: true}
		doc.Warnings = []string{err.Error()}
		return doc
	}

	doc.EnrichedData = enrichment.Record
	doc.Confidence = enrichment.Confidence
	doc.Reasoning = enrichment.Reasoning
	doc.Warnings = enrichment.Warnings
	doc.Sources = enrichment.Sources
	return doc
}
