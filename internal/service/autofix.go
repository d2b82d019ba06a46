package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/prompts"
)

// fixEnvelope mirrors the JSON the auto-fix provider is instructed to return.
type fixEnvelope struct {
	Record  domain.Record `json:"record"`
	Changes []string      `json:"changes"`
}

// FixResult carries the outcome of one auto-fix attempt, positioned by the
// document's index in the submitted slice so callers can splice corrected
// records back in order.
type FixResult struct {
	Index   int
	Fixed   domain.Record
	Changes []string
	Err     error
}

// AutoFixService asks a chat-completion provider to correct records that
// failed validation, constrained to the reported findings only.
type AutoFixService struct {
	client    *resty.Client
	model     string
	endpoint  string
	apiKey    string
	maxTokens int
	pacer     *Pacer
	logger    *logger.Logger
}

// NewAutoFixService creates the auto-fix client. It shares the generic
// enrichment provider configuration.
func NewAutoFixService(cfg *EnrichmentClientConfig, pacer *Pacer, log *logger.Logger) *AutoFixService {
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

	return &AutoFixService{
		client:    client,
		model:     cfg.Model,
		endpoint:  baseURL + "/chat/completions",
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens,
		pacer:     pacer,
		logger:    log,
	}
}

func (s *AutoFixService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// Fix attempts to correct a single record against its validation findings.
// The returned record is a new value; the input is never mutated.
func (s *AutoFixService) Fix(ctx context.Context, record domain.Record, findings []domain.ValidationError) (domain.Record, []string, error) {
	if s.apiKey == "" {
		return nil, nil, fmt.Errorf("auto-fix not configured: %w", ErrMissingAPIKey)
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode record: %w", err)
	}

	var sb strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&sb, "- %s: %s", f.Field, f.Message)
		if f.Suggestion != "" {
			fmt.Fprintf(&sb, " (attendu: %s)", f.Suggestion)
		}
		sb.WriteString("\n")
	}

	req := llmRequest{
		Model: s.model,
		Messages: []llmMessage{
			{Role: "system", Content: prompts.AutoFixSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Fiche produit:\n%s\n\nProblèmes de validation:\n%s", recordJSON, sb.String())},
		},
		MaxTokens:      s.maxTokens,
		Temperature:    0.1,
		ResponseFormat: jsonResponseFormat,
	}

	content, err := postChat(ctx, s.client, s.endpoint, req)
	if err != nil {
		return nil, nil, err
	}

	var envelope fixEnvelope
	if err := decodeEnvelope(content, &envelope); err != nil {
		return nil, nil, err
	}
	if envelope.Record == nil {
		return nil, nil, fmt.Errorf("malformed auto-fix response: missing record")
	}

	return envelope.Record, envelope.Changes, nil
}

// FixBatch corrects the documents that carry blocking validation errors,
// strictly sequentially under the pacer. Documents without blocking errors
// are skipped. Results preserve submission order through their Index; an
// item failure is recorded in its result and never aborts the batch.
func (s *AutoFixService) FixBatch(ctx context.Context, docs []*domain.ProcessedDocument, onProgress ProgressFunc) []FixResult {
	var targets []int
	for i, doc := range docs {
		if doc.HasErrors() {
			targets = append(targets, i)
		}
	}

	results := make([]FixResult, 0, len(targets))
	total := len(targets)

	for n, i := range targets {
		doc := docs[i]

		if err := s.pacer.Wait(ctx); err != nil {
			s.log(ctx).WithError(err).Warn("Auto-fix batch canceled")
			break
		}

		if onProgress != nil {
			onProgress(n, total, doc.ProcessedData.DisplayName())
		}

		start := time.Now()
		fixed, changes, err := s.Fix(ctx, doc.ProcessedData, doc.ValidationErrors)
		if err != nil {
			s.log(ctx).WithFields(logger.Fields{
				logger.FieldDocID: doc.ID,
			}).WithError(err).Error("Auto-fix call failed")
		} else {
			s.log(ctx).WithFields(logger.Fields{
				logger.FieldDocID:      doc.ID,
				logger.FieldDurationMs: time.Since(start).Milliseconds(),
				"changes":              len(changes),
			}).Debug("Auto-fix completed")
		}

		results = append(results, FixResult{Index: i, Fixed: fixed, Changes: changes, Err: err})
	}

	return results
}
