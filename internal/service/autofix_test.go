package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

func newTestFixer(baseURL string) *AutoFixService {
	return NewAutoFixService(&EnrichmentClientConfig{
		Model:   "gpt-4o-mini",
		APIKey:  "test-key",
		BaseURL: baseURL,
	}, NewPacer(0), testLogger())
}

func docWithErrors(name string) *domain.ProcessedDocument {
	return &domain.ProcessedDocument{
		ID:            "doc-" + name,
		ProcessedData: domain.Record{"product_name": name},
		ValidationErrors: []domain.ValidationError{{
			Field:      "product_code",
			Message:    `required field "product_code" is missing`,
			Severity:   domain.SeverityError,
			Suggestion: "Identifiant produit en snake_case",
		}},
	}
}

func cleanDoc(name string) *domain.ProcessedDocument {
	return &domain.ProcessedDocument{
		ID:            "doc-" + name,
		ProcessedData: domain.Record{"product_name": name},
	}
}

func TestFixMissingAPIKey(t *testing.T) {
	s := NewAutoFixService(&EnrichmentClientConfig{Model: "x"}, NewPacer(0), testLogger())

	_, _, err := s.Fix(context.Background(), domain.Record{}, nil)

	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestFixSendsFindings(t *testing.T) {
	var userMessage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(body, &req)
		for _, m := range req.Messages {
			if m.Role == "user" {
				userMessage = m.Content
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletion(`{"record": {"product_code": "doliprane_500mg", "product_name": "DOLIPRANE"}, "changes": ["product_code ajouté"]}`))
	}))
	defer server.Close()

	s := newTestFixer(server.URL)
	doc := docWithErrors("DOLIPRANE")

	fixed, changes, err := s.Fix(context.Background(), doc.ProcessedData, doc.ValidationErrors)
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}

	if fixed.GetString("product_code") != "doliprane_500mg" {
		t.Errorf("unexpected fixed record: %v", fixed)
	}
	if len(changes) != 1 {
		t.Errorf("expected one reported change, got %v", changes)
	}
	if !strings.Contains(userMessage, "product_code") {
		t.Error("findings should reach the provider")
	}
	if !strings.Contains(userMessage, "attendu: Identifiant produit en snake_case") {
		t.Error("the finding suggestion should reach the provider")
	}
}

func TestFixBatchTargetsOnlyBrokenDocs(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletion(`{"record": {"product_code": "fixe", "product_name": "FIXE"}, "changes": []}`))
	}))
	defer server.Close()

	s := newTestFixer(server.URL)
	docs := []*domain.ProcessedDocument{
		cleanDoc("A"),
		docWithErrors("B"),
		cleanDoc("C"),
		docWithErrors("D"),
	}

	results := s.FixBatch(context.Background(), docs, nil)

	if calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", calls)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 1 || results[1].Index != 3 {
		t.Errorf("results should point at the broken documents, got indexes %d and %d", results[0].Index, results[1].Index)
	}
}

func TestFixBatchRecordsItemFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, chatCompletion(`{"record": {"product_code": "fixe", "product_name": "FIXE"}, "changes": []}`))
	}))
	defer server.Close()

	s := newTestFixer(server.URL)
	docs := []*domain.ProcessedDocument{docWithErrors("B"), docWithErrors("D")}

	results := s.FixBatch(context.Background(), docs, nil)

	if len(results) != 2 {
		t.Fatalf("a failed item must not abort the batch: got %d results", len(results))
	}
	if results[0].Err == nil {
		t.Error("first result should carry the provider error")
	}
	if results[1].Err != nil {
		t.Errorf("second result should succeed, got %v", results[1].Err)
	}
}

func TestFixBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestFixer("http://unreachable.invalid")
	results := s.FixBatch(ctx, []*domain.ProcessedDocument{docWithErrors("B")}, nil)

	if len(results) != 0 {
		t.Errorf("canceled batch should produce no results, got %d", len(results))
	}
}
