package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

func newTestSourced(baseURL string) *SourcedEnrichmentService {
	return NewSourcedEnrichmentService(&EnrichmentClientConfig{
		Model:   "sonar",
		APIKey:  "test-key",
		BaseURL: baseURL,
	}, NewPacer(0), testLogger())
}

func TestEnrichNameWithSources(t *testing.T) {
	envelope := `{
		"record": {"product_code": "doliprane_500mg", "product_name": "DOLIPRANE 500 mg", "dci": "paracétamol"},
		"confidence": {"overall": 85},
		"sources": ["https://base-donnees-publique.medicaments.gouv.fr"]
	}`
	server := chatServer(t, envelope)
	defer server.Close()

	s := newTestSourced(server.URL)
	enrichment, err := s.EnrichName(context.Background(), "doliprane 500")
	if err != nil {
		t.Fatalf("EnrichName: %v", err)
	}

	if len(enrichment.Sources) != 1 {
		t.Errorf("expected 1 source, got %v", enrichment.Sources)
	}
	if len(enrichment.Warnings) != 0 {
		t.Errorf("cited response should carry no warning, got %v", enrichment.Warnings)
	}
}

func TestEnrichNameWithoutSourcesWarns(t *testing.T) {
	envelope := `{
		"record": {"product_code": "doliprane_500mg", "product_name": "DOLIPRANE 500 mg", "dci": "paracétamol"},
		"confidence": {"overall": 85}
	}`
	server := chatServer(t, envelope)
	defer server.Close()

	s := newTestSourced(server.URL)
	enrichment, err := s.EnrichName(context.Background(), "doliprane 500")
	if err != nil {
		t.Fatalf("EnrichName: %v", err)
	}

	if len(enrichment.Warnings) != 1 {
		t.Fatalf("uncited response should carry exactly one warning, got %v", enrichment.Warnings)
	}
}

func TestEnrichNamesIsolatesFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, chatCompletion(`{"record": {"product_code": "spasfon_lyoc", "product_name": "SPASFON LYOC", "dci": "phloroglucinol"}, "confidence": {"overall": 80}, "sources": ["https://ansm.sante.fr"]}`))
	}))
	defer server.Close()

	s := newTestSourced(server.URL)
	docs := s.EnrichNames(context.Background(), []string{"inconnu", "spasfon"}, nil)

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Status != domain.ReviewRejected {
		t.Errorf("failed name should arrive pre-rejected, got %q", docs[0].Status)
	}
	if docs[0].OriginalData.GetString("product_name") != "inconnu" {
		t.Error("failed document should keep the submitted name")
	}
	if docs[1].Status != domain.ReviewPending {
		t.Errorf("successful name should await review, got %q", docs[1].Status)
	}
}
