package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
)

func newTestWizard(store *fakeStore, enricher *EnrichmentService) *Wizard {
	validator := schema.NewValidator(schema.NewRegistry(nil))
	log := testLogger()
	return NewWizard(WizardDeps{
		Validator: validator,
		Enricher:  enricher,
		Committer: NewCommitService(store, NewPacer(0), log),
		MaxBatch:  5,
		Logger:    log,
	})
}

func validRecord(name string) domain.Record {
	return domain.Record{
		"product_code": "code_" + name,
		"product_name": "PRODUIT " + name,
		"dci":          "molécule " + name,
	}
}

func TestWizardModeBranching(t *testing.T) {
	testCases := []struct {
		name     string
		mode     domain.IngestMode
		wantStep WizardStep
		wantErr  bool
	}{
		{"structured", domain.ModeStructured, StepUpload, false},
		{"ai enriched", domain.ModeAIEnriched, StepUpload, false},
		{"natural language", domain.ModeNaturalLanguage, StepNLInput, false},
		{"unknown", domain.IngestMode("bulk"), StepMode, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWizard(&fakeStore{}, nil)
			err := w.SelectMode(tc.mode, schema.PharmaceuticalProductsID)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown mode")
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectMode: %v", err)
			}
			if w.Step() != tc.wantStep {
				t.Errorf("step: got %q, want %q", w.Step(), tc.wantStep)
			}
			if w.Mode() != tc.mode {
				t.Errorf("mode: got %q, want %q", w.Mode(), tc.mode)
			}
		})
	}
}

func TestWizardModeIsFixedForTheRun(t *testing.T) {
	w := newTestWizard(&fakeStore{}, nil)
	if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
		t.Fatal(err)
	}

	err := w.SelectMode(domain.ModeAIEnriched, schema.PharmaceuticalProductsID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestWizardLoadRecordsGuards(t *testing.T) {
	t.Run("wrong step", func(t *testing.T) {
		w := newTestWizard(&fakeStore{}, nil)
		err := w.LoadRecords([]domain.Record{validRecord("a")})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		w := newTestWizard(&fakeStore{}, nil)
		if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
			t.Fatal(err)
		}
		if err := w.LoadRecords(nil); err == nil {
			t.Error("expected error for empty batch")
		}
	})

	t.Run("batch too large", func(t *testing.T) {
		w := newTestWizard(&fakeStore{}, nil)
		if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
			t.Fatal(err)
		}
		records := make([]domain.Record, 6)
		for i := range records {
			records[i] = validRecord(fmt.Sprintf("p%d", i))
		}
		if err := w.LoadRecords(records); !errors.Is(err, ErrBatchTooLarge) {
			t.Errorf("expected ErrBatchTooLarge, got %v", err)
		}
	})
}

func TestWizardStructuredFlow(t *testing.T) {
	store := &fakeStore{}
	w := newTestWizard(store, nil)
	ctx := context.Background()

	if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
		t.Fatal(err)
	}
	records := []domain.Record{
		validRecord("a"),
		{"product_name": "INCOMPLET"}, // missing required fields
	}
	if err := w.LoadRecords(records); err != nil {
		t.Fatal(err)
	}
	if w.Step() != StepValidate {
		t.Fatalf("structured mode should go to validate, got %q", w.Step())
	}

	docs, err := w.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 validated documents, got %d", len(docs))
	}

	if err := w.ContinueToIngest(ctx); err != nil {
		t.Fatalf("ContinueToIngest: %v", err)
	}
	if w.Step() != StepIngest {
		t.Fatalf("expected ingest step, got %q", w.Step())
	}

	summary, err := w.Ingest(ctx, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.Total != 1 {
		t.Errorf("only the ingestable document should be committed, got total %d", summary.Total)
	}
	if summary.Phase != domain.IngestionCompleted {
		t.Errorf("phase: got %q, want %q", summary.Phase, domain.IngestionCompleted)
	}
	if w.Summary() != summary {
		t.Error("Summary should return the recorded outcome")
	}

	if _, err := w.Ingest(ctx, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("a run commits once: expected ErrInvalidTransition, got %v", err)
	}
}

func TestWizardContinueWithNothingIngestable(t *testing.T) {
	w := newTestWizard(&fakeStore{}, nil)
	ctx := context.Background()

	if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
		t.Fatal(err)
	}
	if err := w.LoadRecords([]domain.Record{{"product_name": "X"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Validate(ctx); err != nil {
		t.Fatal(err)
	}

	if err := w.ContinueToIngest(ctx); err == nil {
		t.Error("expected error when every record has blocking errors")
	}
	if w.Step() != StepValidate {
		t.Errorf("failed continue should not advance the step, got %q", w.Step())
	}
}

func TestWizardAIEnrichedFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletion(`{"record": {"product_code": "doliprane_500mg", "product_name": "DOLIPRANE 500 mg", "dci": "paracétamol"}, "confidence": {"overall": 90}}`))
	}))
	defer server.Close()

	store := &fakeStore{}
	w := newTestWizard(store, newTestEnricher(server.URL))
	ctx := context.Background()

	if err := w.SelectMode(domain.ModeAIEnriched, schema.PharmaceuticalProductsID); err != nil {
		t.Fatal(err)
	}
	if err := w.LoadRecords([]domain.Record{{"product_name": "doliprane"}}); err != nil {
		t.Fatal(err)
	}
	if w.Step() != StepAIEnrich {
		t.Fatalf("expected enrichment step, got %q", w.Step())
	}

	enriched, err := w.RunEnrichment(ctx, nil)
	if err != nil {
		t.Fatalf("RunEnrichment: %v", err)
	}
	if len(enriched) != 1 {
		t.Fatalf("expected 1 enriched document, got %d", len(enriched))
	}

	// Nothing approved yet: the gate blocks.
	if err := w.ContinueToIngest(ctx); !errors.Is(err, ErrNothingApproved) {
		t.Fatalf("expected ErrNothingApproved, got %v", err)
	}

	if got := w.Gate().ApproveAllPending(); got != 1 {
		t.Fatalf("approve-all: got %d, want 1", got)
	}
	if err := w.ContinueToIngest(ctx); err != nil {
		t.Fatalf("ContinueToIngest after approval: %v", err)
	}

	summary, err := w.Ingest(ctx, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Errorf("expected 1 ingested document, got %d", summary.Succeeded)
	}
	if len(store.calls) != 1 || store.calls[0].searchableText == "" {
		t.Error("enriched document should be stored with searchable text")
	}
}

func TestWizardResetDuringEnrichmentDiscardsBatch(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletion(`{"record": {"product_code": "doliprane_500mg", "product_name": "DOLIPRANE 500 mg", "dci": "paracétamol"}, "confidence": {"overall": 90}}`))
	}))
	defer server.Close()

	w := newTestWizard(&fakeStore{}, newTestEnricher(server.URL))
	if err := w.SelectMode(domain.ModeAIEnriched, schema.PharmaceuticalProductsID); err != nil {
		t.Fatal(err)
	}
	if err := w.LoadRecords([]domain.Record{{"product_name": "doliprane"}}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := w.RunEnrichment(context.Background(), nil)
		done <- err
	}()

	// Abandon the run while the provider call is still in flight.
	w.Reset()
	close(release)

	if err := <-done; err == nil {
		t.Fatal("enrichment finishing after a reset must report the discarded batch")
	}
	if w.Step() != StepMode {
		t.Errorf("reset wizard should stay at mode selection, got %q", w.Step())
	}
	if w.Gate() != nil {
		t.Error("a reset wizard must not end up holding a review gate")
	}
}

func TestWizardRunEnrichmentWrongStep(t *testing.T) {
	w := newTestWizard(&fakeStore{}, nil)

	if _, err := w.RunEnrichment(context.Background(), nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestWizardBack(t *testing.T) {
	ctx := context.Background()

	t.Run("upload back to mode clears selection", func(t *testing.T) {
		w := newTestWizard(&fakeStore{}, nil)
		if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
			t.Fatal(err)
		}
		if err := w.Back(); err != nil {
			t.Fatal(err)
		}
		if w.Step() != StepMode {
			t.Errorf("expected mode step, got %q", w.Step())
		}
		if w.Mode() != "" {
			t.Error("going back should drop the mode selection")
		}
	})

	t.Run("validate back to upload drops documents", func(t *testing.T) {
		w := newTestWizard(&fakeStore{}, nil)
		if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
			t.Fatal(err)
		}
		if err := w.LoadRecords([]domain.Record{validRecord("a")}); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Validate(ctx); err != nil {
			t.Fatal(err)
		}
		if err := w.Back(); err != nil {
			t.Fatal(err)
		}
		if w.Step() != StepUpload {
			t.Errorf("expected upload step, got %q", w.Step())
		}
		// A fresh upload is required before validating again.
		if _, err := w.Validate(ctx); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("no back from mode", func(t *testing.T) {
		w := newTestWizard(&fakeStore{}, nil)
		if err := w.Back(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("no back from ingest", func(t *testing.T) {
		w := newTestWizard(&fakeStore{}, nil)
		if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
			t.Fatal(err)
		}
		if err := w.LoadRecords([]domain.Record{validRecord("a")}); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Validate(ctx); err != nil {
			t.Fatal(err)
		}
		if err := w.ContinueToIngest(ctx); err != nil {
			t.Fatal(err)
		}
		if err := w.Back(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestWizardReset(t *testing.T) {
	w := newTestWizard(&fakeStore{}, nil)
	ctx := context.Background()

	if err := w.SelectMode(domain.ModeStructured, schema.PharmaceuticalProductsID); err != nil {
		t.Fatal(err)
	}
	if err := w.LoadRecords([]domain.Record{validRecord("a")}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Validate(ctx); err != nil {
		t.Fatal(err)
	}

	w.Reset()

	if w.Step() != StepMode {
		t.Errorf("reset should return to mode selection, got %q", w.Step())
	}
	if w.Mode() != "" || w.Summary() != nil || w.Gate() != nil {
		t.Error("reset should drop all run-scoped state")
	}
}

func TestWizardLoadNamesGuards(t *testing.T) {
	w := newTestWizard(&fakeStore{}, nil)
	if err := w.SelectMode(domain.ModeNaturalLanguage, schema.PharmaceuticalProductsID); err != nil {
		t.Fatal(err)
	}

	if err := w.LoadNames(nil); err == nil {
		t.Error("expected error for empty name list")
	}
	if err := w.LoadNames([]string{"a", "b", "c", "d", "e", "f"}); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("expected ErrBatchTooLarge, got %v", err)
	}
	if err := w.LoadNames([]string{"doliprane 500"}); err != nil {
		t.Fatal(err)
	}
	if w.Step() != StepNLEnrich {
		t.Errorf("expected natural-language enrichment step, got %q", w.Step())
	}
}
