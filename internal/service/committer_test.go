package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
)

type ingestedCall struct {
	indexID        string
	searchableText string
}

// fakeStore records ingestion calls and fails the product names listed in
// failOn.
type fakeStore struct {
	calls   []ingestedCall
	failOn  map[string]bool
	perCall func()
}

func (f *fakeStore) IngestDocument(ctx context.Context, indexID string, record domain.Record, searchableText string) (string, error) {
	if f.perCall != nil {
		f.perCall()
	}
	name := record.GetString("product_name")
	if f.failOn[name] {
		return "", fmt.Errorf("vector store unavailable")
	}
	f.calls = append(f.calls, ingestedCall{indexID: indexID, searchableText: searchableText})
	return fmt.Sprintf("point-%d", len(f.calls)), nil
}

func (f *fakeStore) GetDocumentCount(ctx context.Context, indexID string) (int64, error) {
	return int64(len(f.calls)), nil
}

func (f *fakeStore) GetDocuments(ctx context.Context, indexID, search string, limit, offset int) ([]domain.StoredDocument, error) {
	return nil, nil
}

func ingestableDoc(id, name string) *domain.ProcessedDocument {
	return &domain.ProcessedDocument{
		ID: id,
		ProcessedData: domain.Record{
			"product_code": "code_" + id,
			"product_name": name,
			"dci":          "molécule",
		},
		SearchableText: name + " | molécule",
	}
}

func TestIngestBatchAllSucceed(t *testing.T) {
	store := &fakeStore{}
	s := NewCommitService(store, NewPacer(0), testLogger())
	docs := []*domain.ProcessedDocument{
		ingestableDoc("d1", "DOLIPRANE"),
		ingestableDoc("d2", "ASPIRINE"),
	}

	summary := s.IngestBatch(context.Background(), docs, "pharmaceutical_products", nil)

	if summary.Phase != domain.IngestionCompleted {
		t.Errorf("phase: got %q, want %q", summary.Phase, domain.IngestionCompleted)
	}
	if summary.Total != 2 || summary.Succeeded != 2 || summary.Failed != 0 {
		t.Errorf("unexpected tallies: %+v", summary)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(summary.Results))
	}
	if summary.Results[0].InsertedID == "" {
		t.Error("successful result should carry the inserted ID")
	}
	if store.calls[0].indexID != "pharmaceutical_products" {
		t.Errorf("unexpected index ID: %q", store.calls[0].indexID)
	}
}

func TestIngestBatchPartialFailure(t *testing.T) {
	store := &fakeStore{failOn: map[string]bool{"ASPIRINE": true}}
	s := NewCommitService(store, NewPacer(0), testLogger())
	docs := []*domain.ProcessedDocument{
		ingestableDoc("d1", "DOLIPRANE"),
		ingestableDoc("d2", "ASPIRINE"),
		ingestableDoc("d3", "SPASFON"),
	}

	summary := s.IngestBatch(context.Background(), docs, "pharmaceutical_products", nil)

	if summary.Phase != domain.IngestionError {
		t.Errorf("phase after a failure: got %q, want %q", summary.Phase, domain.IngestionError)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("unexpected tallies: %+v", summary)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("a failed item must not stop the batch: got %d results", len(summary.Results))
	}

	failures := summary.Failures()
	if len(failures) != 1 || failures[0].DocID != "d2" {
		t.Errorf("unexpected failures: %+v", failures)
	}
	if failures[0].Error == "" {
		t.Error("failure should carry the store error text")
	}
}

func TestIngestBatchRecomputesSearchableText(t *testing.T) {
	store := &fakeStore{}
	s := NewCommitService(store, NewPacer(0), testLogger())

	doc := ingestableDoc("d1", "DOLIPRANE")
	doc.SearchableText = ""
	want := schema.SearchableText(doc.ProcessedData)

	s.IngestBatch(context.Background(), []*domain.ProcessedDocument{doc}, "pharmaceutical_products", nil)

	if len(store.calls) != 1 {
		t.Fatalf("expected 1 store call, got %d", len(store.calls))
	}
	if store.calls[0].searchableText != want {
		t.Errorf("searchable text: got %q, want %q", store.calls[0].searchableText, want)
	}
}

func TestIngestBatchRefusesErrorCarryingDocuments(t *testing.T) {
	store := &fakeStore{}
	s := NewCommitService(store, NewPacer(0), testLogger())

	broken := &domain.ProcessedDocument{
		ID:            "d-broken",
		ProcessedData: domain.Record{"product_name": "INCOMPLET"},
		ValidationErrors: []domain.ValidationError{{
			Field:    "product_code",
			Message:  `required field "product_code" is missing`,
			Severity: domain.SeverityError,
		}},
	}
	docs := []*domain.ProcessedDocument{broken, ingestableDoc("d-ok", "DOLIPRANE")}

	summary := s.IngestBatch(context.Background(), docs, "pharmaceutical_products", nil)

	if len(store.calls) != 1 {
		t.Fatalf("the broken document must never reach the store: got %d store calls", len(store.calls))
	}
	if summary.Failed != 1 || summary.Succeeded != 1 {
		t.Errorf("unexpected tallies: %+v", summary)
	}
	if summary.Phase != domain.IngestionError {
		t.Errorf("phase: got %q, want %q", summary.Phase, domain.IngestionError)
	}
	if summary.Results[0].Success || summary.Results[0].Error == "" {
		t.Errorf("broken document should be recorded as a failure: %+v", summary.Results[0])
	}
}

func TestIngestBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &fakeStore{perCall: cancel}
	s := NewCommitService(store, NewPacer(0), testLogger())
	docs := []*domain.ProcessedDocument{
		ingestableDoc("d1", "DOLIPRANE"),
		ingestableDoc("d2", "ASPIRINE"),
	}

	summary := s.IngestBatch(ctx, docs, "pharmaceutical_products", nil)

	if summary.Phase != domain.IngestionError {
		t.Errorf("canceled run should end in error phase, got %q", summary.Phase)
	}
	if len(summary.Results) != 1 {
		t.Errorf("cancellation lands between items: expected 1 result, got %d", len(summary.Results))
	}
	if summary.Succeeded != 1 {
		t.Errorf("the item already written stays written: got %d succeeded", summary.Succeeded)
	}
}
