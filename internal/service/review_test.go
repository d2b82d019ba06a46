package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
)

func enrichedDoc(id string, data domain.Record) *domain.EnrichedDocument {
	return &domain.EnrichedDocument{
		ID:           id,
		OriginalData: domain.Record{"product_name": data.GetString("product_name")},
		EnrichedData: data,
		Status:       domain.ReviewPending,
	}
}

func newTestGate(docs ...*domain.EnrichedDocument) *ReviewGate {
	validator := schema.NewValidator(schema.NewRegistry(nil))
	return NewReviewGate(docs, validator, schema.PharmaceuticalProductsID, testLogger())
}

func completeRecord(name string) domain.Record {
	return domain.Record{
		"product_code": "code_" + name,
		"product_name": "PRODUIT " + name,
		"dci":          "molécule " + name,
	}
}

func TestReviewDecisionsAreTerminal(t *testing.T) {
	gate := newTestGate(enrichedDoc("d1", completeRecord("a")))

	if err := gate.Approve("d1"); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if err := gate.Reject("d1"); err == nil {
		t.Error("rejecting an approved document should fail")
	}
	if err := gate.Approve("d1"); err == nil {
		t.Error("re-approving an approved document should fail")
	}

	counts := gate.Counts()
	if counts.Approved != 1 || counts.Pending != 0 || counts.Rejected != 0 {
		t.Errorf("unexpected counts after terminal decision: %+v", counts)
	}
}

func TestReviewUnknownDocument(t *testing.T) {
	gate := newTestGate(enrichedDoc("d1", completeRecord("a")))

	if err := gate.Approve("missing"); err == nil {
		t.Error("approving an unknown document should fail")
	}
}

func TestApproveAllPendingIdempotence(t *testing.T) {
	gate := newTestGate(
		enrichedDoc("d1", completeRecord("a")),
		enrichedDoc("d2", completeRecord("b")),
	)
	if err := gate.Reject("d2"); err != nil {
		t.Fatal(err)
	}

	if got := gate.ApproveAllPending(); got != 1 {
		t.Errorf("first approve-all: got %d, want 1", got)
	}
	if got := gate.ApproveAllPending(); got != 0 {
		t.Errorf("second approve-all: got %d, want 0", got)
	}

	counts := gate.Counts()
	if counts.Approved != 1 || counts.Rejected != 1 {
		t.Errorf("approve-all must not touch decided documents: %+v", counts)
	}
}

func TestContinueRequiresApprovals(t *testing.T) {
	gate := newTestGate(enrichedDoc("d1", completeRecord("a")))

	_, err := gate.Continue(context.Background())
	if !errors.Is(err, ErrNothingApproved) {
		t.Errorf("expected ErrNothingApproved, got %v", err)
	}

	if err := gate.Reject("d1"); err != nil {
		t.Fatal(err)
	}
	if _, err := gate.Continue(context.Background()); !errors.Is(err, ErrNothingApproved) {
		t.Errorf("rejected-only gate should still refuse to continue, got %v", err)
	}
}

func TestContinueConvertsApprovedDocuments(t *testing.T) {
	good := enrichedDoc("d-good", completeRecord("a"))
	skipped := enrichedDoc("d-skip", completeRecord("b"))
	gate := newTestGate(good, skipped)

	if err := gate.Approve("d-good"); err != nil {
		t.Fatal(err)
	}
	if err := gate.Reject("d-skip"); err != nil {
		t.Fatal(err)
	}

	processed, err := gate.Continue(context.Background())
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if len(processed) != 1 {
		t.Fatalf("expected 1 processed document, got %d", len(processed))
	}

	doc := processed[0]
	if doc.ID != "d-good" {
		t.Errorf("document ID must survive the conversion, got %q", doc.ID)
	}
	if !doc.HumanReviewCompleted {
		t.Error("converted document should be marked human-reviewed")
	}
	if doc.EnrichmentStatus != domain.EnrichmentCompleted {
		t.Errorf("unexpected enrichment status %q", doc.EnrichmentStatus)
	}
	if doc.SearchableText == "" {
		t.Error("valid converted document should carry searchable text")
	}
}

func TestContinueHoldsBackInvalidApprovals(t *testing.T) {
	// Approved but the enriched record lost its required fields.
	broken := enrichedDoc("d-broken", domain.Record{"product_name": "INCOMPLET"})
	gate := newTestGate(broken)
	if err := gate.Approve("d-broken"); err != nil {
		t.Fatal(err)
	}

	if _, err := gate.Continue(context.Background()); err == nil {
		t.Fatal("a gate with only invalid approvals must refuse to continue")
	}

	held := gate.ValidationFailures()
	if len(held) != 1 {
		t.Fatalf("expected 1 held-back document, got %d", len(held))
	}
	doc := held[0]
	if doc.ID != "d-broken" {
		t.Errorf("held-back document should keep its ID, got %q", doc.ID)
	}
	if !doc.HasErrors() {
		t.Error("re-validation should surface the missing required fields")
	}
	if doc.SearchableText != "" {
		t.Errorf("held-back document must not get searchable text, got %q", doc.SearchableText)
	}
}

func TestContinueNeverForwardsInvalidApprovals(t *testing.T) {
	good := enrichedDoc("d-good", completeRecord("a"))
	broken := enrichedDoc("d-broken", domain.Record{"product_name": "INCOMPLET"})
	gate := newTestGate(good, broken)
	if err := gate.Approve("d-good"); err != nil {
		t.Fatal(err)
	}
	if err := gate.Approve("d-broken"); err != nil {
		t.Fatal(err)
	}

	processed, err := gate.Continue(context.Background())
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}

	if len(processed) != 1 || processed[0].ID != "d-good" {
		t.Fatalf("only the schema-conforming document may continue, got %+v", processed)
	}
	for _, doc := range processed {
		if doc.HasErrors() {
			t.Errorf("document %s carries blocking errors past the gate", doc.ID)
		}
	}

	held := gate.ValidationFailures()
	if len(held) != 1 || held[0].ID != "d-broken" {
		t.Errorf("broken approval should be held back for remediation, got %+v", held)
	}
}

func TestDocumentsReturnsSubmissionOrder(t *testing.T) {
	gate := newTestGate(
		enrichedDoc("d1", completeRecord("a")),
		enrichedDoc("d2", completeRecord("b")),
		enrichedDoc("d3", completeRecord("c")),
	)

	docs := gate.Documents()
	for i, want := range []string{"d1", "d2", "d3"} {
		if docs[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, docs[i].ID, want)
		}
	}
}
