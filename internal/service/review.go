package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
)

// ErrNothingApproved is returned when the gate is asked to continue with no
// approved document.
var ErrNothingApproved = fmt.Errorf("no approved document to continue with")

// ReviewCounts summarizes the gate state.
type ReviewCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ReviewGate holds AI-enriched documents until a human has decided each one.
// Decisions are terminal: once approved or rejected, a document cannot move
// again.
type ReviewGate struct {
	mu        sync.Mutex
	docs      []*domain.EnrichedDocument
	heldBack  []*domain.ProcessedDocument
	validator *schema.Validator
	indexID   string
	logger    *logger.Logger
}

// NewReviewGate creates a gate over the enriched documents destined for the
// given index.
func NewReviewGate(docs []*domain.EnrichedDocument, validator *schema.Validator, indexID string, log *logger.Logger) *ReviewGate {
	return &ReviewGate{
		docs:      docs,
		validator: validator,
		indexID:   indexID,
		logger:    log,
	}
}

func (g *ReviewGate) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, g.logger)
}

// Documents returns the gated documents in submission order.
func (g *ReviewGate) Documents() []*domain.EnrichedDocument {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*domain.EnrichedDocument, len(g.docs))
	copy(out, g.docs)
	return out
}

// Counts returns the current decision tally.
func (g *ReviewGate) Counts() ReviewCounts {
	g.mu.Lock()
	defer g.mu.Unlock()
	var c ReviewCounts
	for _, doc := range g.docs {
		switch doc.Status {
		case domain.ReviewPending:
			c.Pending++
		case domain.ReviewApproved:
			c.Approved++
		case domain.ReviewRejected:
			c.Rejected++
		}
	}
	return c
}

// Approve marks a pending document as approved.
func (g *ReviewGate) Approve(docID string) error {
	return g.decide(docID, domain.ReviewApproved)
}

// Reject marks a pending document as rejected.
func (g *ReviewGate) Reject(docID string) error {
	return g.decide(docID, domain.ReviewRejected)
}

func (g *ReviewGate) decide(docID string, status domain.ReviewStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, doc := range g.docs {
		if doc.ID != docID {
			continue
		}
		if doc.Status != domain.ReviewPending {
			return fmt.Errorf("document %s already %s", docID, doc.Status)
		}
		doc.Status = status
		return nil
	}
	return fmt.Errorf("document %s not found", docID)
}

// ApproveAllPending approves every still-pending document and returns how
// many changed. Already-decided documents are untouched, so calling it twice
// is harmless.
func (g *ReviewGate) ApproveAllPending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	approved := 0
	for _, doc := range g.docs {
		if doc.Status == domain.ReviewPending {
			doc.Status = domain.ReviewApproved
			approved++
		}
	}
	return approved
}

// Continue converts the approved documents into ingestion-ready processed
// documents, re-validating each enriched record against the destination
// schema. Schema conformance stays authoritative: an approved document that
// fails re-validation is held back for remediation, never handed onward.
// Document IDs are preserved across the conversion so review decisions stay
// traceable into ingestion results.
func (g *ReviewGate) Continue(ctx context.Context) ([]*domain.ProcessedDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []*domain.ProcessedDocument
	approved := 0
	g.heldBack = nil
	for _, doc := range g.docs {
		if doc.Status != domain.ReviewApproved {
			continue
		}
		approved++

		findings := g.validator.Validate(doc.EnrichedData, g.indexID)
		processed := &domain.ProcessedDocument{
			ID:                   doc.ID,
			OriginalData:         doc.OriginalData,
			ProcessedData:        doc.EnrichedData,
			ValidationErrors:     findings,
			EnrichmentStatus:     domain.EnrichmentCompleted,
			HumanReviewRequired:  true,
			HumanReviewCompleted: true,
		}
		if processed.HasErrors() {
			g.log(ctx).WithFields(logger.Fields{
				logger.FieldDocID: doc.ID,
				logger.FieldCount: len(findings),
			}).Warn("Approved document fails schema validation, held back")
			g.heldBack = append(g.heldBack, processed)
			continue
		}
		processed.SearchableText = schema.SearchableText(doc.EnrichedData)
		out = append(out, processed)
	}

	if len(out) == 0 {
		if approved > 0 {
			return nil, fmt.Errorf("every approved document fails schema validation")
		}
		return nil, ErrNothingApproved
	}
	return out, nil
}

// ValidationFailures returns the approved documents the last Continue held
// back because their enriched data no longer conforms to the schema.
func (g *ReviewGate) ValidationFailures() []*domain.ProcessedDocument {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*domain.ProcessedDocument, len(g.heldBack))
	copy(out, g.heldBack)
	return out
}
