package service

import (
	"context"
	"time"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
)

// DocumentStore persists ingestion-ready documents into a searchable index.
type DocumentStore interface {
	IngestDocument(ctx context.Context, indexID string, record domain.Record, searchableText string) (string, error)
	GetDocumentCount(ctx context.Context, indexID string) (int64, error)
	GetDocuments(ctx context.Context, indexID, search string, limit, offset int) ([]domain.StoredDocument, error)
}

// CommitService writes validated documents to the document store, one at a
// time, tolerating per-item failures.
type CommitService struct {
	store  DocumentStore
	pacer  *Pacer
	logger *logger.Logger
}

// NewCommitService creates the ingestion committer.
func NewCommitService(store DocumentStore, pacer *Pacer, log *logger.Logger) *CommitService {
	return &CommitService{store: store, pacer: pacer, logger: log}
}

func (s *CommitService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// IngestBatch commits documents strictly sequentially under the pacer. A
// failed item is recorded and the batch moves on; cancellation between items
// stops the run with whatever completed so far. The summary phase is
// "completed" only when every item succeeded.
func (s *CommitService) IngestBatch(ctx context.Context, docs []*domain.ProcessedDocument, indexID string, onProgress ProgressFunc) *domain.IngestionSummary {
	summary := &domain.IngestionSummary{
		Total:   len(docs),
		Phase:   domain.IngestionCompleted,
		Results: make([]domain.IngestionResult, 0, len(docs)),
	}

	start := time.Now()
	total := len(docs)

	for i, doc := range docs {
		if err := s.pacer.Wait(ctx); err != nil {
			s.log(ctx).WithError(err).Warn("Ingestion batch canceled")
			summary.Phase = domain.IngestionError
			break
		}

		name := doc.ProcessedData.DisplayName()
		if onProgress != nil {
			onProgress(i, total, name)
		}

		result := domain.IngestionResult{DocID: doc.ID, ProductName: name}

		// Schema conformance is authoritative up to the last moment: a
		// document carrying blocking errors is never written.
		if doc.HasErrors() {
			result.Error = "document has blocking validation errors"
			summary.Failed++
			summary.Phase = domain.IngestionError
			summary.Results = append(summary.Results, result)
			s.log(ctx).WithFields(logger.Fields{
				logger.FieldDocID:   doc.ID,
				logger.FieldIndexID: indexID,
			}).Error("Refusing to ingest document with blocking errors")
			continue
		}

		searchableText := doc.SearchableText
		if searchableText == "" {
			searchableText = schema.SearchableText(doc.ProcessedData)
		}

		insertedID, err := s.store.IngestDocument(ctx, indexID, doc.ProcessedData, searchableText)
		if err != nil {
			result.Error = err.Error()
			summary.Failed++
			summary.Phase = domain.IngestionError
			s.log(ctx).WithFields(logger.Fields{
				logger.FieldDocID:   doc.ID,
				logger.FieldIndexID: indexID,
			}).WithError(err).Error("Document ingestion failed")
		} else {
			result.Success = true
			result.InsertedID = insertedID
			summary.Succeeded++
		}

		summary.Results = append(summary.Results, result)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldIndexID:    indexID,
		logger.FieldCount:      summary.Succeeded,
		"failed":               summary.Failed,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("Ingestion batch finished")

	return summary
}
