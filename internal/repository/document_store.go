package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

// Embedder converts searchable text into a dense vector before the write.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentStore writes ingestion-ready records into the Qdrant collection,
// embedding their searchable text on the way in.
type DocumentStore struct {
	qdrant   *QdrantRepository
	embedder Embedder
}

// NewDocumentStore creates a document store over a Qdrant collection.
// Parameters:
//   - qdrant: Qdrant repository bound to the destination collection.
//   - embedder: embedding provider for searchable text.
// Returns:
//   - *DocumentStore: store instance.
func NewDocumentStore(qdrant *QdrantRepository, embedder Embedder) *DocumentStore {
	return &DocumentStore{qdrant: qdrant, embedder: embedder}
}

// IngestDocument embeds and writes one record, returning the stored point ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - indexID: destination index identifier kept in the payload.
//   - record: validated record to store.
//   - searchableText: derived full-text projection, must be non-empty.
// Returns:
//   - string: ID of the stored point.
//   - error: non-nil if embedding or the write fails.
func (s *DocumentStore) IngestDocument(ctx context.Context, indexID string, record domain.Record, searchableText string) (string, error) {
	if searchableText == "" {
		return "", fmt.Errorf("refusing to ingest without searchable text")
	}

	vector, err := s.embedder.Embed(ctx, searchableText)
	if err != nil {
		return "", fmt.Errorf("failed to embed document: %w", err)
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}

	pointID := uuid.New().String()
	payload := &DocPayload{
		IndexID:        indexID,
		ProductCode:    record.GetString("product_code"),
		ProductName:    record.GetString("product_name"),
		DCI:            record.GetString("dci"),
		Category:       record.GetString("category"),
		SearchableText: searchableText,
		RecordJSON:     string(recordJSON),
	}

	if err := s.qdrant.Upsert(ctx, pointID, vector, payload); err != nil {
		return "", err
	}
	return pointID, nil
}

// GetDocumentCount returns how many documents an index holds.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - indexID: index identifier.
// Returns:
//   - int64: stored document count.
//   - error: non-nil if the query fails.
func (s *DocumentStore) GetDocumentCount(ctx context.Context, indexID string) (int64, error) {
	return s.qdrant.Count(ctx, indexID)
}

// GetDocuments lists an index's documents with optional full-text filtering.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - indexID: index identifier.
//   - search: full-text match over searchable text, empty for all.
//   - limit: maximum number of documents.
//   - offset: number of documents to skip.
// Returns:
//   - []domain.StoredDocument: matching documents.
//   - error: non-nil if the query fails.
func (s *DocumentStore) GetDocuments(ctx context.Context, indexID, search string, limit, offset int) ([]domain.StoredDocument, error) {
	points, err := s.qdrant.Scroll(ctx, indexID, search, limit, offset)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.StoredDocument, 0, len(points))
	for _, point := range points {
		doc := domain.StoredDocument{ID: point.ID}
		if point.Payload != nil {
			doc.IndexID = point.Payload.IndexID
			doc.SearchableText = point.Payload.SearchableText
			if point.Payload.RecordJSON != "" {
				var record domain.Record
				if err := json.Unmarshal([]byte(point.Payload.RecordJSON), &record); err == nil {
					doc.Record = record
				}
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
