package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/storage"
)

// ArchiveService snapshots the raw input of a pipeline run into object
// storage before any processing touches it, so every ingested document can
// be traced back to what was actually submitted.
type ArchiveService struct {
	storage storage.ObjectStorage
}

// NewArchiveService creates the raw-input archiver. A nil storage disables
// archival without affecting the pipeline.
func NewArchiveService(store storage.ObjectStorage) *ArchiveService {
	return &ArchiveService{storage: store}
}

// Enabled reports whether archival is configured.
func (s *ArchiveService) Enabled() bool {
	return s != nil && s.storage != nil
}

// ArchiveRecords uploads the raw record batch as JSON and returns the object
// key.
func (s *ArchiveService) ArchiveRecords(ctx context.Context, runID string, records []domain.Record) (string, error) {
	return s.put(ctx, runID, records)
}

// ArchiveNames uploads the raw product-name list as JSON and returns the
// object key.
func (s *ArchiveService) ArchiveNames(ctx context.Context, runID string, names []string) (string, error) {
	return s.put(ctx, runID, names)
}

// Fetch reads back an archived payload by its object key.
func (s *ArchiveService) Fetch(ctx context.Context, key string) ([]byte, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("archival is not configured")
	}

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check archive %s: %w", key, err)
	}
	if !exists {
		return nil, fmt.Errorf("archive %s not found", key)
	}

	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download archive %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", key, err)
	}
	return data, nil
}

// URL returns the storage URL of an archived payload, "" when disabled.
func (s *ArchiveService) URL(key string) string {
	if !s.Enabled() {
		return ""
	}
	return s.storage.GetURL(key)
}

// Remove deletes an archived payload. Used when an operator purges a run.
func (s *ArchiveService) Remove(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete archive %s: %w", key, err)
	}
	return nil
}

func (s *ArchiveService) put(ctx context.Context, runID string, payload interface{}) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode archive payload: %w", err)
	}

	key := fmt.Sprintf("runs/%s/%s.json", time.Now().UTC().Format("2006/01/02"), runID)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", fmt.Errorf("failed to archive run input: %w", err)
	}
	return key, nil
}
