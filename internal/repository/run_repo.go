package repository

import (
	"context"
	"time"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"gorm.io/gorm"
)

// RunRepository handles pipeline run audit records.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new pipeline run record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *RunRepository) Create(ctx context.Context, run *domain.PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves the current state of a run record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) Update(ctx context.Context, run *domain.PipelineRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// MarkRunning transitions a run to running and stamps its start time.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) MarkRunning(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.PipelineRun{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     domain.RunStatusRunning,
		"started_at": &now,
	}).Error
}

// MarkFinished transitions a run to its terminal status with counts.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
//   - status: terminal status (completed or failed).
//   - ingested: number of documents written.
//   - failed: number of documents that failed.
//   - errorLog: aggregated error text, empty when clean.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) MarkFinished(ctx context.Context, id string, status domain.RunStatus, ingested, failed int, errorLog string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.PipelineRun{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        status,
		"ingested_docs": ingested,
		"failed_docs":   failed,
		"error_log":     errorLog,
		"completed_at":  &now,
	}).Error
}

// GetByID retrieves a run by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - *domain.PipelineRun: run record if found.
//   - error: non-nil if lookup fails.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the most recent runs for an index, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - indexID: destination index, empty for all indexes.
//   - limit: maximum number of rows.
// Returns:
//   - []domain.PipelineRun: matching run records.
//   - error: non-nil if the query fails.
func (r *RunRepository) ListRecent(ctx context.Context, indexID string, limit int) ([]domain.PipelineRun, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if indexID != "" {
		query = query.Where("index_id = ?", indexID)
	}
	var runs []domain.PipelineRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
