package domain

import "time"

// IngestMode selects the pipeline branch chosen at the mode step.
// The mode is fixed for the lifetime of a run.
type IngestMode string

const (
	// ModeStructured validates already-structured records against the schema.
	ModeStructured IngestMode = "structured"
	// ModeAIEnriched completes partial records via the enrichment provider.
	ModeAIEnriched IngestMode = "ai_enriched"
	// ModeNaturalLanguage builds full records from bare product names.
	ModeNaturalLanguage IngestMode = "natural_language"
)

// RunStatus represents the lifecycle status of a persisted pipeline run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineRun is the persisted audit record of one wizard run.
type PipelineRun struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	IndexID       string     `gorm:"type:text;not null;index" json:"index_id"`
	Mode          IngestMode `gorm:"type:text;not null" json:"mode"`
	Status        RunStatus  `gorm:"type:text;default:pending;index" json:"status"`
	TotalDocs     int        `gorm:"default:0" json:"total_docs"`
	IngestedDocs  int        `gorm:"default:0" json:"ingested_docs"`
	FailedDocs    int        `gorm:"default:0" json:"failed_docs"`
	ArchiveKey    string     `gorm:"type:text" json:"archive_key,omitempty"`
	ErrorLog      string     `json:"error_log,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for PipelineRun.
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
