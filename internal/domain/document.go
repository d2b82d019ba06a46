package domain

// EnrichmentStatus represents the enrichment state of a processed document.
type EnrichmentStatus string

const (
	EnrichmentPending   EnrichmentStatus = "pending"
	EnrichmentCompleted EnrichmentStatus = "completed"
	EnrichmentFailed    EnrichmentStatus = "failed"
)

// ProcessedDocument is the unit flowing through the pipeline toward ingestion.
// OriginalData is an immutable snapshot of the raw input; ProcessedData is the
// current best version, mutated by auto-fix or enrichment; ValidationErrors is
// replaced wholesale on each re-validation.
type ProcessedDocument struct {
	ID                   string            `json:"id"`
	OriginalData         Record            `json:"original_data"`
	ProcessedData        Record            `json:"processed_data"`
	ValidationErrors     []ValidationError `json:"validation_errors"`
	EnrichmentStatus     EnrichmentStatus  `json:"enrichment_status"`
	HumanReviewRequired  bool              `json:"human_review_required"`
	HumanReviewCompleted bool              `json:"human_review_completed,omitempty"`
	// SearchableText is set only when the document has zero blocking errors.
	SearchableText string `json:"searchable_text,omitempty"`
}

// HasErrors reports whether the document carries any blocking validation error.
func (d *ProcessedDocument) HasErrors() bool {
	return HasBlockingErrors(d.ValidationErrors)
}

// HasWarnings reports whether the document carries any advisory warning.
func (d *ProcessedDocument) HasWarnings() bool {
	return HasWarnings(d.ValidationErrors)
}

// Ingestable reports whether the document may be handed to the committer.
func (d *ProcessedDocument) Ingestable() bool {
	return !d.HasErrors()
}

// ReviewStatus is the human review state of an enriched document.
// Approved and rejected are terminal.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Confidence carries per-field confidence scores (0-100) from an enrichment
// call. Failed marks a fully failed enrichment, distinct from a real field.
type Confidence struct {
	PerField map[string]int `json:"per_field"`
	Overall  int            `json:"overall"`
	Failed   bool           `json:"failed"`
}

// Field returns the confidence score for a field, falling back to Overall.
func (c Confidence) Field(name string) int {
	if v, ok := c.PerField[name]; ok {
		return v
	}
	return c.Overall
}

// EnrichedDocument is the enrichment-mode pipeline unit awaiting human review.
type EnrichedDocument struct {
	ID           string       `json:"id"`
	OriginalData Record       `json:"original_data"`
	EnrichedData Record       `json:"enriched_data"`
	Confidence   Confidence   `json:"confidence"`
	Reasoning    []string     `json:"reasoning"`
	Warnings     []string     `json:"warnings"`
	Sources      []string     `json:"sources,omitempty"`
	Status       ReviewStatus `json:"status"`
}
