package domain

// IngestionResult records the outcome of a single document write.
type IngestionResult struct {
	DocID       string `json:"doc_id"`
	ProductName string `json:"product_name"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	InsertedID  string `json:"inserted_id,omitempty"`
}

// IngestionPhase is the terminal phase of an ingestion run.
type IngestionPhase string

const (
	// IngestionCompleted means every document was written.
	IngestionCompleted IngestionPhase = "completed"
	// IngestionError means at least one document failed. The run still
	// completes and reports every outcome.
	IngestionError IngestionPhase = "error"
)

// IngestionSummary aggregates per-document results for a run.
type IngestionSummary struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Phase     IngestionPhase    `json:"phase"`
	Results   []IngestionResult `json:"results"`
}

// StoredDocument is a document read back from the document store.
type StoredDocument struct {
	ID             string `json:"id"`
	IndexID        string `json:"index_id"`
	Record         Record `json:"record"`
	SearchableText string `json:"searchable_text"`
}

// Failures returns only the failed results.
func (s *IngestionSummary) Failures() []IngestionResult {
	var out []IngestionResult
	for _, r := range s.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}
