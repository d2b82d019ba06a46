package domain

// Severity classifies a validation finding.
// An error blocks ingestion; a warning is advisory only.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// SchemaField is the pseudo-field used for configuration failures
// (unknown destination index) as opposed to data failures.
const SchemaField = "_schema"

// ValidationError describes a single finding from schema validation.
type ValidationError struct {
	Field      string   `json:"field"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// HasBlockingErrors reports whether any finding carries error severity.
func HasBlockingErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any finding carries warning severity.
func HasWarnings(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityWarning {
			return true
		}
	}
	return false
}
