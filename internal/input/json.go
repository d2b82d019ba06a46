package input

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

// JSONReader decodes a batch uploaded as a JSON array of objects, or a
// single object treated as a batch of one.
type JSONReader struct{}

// Format returns the format identifier.
func (r *JSONReader) Format() string { return "json" }

// ReadRecords decodes the JSON payload.
func (r *JSONReader) ReadRecords(src io.Reader, maxBatch int) ([]domain.Record, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		// Fall back to a single object
		var single domain.Record
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("payload is not a JSON object or array of objects: %w", err)
		}
		records = []domain.Record{single}
	}

	if err := checkBatchSize(len(records), maxBatch); err != nil {
		return nil, err
	}
	return records, nil
}
