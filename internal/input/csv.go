package input

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

// CSVReader decodes a batch uploaded as CSV with a header row. Each column
// becomes a flat record field; empty cells are omitted so the validator can
// flag them as missing rather than empty.
type CSVReader struct{}

// Format returns the format identifier.
func (r *CSVReader) Format() string { return "csv" }

// ReadRecords decodes the CSV payload.
func (r *CSVReader) ReadRecords(src io.Reader, maxBatch int) ([]domain.Record, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV payload")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []domain.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(records)+2, err)
		}

		record := domain.Record{}
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			record[header[i]] = cell
		}
		if len(record) == 0 {
			continue
		}
		records = append(records, record)

		if err := checkBatchSize(len(records), maxBatch); err != nil {
			return nil, err
		}
	}

	return records, nil
}
