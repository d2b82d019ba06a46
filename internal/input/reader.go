package input

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

// ErrBatchTooLarge is returned when an input batch exceeds the allowed size.
var ErrBatchTooLarge = errors.New("input batch exceeds maximum size")

// ErrUnsupportedFormat is returned when no reader handles the input format.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Reader decodes an uploaded payload into pipeline records.
type Reader interface {
	// Format returns the format identifier handled by this reader.
	Format() string

	// ReadRecords decodes the payload into records.
	// Parameters:
	//   - r: raw payload.
	//   - maxBatch: maximum accepted number of records, 0 for unbounded.
	// Returns:
	//   - []domain.Record: decoded records.
	//   - error: ErrBatchTooLarge when the cap is exceeded, non-nil on
	//     malformed payloads.
	ReadRecords(r io.Reader, maxBatch int) ([]domain.Record, error)
}

// ForFilename selects a reader from the upload's file extension.
func ForFilename(name string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return &JSONReader{}, nil
	case ".csv":
		return &CSVReader{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

func checkBatchSize(count, maxBatch int) error {
	if maxBatch > 0 && count > maxBatch {
		return fmt.Errorf("%w: %d records, maximum %d", ErrBatchTooLarge, count, maxBatch)
	}
	return nil
}
