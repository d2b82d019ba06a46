package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadNames parses the natural-language mode input: one product name per
// line, blank lines and surrounding whitespace ignored, duplicates kept in
// order.
func ReadNames(src io.Reader, maxBatch int) ([]string, error) {
	scanner := bufio.NewScanner(src)

	var names []string
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)

		if maxBatch > 0 && len(names) > maxBatch {
			return nil, fmt.Errorf("%w: maximum %d names", ErrBatchTooLarge, maxBatch)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product names: %w", err)
	}

	return names, nil
}
