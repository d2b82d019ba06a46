package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

// Validator checks records against the field schema of a destination index.
type Validator struct {
	registry *Registry

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewValidator creates a validator bound to a schema registry.
func NewValidator(registry *Registry) *Validator {
	return &Validator{
		registry: registry,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Validate checks a record against the index schema and returns every finding.
// An unknown index yields a single fatal finding on the _schema pseudo-field:
// that is a configuration failure, not a data failure.
func (v *Validator) Validate(record domain.Record, indexID string) []domain.ValidationError {
	indexSchema, ok := v.registry.Get(indexID)
	if !ok {
		return []domain.ValidationError{{
			Field:    domain.SchemaField,
			Message:  fmt.Sprintf("unknown index %q: no schema registered", indexID),
			Severity: domain.SeverityError,
		}}
	}

	// Fields are walked in sorted order so repeated validation of the same
	// record yields an identical finding list.
	names := make([]string, 0, len(indexSchema.Fields))
	for name := range indexSchema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []domain.ValidationError
	for _, name := range names {
		spec := indexSchema.Fields[name]
		findings = append(findings, v.validateField(record, name, spec)...)
	}
	return findings
}

func (v *Validator) validateField(record domain.Record, name string, spec domain.FieldSpec) []domain.ValidationError {
	value, present := record[name]
	if str, ok := value.(string); ok && str == "" {
		present = false
	}

	if !present {
		if spec.Required {
			return []domain.ValidationError{{
				Field:      name,
				Message:    fmt.Sprintf("required field %q is missing", name),
				Severity:   domain.SeverityError,
				Suggestion: spec.Description,
			}}
		}
		if spec.Recommended {
			return []domain.ValidationError{{
				Field:      name,
				Message:    fmt.Sprintf("recommended field %q is missing", name),
				Severity:   domain.SeverityWarning,
				Suggestion: spec.Description,
			}}
		}
		return nil
	}

	switch spec.Type {
	case domain.FieldTypeString:
		str, ok := value.(string)
		if !ok {
			return []domain.ValidationError{{
				Field:    name,
				Message:  fmt.Sprintf("field %q must be a string", name),
				Severity: domain.SeverityError,
			}}
		}
		return v.validateString(name, str, spec)
	case domain.FieldTypeObject:
		if _, ok := value.(map[string]interface{}); !ok {
			return []domain.ValidationError{{
				Field:    name,
				Message:  fmt.Sprintf("field %q must be an object", name),
				Severity: domain.SeverityError,
			}}
		}
	case domain.FieldTypeArray:
		switch value.(type) {
		case []interface{}, []string:
		default:
			return []domain.ValidationError{{
				Field:    name,
				Message:  fmt.Sprintf("field %q must be an array", name),
				Severity: domain.SeverityError,
			}}
		}
	}
	return nil
}

func (v *Validator) validateString(name, str string, spec domain.FieldSpec) []domain.ValidationError {
	var findings []domain.ValidationError

	length := len([]rune(str))
	if spec.MinLength > 0 && length < spec.MinLength {
		findings = append(findings, domain.ValidationError{
			Field:    name,
			Message:  fmt.Sprintf("field %q is too short: %d chars, minimum %d", name, length, spec.MinLength),
			Severity: domain.SeverityError,
		})
	}
	if spec.MaxLength > 0 && length > spec.MaxLength {
		findings = append(findings, domain.ValidationError{
			Field:    name,
			Message:  fmt.Sprintf("field %q is too long: %d chars, maximum %d", name, length, spec.MaxLength),
			Severity: domain.SeverityError,
		})
	}

	// Pattern mismatch is advisory: a malformed-but-present identifier is
	// tolerated with a nudge, an absent one is not.
	if spec.Pattern != "" {
		if re := v.compile(spec.Pattern); re != nil && !re.MatchString(str) {
			findings = append(findings, domain.ValidationError{
				Field:      name,
				Message:    fmt.Sprintf("field %q does not match expected pattern %s", name, spec.Pattern),
				Severity:   domain.SeverityWarning,
				Suggestion: spec.Description,
			})
		}
	}
	return findings
}

// compile returns the cached regexp for a pattern, or nil for an invalid one.
func (v *Validator) compile(pattern string) *regexp.Regexp {
	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	v.patterns[pattern] = re
	return re
}

// ValidateBatch validates a batch of records, assigning a fresh document ID to
// each. The searchable-text projection is computed only for documents with
// zero blocking errors: partially-invalid data never becomes searchable.
func (v *Validator) ValidateBatch(records []domain.Record, indexID string) []*domain.ProcessedDocument {
	docs := make([]*domain.ProcessedDocument, 0, len(records))
	for _, record := range records {
		findings := v.Validate(record, indexID)
		doc := &domain.ProcessedDocument{
			ID:               uuid.New().String(),
			OriginalData:     record.Clone(),
			ProcessedData:    record,
			ValidationErrors: findings,
			EnrichmentStatus: domain.EnrichmentCompleted,
		}
		doc.HumanReviewRequired = doc.HasWarnings() && !doc.HasErrors()
		if !doc.HasErrors() {
			doc.SearchableText = SearchableText(record)
		}
		docs = append(docs, doc)
	}
	return docs
}

// productDataSections is the fixed traversal order of nested product_data
// sections when building searchable text. The ordering is part of the store
// contract: the text side of hybrid search ranks on it.
var productDataSections = []string{"identity", "classification", "clinical", "rag_metadata"}

// SearchableText builds the deterministic full-text projection of a record:
// product name, DCI and category first, then nested product_data string and
// string-array fields, joined with " | " and skipping empty values.
func SearchableText(record domain.Record) string {
	var parts []string
	appendPart := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	appendPart(record.GetString("product_name"))
	appendPart(record.GetString("dci"))
	appendPart(record.GetString("category"))

	productData := record.GetMap("product_data")
	for _, section := range productDataSections {
		sectionMap, _ := productData[section].(map[string]interface{})
		if sectionMap == nil {
			continue
		}
		keys := make([]string, 0, len(sectionMap))
		for k := range sectionMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch val := sectionMap[k].(type) {
			case string:
				appendPart(val)
			case []string:
				for _, item := range val {
					appendPart(item)
				}
			case []interface{}:
				for _, item := range val {
					if s, ok := item.(string); ok {
						appendPart(s)
					}
				}
			}
		}
	}

	return strings.Join(parts, " | ")
}
