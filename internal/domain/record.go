package domain

// Record is a pharmaceutical product record as it flows through the pipeline.
// Keys follow the index schema (product_code, product_name, dci, category,
// product_data with nested identity/classification/clinical/rag_metadata).
type Record map[string]interface{}

// GetString returns the string value for key or "" when absent or not a string.
func (r Record) GetString(key string) string {
	if r == nil {
		return ""
	}
	s, _ := r[key].(string)
	return s
}

// GetMap returns the nested object value for key or nil.
func (r Record) GetMap(key string) map[string]interface{} {
	if r == nil {
		return nil
	}
	m, _ := r[key].(map[string]interface{})
	return m
}

// DisplayName returns the best human-readable label for this record.
func (r Record) DisplayName() string {
	if name := r.GetString("product_name"); name != "" {
		return name
	}
	if code := r.GetString("product_code"); code != "" {
		return code
	}
	return "(unnamed)"
}

// Clone returns a deep copy of the record. Used to snapshot original data
// before enrichment or auto-fix mutates the working copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(cloneMap(r))
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
