package domain

import "testing"

func TestRecordGetString(t *testing.T) {
	r := Record{"product_name": "DOLIPRANE", "count": 3}

	if got := r.GetString("product_name"); got != "DOLIPRANE" {
		t.Errorf("got %q, want DOLIPRANE", got)
	}
	if got := r.GetString("count"); got != "" {
		t.Errorf("non-string value should read as empty, got %q", got)
	}
	if got := r.GetString("missing"); got != "" {
		t.Errorf("missing key should read as empty, got %q", got)
	}

	var nilRecord Record
	if got := nilRecord.GetString("anything"); got != "" {
		t.Errorf("nil record should read as empty, got %q", got)
	}
}

func TestRecordDisplayName(t *testing.T) {
	testCases := []struct {
		name   string
		record Record
		want   string
	}{
		{"product name wins", Record{"product_name": "DOLIPRANE", "product_code": "doliprane_500mg"}, "DOLIPRANE"},
		{"falls back to code", Record{"product_code": "doliprane_500mg"}, "doliprane_500mg"},
		{"nothing usable", Record{"dci": "paracétamol"}, "(unnamed)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.record.DisplayName(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRecordCloneIsDeep(t *testing.T) {
	original := Record{
		"product_name": "DOLIPRANE",
		"product_data": map[string]interface{}{
			"identity": map[string]interface{}{"forme": "comprimé"},
			"tags":     []interface{}{"antalgique"},
		},
	}

	clone := original.Clone()

	clone["product_name"] = "CHANGED"
	clone.GetMap("product_data")["identity"].(map[string]interface{})["forme"] = "gélule"
	clone.GetMap("product_data")["tags"].([]interface{})[0] = "changed"

	if original.GetString("product_name") != "DOLIPRANE" {
		t.Error("top-level mutation leaked into the original")
	}
	identity := original.GetMap("product_data")["identity"].(map[string]interface{})
	if identity["forme"] != "comprimé" {
		t.Error("nested map mutation leaked into the original")
	}
	tags := original.GetMap("product_data")["tags"].([]interface{})
	if tags[0] != "antalgique" {
		t.Error("nested slice mutation leaked into the original")
	}
}
