package input

import (
	"errors"
	"strings"
	"testing"
)

func TestForFilename(t *testing.T) {
	testCases := []struct {
		name       string
		filename   string
		wantFormat string
		wantErr    bool
	}{
		{"json", "produits.json", "json", false},
		{"json uppercase extension", "PRODUITS.JSON", "json", false},
		{"csv", "export.csv", "csv", false},
		{"unsupported", "produits.xlsx", "", true},
		{"no extension", "produits", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reader, err := ForFilename(tc.filename)
			if tc.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForFilename(%q): %v", tc.filename, err)
			}
			if reader.Format() != tc.wantFormat {
				t.Errorf("format: got %q, want %q", reader.Format(), tc.wantFormat)
			}
		})
	}
}

func TestJSONReaderArray(t *testing.T) {
	payload := `[
		{"product_name": "DOLIPRANE 500 mg", "dci": "paracétamol"},
		{"product_name": "SPASFON"}
	]`

	records, err := (&JSONReader{}).ReadRecords(strings.NewReader(payload), 10)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].GetString("dci") != "paracétamol" {
		t.Errorf("unexpected dci: %q", records[0].GetString("dci"))
	}
}

func TestJSONReaderSingleObject(t *testing.T) {
	payload := `{"product_name": "DOLIPRANE 500 mg"}`

	records, err := (&JSONReader{}).ReadRecords(strings.NewReader(payload), 10)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("single object should become a batch of one, got %d", len(records))
	}
}

func TestJSONReaderMalformed(t *testing.T) {
	if _, err := (&JSONReader{}).ReadRecords(strings.NewReader("not json"), 10); err == nil {
		t.Error("expected error for malformed payload")
	}
	if _, err := (&JSONReader{}).ReadRecords(strings.NewReader(`["a", "b"]`), 10); err == nil {
		t.Error("expected error for an array of non-objects")
	}
}

func TestJSONReaderBatchCap(t *testing.T) {
	payload := `[{"a": "1"}, {"a": "2"}, {"a": "3"}]`

	_, err := (&JSONReader{}).ReadRecords(strings.NewReader(payload), 2)
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("expected ErrBatchTooLarge, got %v", err)
	}
}

func TestCSVReader(t *testing.T) {
	payload := "product_code,product_name,dci,category\n" +
		"doliprane_500mg,DOLIPRANE 500 mg,paracétamol,antalgique\n" +
		"spasfon_lyoc,SPASFON LYOC,phloroglucinol,\n"

	records, err := (&CSVReader{}).ReadRecords(strings.NewReader(payload), 10)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].GetString("category") != "antalgique" {
		t.Errorf("unexpected category: %q", records[0].GetString("category"))
	}
	// Empty cells are omitted, not stored as "".
	if _, ok := records[1]["category"]; ok {
		t.Error("empty cell should be absent from the record")
	}
}

func TestCSVReaderSkipsEmptyRows(t *testing.T) {
	payload := "product_name,dci\n" +
		",\n" +
		"DOLIPRANE,paracétamol\n"

	records, err := (&CSVReader{}).ReadRecords(strings.NewReader(payload), 10)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("fully empty rows should be skipped, got %d records", len(records))
	}
}

func TestCSVReaderEmptyPayload(t *testing.T) {
	if _, err := (&CSVReader{}).ReadRecords(strings.NewReader(""), 10); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestReadNames(t *testing.T) {
	payload := "doliprane 500\n\n  spasfon lyoc  \n\ndoliprane 500\n"

	names, err := ReadNames(strings.NewReader(payload), 10)
	if err != nil {
		t.Fatalf("ReadNames: %v", err)
	}

	want := []string{"doliprane 500", "spasfon lyoc", "doliprane 500"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestReadNamesBatchCap(t *testing.T) {
	payload := "a\nb\nc\n"

	_, err := ReadNames(strings.NewReader(payload), 2)
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("expected ErrBatchTooLarge, got %v", err)
	}
}
