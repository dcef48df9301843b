package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/medscrape/medscrape/models"
)

func sampleRecords() []*models.PageRecord {
	return []*models.PageRecord{
		{
			Name:            "Dolo 650 Tablet",
			MRP:             "₹33.6",
			DiscountedPrice: "₹28.56",
			Price:           "₹28.56",
			Quantity:        "15 tablets",
			Image:           "https://res.1mg.com/images/dolo.jpg",
			Manufacturer:    "Micro Labs Ltd",
			Composition:     "Paracetamol (650mg)",
			URL:             "http://example.test/drugs/dolo-650",
			Status:          models.StatusSuccess,
		},
		models.NewErrorRecord("http://example.test/drugs/missing", "Network error: timeout"),
	}
}

func TestCSVWriterColumnOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d, want header + 2 records", len(rows))
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Fatalf("header=%v, want %v", rows[0], Header)
	}
	if rows[1][0] != "Dolo 650 Tablet" || rows[1][9] != "Success" {
		t.Fatalf("record row out of order: %v", rows[1])
	}
	if rows[2][0] != "Error" || rows[2][8] != "http://example.test/drugs/missing" {
		t.Fatalf("error row out of order: %v", rows[2])
	}
}

func TestJSONWriterRecordListDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded []*models.PageRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not a record list: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("records=%d, want 2", len(decoded))
	}
	if decoded[0].Quantity != "15 tablets" {
		t.Fatalf("quantity=%q", decoded[0].Quantity)
	}
	if decoded[1].Name != models.Failed {
		t.Fatalf("error record name=%q, want %q", decoded[1].Name, models.Failed)
	}
}

func TestJSONWriterWriteReplacesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}

	records := sampleRecords()
	if err := writer.Write(records[:1]); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := writer.Write(records); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded []*models.PageRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("records=%d, want the full replacement sequence", len(decoded))
	}
}

func TestDualWriterProducesBothFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	jsonPath := filepath.Join(dir, "out.json")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected output %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("output %s is empty", path)
		}
	}
}
