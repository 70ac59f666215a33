package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sguter90/airmaestro/pkg/models"
)

var ts = time.Date(2025, 10, 26, 10, 9, 0, 0, time.UTC)

func ptr(f float64) *float64 { return &f }

func sampleRecords() []models.DifferenceRecord {
	return []models.DifferenceRecord{
		{Time: ts, DeviceID: "2", Variable: models.VariableCO2, ReferenceMean: 420, WindowCount: 5, AbsoluteDifference: 5, RelativeDifferencePercent: ptr(5.0 / 420 * 100)},
		{Time: ts, DeviceID: "3", Variable: models.VariableCO2, ReferenceMean: 0, WindowCount: 5, AbsoluteDifference: 3},
	}
}

func TestFlatten(t *testing.T) {
	table, err := Flatten(sampleRecords())
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", table.Len())
	}
	if table.Rows[0].Device != "2" || table.Rows[1].Device != "3" {
		t.Errorf("Expected record order to be preserved, got %+v", table.Rows)
	}
	if table.Rows[1].RelativeDifferencePercent != nil {
		t.Error("Expected nil relative difference to survive flattening")
	}
}

func TestFlatten_Empty(t *testing.T) {
	table, err := Flatten(nil)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d rows", table.Len())
	}
}

func TestFlatten_Malformed(t *testing.T) {
	testCases := []struct {
		name     string
		record   models.DifferenceRecord
		expected error
	}{
		{"no device", models.DifferenceRecord{Time: ts, Variable: models.VariableCO2}, errMissingDevice},
		{"no variable", models.DifferenceRecord{Time: ts, DeviceID: "2"}, errMissingVariable},
		{"no time", models.DifferenceRecord{DeviceID: "2", Variable: models.VariableCO2}, errMissingTime},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Flatten([]models.DifferenceRecord{tc.record})
			if !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestTable_WriteCSV(t *testing.T) {
	table, _ := Flatten(sampleRecords())

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}
	for i, col := range Columns {
		if rows[0][i] != col {
			t.Errorf("Expected column %q, got %q", col, rows[0][i])
		}
	}
	if rows[1][0] != "2025-10-26T10:09:00Z" {
		t.Errorf("Unexpected time cell %q", rows[1][0])
	}
	if rows[1][3] != "5" {
		t.Errorf("Expected absolute difference 5, got %q", rows[1][3])
	}
	if rows[1][4] == "" {
		t.Error("Expected relative difference cell")
	}
	if rows[2][4] != "" {
		t.Errorf("Expected empty relative difference cell, got %q", rows[2][4])
	}
}

func TestTable_WriteJSON(t *testing.T) {
	table, _ := Flatten(sampleRecords())

	var buf bytes.Buffer
	if err := table.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(decoded.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(decoded.Rows))
	}
	if decoded.Rows[1]["relative_difference_percent"] != nil {
		t.Errorf("Expected null relative difference, got %v", decoded.Rows[1]["relative_difference_percent"])
	}
}
