package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sguter90/airmaestro/pkg/models"
)

// Columns of the long-form difference table
var Columns = []string{
	"Time",
	"Device",
	"Variable",
	"Absolute Difference",
	"Relative Difference (%)",
}

// Row is one line of the difference table
type Row struct {
	Time                      time.Time       `json:"time"`
	Device                    string          `json:"device"`
	Variable                  models.Variable `json:"variable"`
	AbsoluteDifference        float64         `json:"absolute_difference"`
	RelativeDifferencePercent *float64        `json:"relative_difference_percent"`
}

// Table is the long-form difference table
type Table struct {
	Rows []Row `json:"rows"`
}

var (
	errMissingDevice   = errors.New("record has no device")
	errMissingVariable = errors.New("record has no variable")
	errMissingTime     = errors.New("record has no time")
)

// Flatten maps difference records into table rows, preserving order
func Flatten(records []models.DifferenceRecord) (*Table, error) {
	table := &Table{Rows: make([]Row, 0, len(records))}

	for i, r := range records {
		switch {
		case r.DeviceID == "":
			return nil, fmt.Errorf("record %d: %w", i, errMissingDevice)
		case r.Variable == "":
			return nil, fmt.Errorf("record %d: %w", i, errMissingVariable)
		case r.Time.IsZero():
			return nil, fmt.Errorf("record %d: %w", i, errMissingTime)
		}

		table.Rows = append(table.Rows, Row{
			Time:                      r.Time.UTC(),
			Device:                    r.DeviceID,
			Variable:                  r.Variable,
			AbsoluteDifference:        r.AbsoluteDifference,
			RelativeDifferencePercent: r.RelativeDifferencePercent,
		})
	}

	return table, nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// WriteCSV writes the table with a header row. An undefined relative
// difference is written as an empty cell.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}

	for _, row := range t.Rows {
		relative := ""
		if row.RelativeDifferencePercent != nil {
			relative = strconv.FormatFloat(*row.RelativeDifferencePercent, 'f', -1, 64)
		}
		record := []string{
			row.Time.Format(time.RFC3339),
			row.Device,
			string(row.Variable),
			strconv.FormatFloat(row.AbsoluteDifference, 'f', -1, 64),
			relative,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the table as a JSON document
func (t *Table) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
