package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sguter90/airmaestro/pkg/models"
)

// ReadingColumns is the persisted column layout of the readings table
var ReadingColumns = []string{
	"Device",
	"MAC",
	"Time",
	string(models.VariableCO2),
	string(models.VariableTemperature),
	string(models.VariableHumidity),
	string(models.VariablePressure),
}

// timeLayouts are accepted when reading persisted timestamps. Naive values
// are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTime parses a persisted timestamp and normalizes it to UTC
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %q", s)
}

// WriteReadingsCSV writes readings with a header row
func WriteReadingsCSV(w io.Writer, readings []models.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReadingColumns); err != nil {
		return err
	}

	for _, r := range readings {
		record := []string{
			r.DeviceID,
			r.MAC,
			r.Time.UTC().Format(time.RFC3339Nano),
			formatFloat(r.CO2),
			formatFloat(r.Temperature),
			formatFloat(r.Humidity),
			formatFloat(r.Pressure),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadReadingsCSV parses readings written by WriteReadingsCSV.
// Columns are matched by header name so extra columns are ignored.
func ReadReadingsCSV(r io.Reader) ([]models.Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.Reading{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = i
	}
	for _, name := range ReadingColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	readings := []models.Reading{}
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			i := columns[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		t, err := ParseTime(field("Time"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		reading := models.Reading{
			DeviceID: field("Device"),
			MAC:      field("MAC"),
			Time:     t,
		}
		for _, v := range models.AllVariables() {
			value, err := strconv.ParseFloat(field(string(v)), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s: %w", line, v, err)
			}
			if err := reading.SetValue(v, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}

		readings = append(readings, reading)
	}

	return readings, nil
}

// CSVStore persists readings in a single CSV file
type CSVStore struct {
	path string
}

// NewCSVStore creates a store backed by the file at path
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Load reads the file. A missing file is the first-run case and yields no readings.
func (s *CSVStore) Load(ctx context.Context) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Reading{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	readings, err := ReadReadingsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return readings, nil
}

// Replace writes readings to a temporary file in the same directory and
// renames it over the previous file
func (s *CSVStore) Replace(ctx context.Context, readings []models.Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFileAtomic(s.path, func(w io.Writer) error {
		return WriteReadingsCSV(w, readings)
	})
}

// ExportCSV writes readings to path, replacing any previous export
func ExportCSV(path string, readings []models.Reading) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteReadingsCSV(w, readings)
	})
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
