package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sguter90/airmaestro/pkg/models"
)

// ProviderType is the device source served by this puller
const ProviderType = "csv"

// timeLayouts used by the Aranet4 app export across versions and locales
var timeLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 3:04:05 PM",
	"2/1/2006 15:04:05",
	"2/1/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

type column int

const (
	colTime column = iota
	colCO2
	colTemperature
	colHumidity
	colPressure
	columnCount
)

// Puller imports readings from an Aranet4 app CSV export
type Puller struct{}

// NewPuller creates a new CSV import puller
func NewPuller() *Puller {
	return &Puller{}
}

func (p *Puller) GetProviderType() string {
	return ProviderType
}

func (p *Puller) ValidateConfig(config map[string]string) error {
	if config["path"] == "" {
		return fmt.Errorf("path is required")
	}
	if tz := config["time_zone"]; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid time_zone: %w", err)
		}
	}
	return nil
}

func (p *Puller) Pull(ctx context.Context, device models.Device) ([]models.Reading, error) {
	if err := p.ValidateConfig(device.Config); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc := time.UTC
	if tz := device.Config["time_zone"]; tz != "" {
		loc, _ = time.LoadLocation(tz)
	}

	f, err := os.Open(device.Config["path"])
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	return Parse(f, device, loc)
}

// Parse reads an export. Naive timestamps are interpreted in loc.
func Parse(r io.Reader, device models.Device, loc *time.Location) ([]models.Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.Reading{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index, fahrenheit, err := mapColumns(header)
	if err != nil {
		return nil, err
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
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		var values [columnCount]float64
		var t time.Time
		for c := column(0); c < columnCount; c++ {
			i := index[c]
			if i >= len(record) {
				return nil, fmt.Errorf("line %d: too few fields", line)
			}
			field := strings.TrimSpace(record[i])

			if c == colTime {
				t, err = parseTime(field, loc)
			} else {
				values[c], err = strconv.ParseFloat(strings.ReplaceAll(field, ",", "."), 64)
			}
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}

		temperature := values[colTemperature]
		if fahrenheit {
			temperature = (temperature - 32) * 5 / 9
		}

		readings = append(readings, models.NewReading(
			device.ID,
			device.MAC,
			t,
			values[colCO2],
			temperature,
			values[colHumidity],
			values[colPressure],
		))
	}

	return readings, nil
}

func mapColumns(header []string) ([columnCount]int, bool, error) {
	var index [columnCount]int
	for i := range index {
		index[i] = -1
	}
	fahrenheit := false

	for i, name := range header {
		n := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		switch {
		case strings.HasPrefix(n, "time") || strings.HasPrefix(n, "date"):
			index[colTime] = i
		case strings.Contains(n, "carbon dioxide") || strings.Contains(n, "co2"):
			index[colCO2] = i
		case strings.Contains(n, "temperature"):
			index[colTemperature] = i
			fahrenheit = strings.Contains(n, "°f") || strings.Contains(n, "(f)")
		case strings.Contains(n, "humidity"):
			index[colHumidity] = i
		case strings.Contains(n, "pressure"):
			if !strings.Contains(n, "hpa") && !strings.Contains(n, "mbar") {
				return index, false, fmt.Errorf("unsupported pressure unit in column %q", name)
			}
			index[colPressure] = i
		}
	}

	names := [columnCount]string{"time", "carbon dioxide", "temperature", "humidity", "pressure"}
	for c, i := range index {
		if i < 0 {
			return index, false, fmt.Errorf("missing %s column", names[c])
		}
	}

	return index, fahrenheit, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time: %q", s)
}
