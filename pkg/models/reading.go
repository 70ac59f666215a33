package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Reading represents a single timestamped sample of all tracked variables
// from one device
type Reading struct {
	DeviceID    string    `json:"device"`
	MAC         string    `json:"mac"`
	Time        time.Time `json:"time"`
	CO2         float64   `json:"co2_ppm"`
	Temperature float64   `json:"temperature_c"`
	Humidity    float64   `json:"humidity_pct"`
	Pressure    float64   `json:"pressure_hpa"`
}

// ReadingKey is the identity of a reading within the store
type ReadingKey struct {
	DeviceID string
	Time     time.Time
}

// String renders the key for logs
func (k ReadingKey) String() string {
	return fmt.Sprintf("%s@%s", k.DeviceID, k.Time.Format(time.RFC3339))
}

// NewReading builds a reading with its timestamp normalized to UTC
func NewReading(deviceID, mac string, t time.Time, co2, temperature, humidity, pressure float64) Reading {
	return Reading{
		DeviceID:    deviceID,
		MAC:         mac,
		Time:        t.UTC(),
		CO2:         co2,
		Temperature: temperature,
		Humidity:    humidity,
		Pressure:    pressure,
	}
}

// Key returns the (device, time) identity of the reading.
// Time is normalized to UTC so equal instants in different zones collide.
func (r Reading) Key() ReadingKey {
	return ReadingKey{DeviceID: r.DeviceID, Time: r.Time.UTC()}
}

// Value returns the reading's value for a tracked variable
func (r Reading) Value(v Variable) (float64, bool) {
	switch v {
	case VariableCO2:
		return r.CO2, true
	case VariableTemperature:
		return r.Temperature, true
	case VariableHumidity:
		return r.Humidity, true
	case VariablePressure:
		return r.Pressure, true
	}
	return 0, false
}

// SetValue assigns a value to a tracked variable
func (r *Reading) SetValue(v Variable, value float64) error {
	switch v {
	case VariableCO2:
		r.CO2 = value
	case VariableTemperature:
		r.Temperature = value
	case VariableHumidity:
		r.Humidity = value
	case VariablePressure:
		r.Pressure = value
	default:
		return fmt.Errorf("unknown variable: %q", v)
	}
	return nil
}

// Validate checks that the reading carries an identity and a full, finite set of values
func (r Reading) Validate() error {
	if r.DeviceID == "" {
		return errors.New("reading has no device id")
	}
	if r.Time.IsZero() {
		return fmt.Errorf("reading for device %s has no timestamp", r.DeviceID)
	}
	for _, v := range AllVariables() {
		value, _ := r.Value(v)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("reading %s has invalid %s value", r.Key(), v)
		}
	}
	return nil
}

// ReadingQueryParams holds query parameters for reading queries
type ReadingQueryParams struct {
	DeviceID  string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Order     string
}

// Validate checks if the query parameters are valid
func (p *ReadingQueryParams) Validate() error {
	if p.Limit < 1 || p.Limit > 10000 {
		return fmt.Errorf("limit must be between 1 and 10000")
	}

	if p.Order != "asc" && p.Order != "desc" {
		return fmt.Errorf("invalid order: %s (valid: asc, desc)", p.Order)
	}

	if p.StartTime != nil && p.EndTime != nil && p.EndTime.Before(*p.StartTime) {
		return fmt.Errorf("end time must not be before start time")
	}

	return nil
}
