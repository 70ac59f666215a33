package models

import "time"

// Device represents a registered air quality monitor
type Device struct {
	ID        string            `json:"id"`
	MAC       string            `json:"mac"`
	Name      string            `json:"name,omitempty"`
	Source    string            `json:"source"` // "gateway", "csv", ...
	Config    map[string]string `json:"config"`
	Enabled   bool              `json:"enabled"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// DeviceSummary combines a device with statistics about its stored readings
type DeviceSummary struct {
	Device        Device     `json:"device"`
	TotalReadings int        `json:"total_readings"`
	FirstReading  *time.Time `json:"first_reading,omitempty"`
	LastReading   *time.Time `json:"last_reading,omitempty"`
}
