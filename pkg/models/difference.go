package models

import (
	"time"

	"github.com/google/uuid"
)

// DifferenceRecord is the deviation of one non-reference reading from the
// mean of the nearest reference readings
type DifferenceRecord struct {
	Time                      time.Time `json:"time"`
	DeviceID                  string    `json:"device"`
	Variable                  Variable  `json:"variable"`
	ReferenceMean             float64   `json:"reference_mean"`
	WindowCount               int       `json:"window_count"`
	AbsoluteDifference        float64   `json:"absolute_difference"`
	RelativeDifferencePercent *float64  `json:"relative_difference_percent"`
}

// DifferenceReport is a cached run of the alignment engine
type DifferenceReport struct {
	ID              uuid.UUID          `json:"id"`
	ReferenceDevice string             `json:"reference_device"`
	WindowSize      int                `json:"window_size"`
	StartTime       time.Time          `json:"start_time"`
	Variables       []Variable         `json:"variables"`
	CreatedAt       time.Time          `json:"created_at"`
	Records         []DifferenceRecord `json:"records,omitempty"`
}
