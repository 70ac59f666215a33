package alignment

import (
	"time"

	"github.com/sguter90/airmaestro/pkg/models"
)

// DefaultWindowSize is the number of nearest reference readings averaged
// for each comparison point
const DefaultWindowSize = 5

// Config holds the parameters of an alignment run
type Config struct {
	ReferenceDevice string
	WindowSize      int
	// StartTime excludes earlier non-reference readings from comparison.
	// The zero value compares everything.
	StartTime time.Time
	// Variables to compare; empty means all tracked variables
	Variables []models.Variable
	// Devices restricts comparison to these ids; empty means every
	// non-reference device
	Devices []string
}

// withDefaults returns a copy with unset fields filled in
func (c Config) withDefaults() Config {
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if len(c.Variables) == 0 {
		c.Variables = models.AllVariables()
	}
	return c
}

// Validate checks the configuration
func (c Config) Validate() error {
	c = c.withDefaults()

	if c.ReferenceDevice == "" {
		return alignmentError(ErrInvalidConfig, "reference device is required")
	}
	if c.WindowSize < 1 {
		return alignmentError(ErrInvalidConfig, "window size must be positive, got %d", c.WindowSize)
	}
	for _, d := range c.Devices {
		if d == c.ReferenceDevice {
			return alignmentError(ErrInvalidConfig, "reference device %q cannot be compared with itself", d)
		}
	}
	for _, v := range c.Variables {
		if !v.IsKnown() {
			return alignmentError(ErrUnknownVariable, "%q", v)
		}
	}
	return nil
}
