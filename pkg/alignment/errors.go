package alignment

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyReference means the reference device has no readings
	ErrEmptyReference = errors.New("reference series is empty")
	// ErrUnknownVariable means a requested variable is not tracked
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrUnknownDevice means a requested comparison device has no readings
	ErrUnknownDevice = errors.New("unknown device")
	// ErrInvalidConfig means the engine configuration is unusable
	ErrInvalidConfig = errors.New("invalid alignment config")
)

// AlignmentError is returned before any record is produced when the inputs
// cannot be aligned
type AlignmentError struct {
	Reason error
	Detail string
}

func (e *AlignmentError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("alignment failed: %v", e.Reason)
	}
	return fmt.Sprintf("alignment failed: %v: %s", e.Reason, e.Detail)
}

func (e *AlignmentError) Unwrap() error {
	return e.Reason
}

func alignmentError(reason error, format string, args ...interface{}) error {
	return &AlignmentError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
