package api

import "time"

// ErrorResponse is the body of failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus represents the API health status
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	User      UserInfo  `json:"user,omitempty"`
	Message   string    `json:"message,omitempty"`
}

type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CompareRequest describes one alignment run.
// Zero fields fall back to the server's defaults.
type CompareRequest struct {
	Reference  string   `json:"reference,omitempty"`
	WindowSize int      `json:"window_size,omitempty"`
	Start      string   `json:"start,omitempty"`
	Variables  string   `json:"variables,omitempty"`
	Devices    []string `json:"devices,omitempty"`
	Save       bool     `json:"save,omitempty"`
}

// FetchResponse reports the outcome of a pull of all devices
type FetchResponse struct {
	StoredReadings int    `json:"stored_readings"`
	Error          string `json:"error,omitempty"`
}
