package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("WINDOW_SIZE", "")
	t.Setenv("REFERENCE_DEVICE", "")
	t.Setenv("FETCH_INTERVAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected Load to succeed: %v", err)
	}

	if cfg.Store.Backend != "postgres" {
		t.Errorf("Expected default backend postgres, got %s", cfg.Store.Backend)
	}
	if cfg.Comparison.WindowSize != 5 {
		t.Errorf("Expected default window size 5, got %d", cfg.Comparison.WindowSize)
	}
	if cfg.Comparison.ReferenceDevice != "1" {
		t.Errorf("Expected default reference device 1, got %s", cfg.Comparison.ReferenceDevice)
	}
	if cfg.Fetch.Interval != 0 {
		t.Errorf("Expected background pulling disabled by default, got %v", cfg.Fetch.Interval)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "csv")
	t.Setenv("STORE_CSV_PATH", "/tmp/readings.csv")
	t.Setenv("WINDOW_SIZE", "3")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SERVER_READ_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected Load to succeed: %v", err)
	}

	if cfg.Store.Backend != "csv" || cfg.Store.CSVPath != "/tmp/readings.csv" {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if cfg.Comparison.WindowSize != 3 {
		t.Errorf("Expected window size 3, got %d", cfg.Comparison.WindowSize)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected allowed origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.ReadTimeout != 2*time.Second {
		t.Errorf("Expected read timeout 2s, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		value    string
		errorMsg string
	}{
		{"Non-numeric window", "WINDOW_SIZE", "five", "invalid WINDOW_SIZE"},
		{"Zero window", "WINDOW_SIZE", "0", "WINDOW_SIZE must be at least 1"},
		{"Unknown backend", "STORE_BACKEND", "sqlite", "invalid STORE_BACKEND"},
		{"Bad bool", "LOG_ENABLE_CALLER", "maybe", "invalid LOG_ENABLE_CALLER"},
		{"Bad format", "LOG_FORMAT", "xml", "invalid LOG_FORMAT"},
		{"Bad fetch interval", "FETCH_INTERVAL", "often", "invalid FETCH_INTERVAL"},
		{"Negative fetch interval", "FETCH_INTERVAL", "-1m", "FETCH_INTERVAL must not be negative"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.errorMsg) {
				t.Errorf("Expected error containing %q, got %q", tc.errorMsg, err.Error())
			}
		})
	}
}

func TestParseStartTime(t *testing.T) {
	testCases := []struct {
		input       string
		expected    time.Time
		expectError bool
	}{
		{"", time.Time{}, false},
		{"2025-10-26 19:30", time.Date(2025, 10, 26, 19, 30, 0, 0, time.UTC), false},
		{"2025-10-26 19:30:15", time.Date(2025, 10, 26, 19, 30, 15, 0, time.UTC), false},
		{"2025-10-26", time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC), false},
		{"2025-10-26T20:30:00+01:00", time.Date(2025, 10, 26, 19, 30, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseStartTime(tc.input)
			if tc.expectError {
				if err == nil {
					t.Errorf("Expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", DBName: "air", SSLMode: "require"}

	expected := "host=db port=5433 user=u password=p dbname=air sslmode=require"
	if d.DSN() != expected {
		t.Errorf("Expected %q, got %q", expected, d.DSN())
	}
}
