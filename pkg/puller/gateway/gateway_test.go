package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sguter90/airmaestro/pkg/models"
)

const recordsJSON = `{
  "device": {"mac": "C6:C8:4E:7B:CC:DA", "name": "Aranet4 1A2B3", "interval": 60},
  "status": "ok",
  "records": [
    {"date": "2025-10-26T19:30:00Z", "co2": 612, "temperature": 21.4, "humidity": 44, "pressure": 1013.2},
    {"date": "2025-10-26T20:31:00+01:00", "co2": 618, "temperature": 21.5, "humidity": 44, "pressure": 1013.1}
  ]
}`

func TestPuller_GetProviderType(t *testing.T) {
	if NewPuller().GetProviderType() != "gateway" {
		t.Errorf("Expected provider type 'gateway', got '%s'", NewPuller().GetProviderType())
	}
}

func TestPuller_ValidateConfig(t *testing.T) {
	testCases := []struct {
		name        string
		config      map[string]string
		expectError bool
	}{
		{"valid", map[string]string{"base_url": "http://gateway.local:8080"}, false},
		{"valid with timeout", map[string]string{"base_url": "https://gw", "timeout": "5s"}, false},
		{"missing base url", map[string]string{}, true},
		{"nil config", nil, true},
		{"relative url", map[string]string{"base_url": "gateway.local"}, true},
		{"bad timeout", map[string]string{"base_url": "http://gw", "timeout": "soon"}, true},
	}

	p := NewPuller()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.ValidateConfig(tc.config)
			if tc.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestPuller_Pull(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(recordsJSON))
	}))
	defer server.Close()

	device := models.Device{
		ID:     "2",
		MAC:    "C6:C8:4E:7B:CC:DA",
		Source: ProviderType,
		Config: map[string]string{"base_url": server.URL + "/", "token": "secret"},
	}

	readings, err := NewPuller().Pull(context.Background(), device)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/devices/C6:C8:4E:7B:CC:DA/records") {
		t.Errorf("Unexpected request path %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}

	if len(readings) != 2 {
		t.Fatalf("Expected 2 readings, got %d", len(readings))
	}
	if readings[0].DeviceID != "2" || readings[0].CO2 != 612 || readings[0].Pressure != 1013.2 {
		t.Errorf("Unexpected first reading: %+v", readings[0])
	}
	expected := time.Date(2025, 10, 26, 19, 31, 0, 0, time.UTC)
	if !readings[1].Time.Equal(expected) || readings[1].Time.Location() != time.UTC {
		t.Errorf("Expected %v in UTC, got %v", expected, readings[1].Time)
	}
}

func TestPuller_Pull_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		noMAC  bool
	}{
		{name: "server error", status: http.StatusBadGateway, body: "bluetooth timeout"},
		{name: "invalid json", status: http.StatusOK, body: "{"},
		{name: "error status", status: http.StatusOK, body: `{"status":"not_found","records":[]}`},
		{name: "missing mac", status: http.StatusOK, body: recordsJSON, noMAC: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			device := models.Device{ID: "1", MAC: "DC:5B:74:B8:A3:3E", Config: map[string]string{"base_url": server.URL}}
			if tc.noMAC {
				device.MAC = ""
			}

			if _, err := NewPuller().Pull(context.Background(), device); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestPuller_ClientCache(t *testing.T) {
	p := NewPuller()
	a := p.client(map[string]string{"base_url": "http://gw"})
	b := p.client(map[string]string{"base_url": "http://gw"})
	c := p.client(map[string]string{"base_url": "http://other"})

	if a != b {
		t.Error("Expected the same client for the same gateway")
	}
	if a == c {
		t.Error("Expected a different client for another gateway")
	}
}
