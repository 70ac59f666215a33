package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogger_WithComponentAndFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	l := New(&buf).WithComponent("ingest").WithFields(map[string]interface{}{"device": "2"})

	l.Info("merged readings")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}

	if entry["component"] != "ingest" {
		t.Errorf("Expected component=ingest, got %v", entry["component"])
	}
	if entry["device"] != "2" {
		t.Errorf("Expected device=2, got %v", entry["device"])
	}
	if entry["message"] != "merged readings" {
		t.Errorf("Expected message, got %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("Expected level=info, got %v", entry["level"])
	}
}

func TestLogger_WithError(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	New(&buf).WithError(errors.New("boom")).Error("persist failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line: %v", err)
	}
	if entry["error"] != "boom" {
		t.Errorf("Expected error=boom, got %v", entry["error"])
	}
}

func TestNop(t *testing.T) {
	// Must not panic or write anywhere
	Nop().WithComponent("x").Info("ignored")
}
