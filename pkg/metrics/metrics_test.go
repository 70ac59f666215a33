package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveMerge(t *testing.T) {
	m := NewMetrics()

	m.ObserveMerge(42, nil)
	m.ObserveMerge(0, errors.New("db down"))

	if got := testutil.ToFloat64(m.mergeRuns.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected 1 ok merge, got %f", got)
	}
	if got := testutil.ToFloat64(m.mergeRuns.WithLabelValues("error")); got != 1 {
		t.Errorf("Expected 1 failed merge, got %f", got)
	}
	if got := testutil.ToFloat64(m.storedReadings); got != 42 {
		t.Errorf("Expected stored readings gauge 42, got %f", got)
	}
}

func TestObserveAlignment(t *testing.T) {
	m := NewMetrics()

	m.ObserveAlignment(10*time.Millisecond, map[string]int{"CO2 (ppm)": 3, "Humidity (%)": 2})
	m.ObserveFetch("2", 7)

	if got := testutil.ToFloat64(m.differenceRecords.WithLabelValues("CO2 (ppm)")); got != 3 {
		t.Errorf("Expected 3 CO2 records, got %f", got)
	}
	if got := testutil.ToFloat64(m.fetchedReadings.WithLabelValues("2")); got != 7 {
		t.Errorf("Expected 7 fetched readings, got %f", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveMerge(1, nil)
	m.ObserveFetch("1", 1)
	m.ObserveAlignment(time.Second, nil)

	handler := m.InstrumentHandler("/health", http.NotFoundHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected wrapped handler to run, got %d", rec.Code)
	}
}

func TestInstrumentHandlerAndExposition(t *testing.T) {
	m := NewMetrics()

	h := m.InstrumentHandler("/api/v1/devices", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/devices", "418")); got != 1 {
		t.Errorf("Expected one 418 request, got %f", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Error("Expected exposition to contain http_requests_total")
	}
}
