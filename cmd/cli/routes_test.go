package main

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sguter90/airmaestro/pkg/api"
	"github.com/sguter90/airmaestro/pkg/config"
	"github.com/sguter90/airmaestro/pkg/ingest"
	"github.com/sguter90/airmaestro/pkg/logger"
	"github.com/sguter90/airmaestro/pkg/metrics"
	"github.com/sguter90/airmaestro/pkg/models"
	"github.com/sguter90/airmaestro/pkg/report"
)

const testSecret = "test-secret"

var t0 = time.Date(2025, 10, 26, 10, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			JWTSecret:      testSecret,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Comparison: config.ComparisonConfig{
			ReferenceDevice: "ref",
			WindowSize:      5,
		},
	}
}

func testReadings() []models.Reading {
	return []models.Reading{
		models.NewReading("ref", "", t0, 400, 20, 40, 1000),
		models.NewReading("ref", "", t0.Add(time.Minute), 410, 20, 40, 1000),
		models.NewReading("a", "", t0.Add(30*time.Second), 405, 21, 40, 1000),
		models.NewReading("a", "", t0.Add(90*time.Second), 415, 21, 40, 1000),
	}
}

func newTestRouter(t *testing.T, m *metrics.Metrics) *RouteManager {
	t.Helper()
	rm := NewRouteManager(testConfig(), nil, ingest.NewMemoryStore(testReadings()...), nil, logger.Nop(), m)
	rm.Setup()
	return rm
}

func authHeader(t *testing.T) string {
	t.Helper()
	token, _, err := GenerateJWT(&models.User{ID: uuid.New(), Username: "alice"}, testSecret)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return "Bearer " + token
}

func serve(rm *RouteManager, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	rm.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	rm := newTestRouter(t, nil)

	rec := serve(rm, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rm := newTestRouter(t, metrics.NewMetrics())

	serve(rm, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(rm, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/health"`) {
		t.Error("Expected request metrics labelled with the route template")
	}
}

func TestCorsMiddleware(t *testing.T) {
	rm := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := serve(rm, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected allowed origin to be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = serve(rm, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allow-origin header, got %q", got)
	}

	rec = serve(rm, httptest.NewRequest(http.MethodOptions, "/api/v1/compare", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected preflight to return 204, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	rm := newTestRouter(t, nil)

	otherToken, _, err := GenerateJWT(&models.User{Username: "mallory"}, "other-secret")
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + otherToken, http.StatusUnauthorized},
		{"valid token", authHeader(t), http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := serve(rm, req)
			if rec.Code != tc.code {
				t.Fatalf("Expected %d, got %d", tc.code, rec.Code)
			}
			if tc.code == http.StatusOK {
				var info api.UserInfo
				if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
					t.Fatal(err)
				}
				if info.Username != "alice" {
					t.Errorf("Expected alice, got %s", info.Username)
				}
			}
		})
	}
}

func TestLoginWithoutDatabase(t *testing.T) {
	rm := newTestRouter(t, nil)

	rec := serve(rm, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid body, got %d", rec.Code)
	}

	rec = serve(rm, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"a","password":"b"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without user database, got %d", rec.Code)
	}
}

func postCompare(t *testing.T, rm *RouteManager, query, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compare"+query, r)
	req.Header.Set("Authorization", authHeader(t))
	return serve(rm, req)
}

func TestCompareHandler(t *testing.T) {
	rm := newTestRouter(t, nil)

	rec := postCompare(t, rm, "", `{"window_size":1,"variables":"co2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var table report.Table
	if err := json.NewDecoder(rec.Body).Decode(&table); err != nil {
		t.Fatalf("Failed to decode table: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}

	// equidistant neighbours resolve to the earlier reference reading
	first := table.Rows[0]
	if first.Device != "a" || first.Variable != models.VariableCO2 || first.AbsoluteDifference != 5 {
		t.Errorf("Unexpected first row: %+v", first)
	}
	if first.RelativeDifferencePercent == nil || math.Abs(*first.RelativeDifferencePercent-1.25) > 1e-9 {
		t.Errorf("Expected relative difference 1.25, got %v", first.RelativeDifferencePercent)
	}
}

func TestCompareHandler_Defaults(t *testing.T) {
	rm := newTestRouter(t, nil)

	rec := postCompare(t, rm, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var table report.Table
	if err := json.NewDecoder(rec.Body).Decode(&table); err != nil {
		t.Fatal(err)
	}
	// two readings of device a for each of the four variables
	if len(table.Rows) != 8 {
		t.Errorf("Expected 8 rows, got %d", len(table.Rows))
	}
}

func TestCompareHandler_CSV(t *testing.T) {
	rm := newTestRouter(t, nil)

	rec := postCompare(t, rm, "?format=csv", `{"variables":"co2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != strings.Join(report.Columns, ",") {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if len(lines) != 3 {
		t.Errorf("Expected header and 2 rows, got %d lines", len(lines))
	}
}

func TestCompareHandler_Errors(t *testing.T) {
	rm := newTestRouter(t, nil)

	testCases := []struct {
		name string
		body string
		code int
	}{
		{"invalid body", "{", http.StatusBadRequest},
		{"unknown variable", `{"variables":"radon"}`, http.StatusBadRequest},
		{"invalid start", `{"start":"yesterday"}`, http.StatusBadRequest},
		{"negative window", `{"window_size":-1}`, http.StatusBadRequest},
		{"reference without readings", `{"reference":"nobody"}`, http.StatusUnprocessableEntity},
		{"unknown device", `{"devices":["ghost"]}`, http.StatusUnprocessableEntity},
		{"save without database", `{"save":true}`, http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postCompare(t, rm, "", tc.body)
			if rec.Code != tc.code {
				t.Errorf("Expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCompareHandler_StorageError(t *testing.T) {
	store := ingest.NewMemoryStore()
	store.FailLoad = errors.New("disk gone")
	rm := NewRouteManager(testConfig(), nil, store, nil, logger.Nop(), nil)
	rm.Setup()

	rec := postCompare(t, rm, "", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
}

func TestReadingsHandler(t *testing.T) {
	rm := newTestRouter(t, nil)

	rec := serve(rm, httptest.NewRequest(http.MethodGet, "/api/v1/readings?device=a&order=desc&limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var readings []models.Reading
	if err := json.NewDecoder(rec.Body).Decode(&readings); err != nil {
		t.Fatal(err)
	}
	if len(readings) != 1 || readings[0].CO2 != 415 {
		t.Errorf("Expected latest reading of a, got %+v", readings)
	}

	for _, query := range []string{"?limit=abc", "?limit=0", "?order=sideways", "?start=soon"} {
		rec := serve(rm, httptest.NewRequest(http.MethodGet, "/api/v1/readings"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestDevicesHandlerWithoutRegistry(t *testing.T) {
	rm := newTestRouter(t, nil)

	rec := serve(rm, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var summaries []models.DeviceSummary
	if err := json.NewDecoder(rec.Body).Decode(&summaries); err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 || summaries[0].Device.ID != "a" || summaries[1].Device.ID != "ref" {
		t.Fatalf("Unexpected summaries: %+v", summaries)
	}
	if summaries[0].TotalReadings != 2 || !summaries[0].FirstReading.Equal(t0.Add(30*time.Second)) {
		t.Errorf("Unexpected stats for a: %+v", summaries[0])
	}
}

func TestUnavailableEndpoints(t *testing.T) {
	rm := newTestRouter(t, nil)

	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/fetch"},
		{http.MethodGet, "/api/v1/reports/latest"},
		{http.MethodPost, "/api/v1/devices"},
		{http.MethodDelete, "/api/v1/devices/a"},
	}

	for _, tc := range testCases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
		req.Header.Set("Authorization", authHeader(t))
		rec := serve(rm, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: expected 503, got %d", tc.method, tc.path, rec.Code)
		}
	}
}
