package main

import (
	"encoding/json"
	"net/http"

	"github.com/sguter90/airmaestro/pkg/api"
)

// healthHandler returns server health status
func (rm *RouteManager) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := api.HealthStatus{Status: "ok"}
	code := http.StatusOK

	if rm.dbManager != nil {
		status.Database = "healthy"
		if !rm.dbManager.IsConnectionHealthy() {
			status.Status = "degraded"
			status.Database = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, status)
}

// writeJSON writes v as a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, api.ErrorResponse{Error: msg})
}
