package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sguter90/airmaestro/pkg/alignment"
	"github.com/sguter90/airmaestro/pkg/api"
	"github.com/sguter90/airmaestro/pkg/database"
	"github.com/sguter90/airmaestro/pkg/ingest"
	"github.com/sguter90/airmaestro/pkg/report"
)

// compareHandler runs the alignment engine over the stored readings.
// The body is an api.CompareRequest; unset fields use the server defaults.
// ?format=csv returns the flat table as CSV instead of JSON.
func (rm *RouteManager) compareHandler(w http.ResponseWriter, r *http.Request) {
	var req api.CompareRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	req = withComparisonDefaults(req, rm.comparison)

	if req.Save && rm.dbManager == nil {
		writeError(w, http.StatusServiceUnavailable, "Report database unavailable")
		return
	}

	diffReport, table, err := runComparison(r.Context(), rm.ingestor, req, rm.log, rm.metrics)
	if err != nil {
		rm.writeComparisonError(w, err)
		return
	}

	if req.Save {
		if err := rm.dbManager.SaveReport(r.Context(), diffReport); err != nil {
			rm.log.ErrorWithError(err, "failed to save report")
			writeError(w, http.StatusInternalServerError, "Failed to save report")
			return
		}
		w.Header().Set("X-Report-ID", diffReport.ID.String())
	}

	rm.writeTable(w, r, table)
}

// latestReportHandler returns the most recently saved report
func (rm *RouteManager) latestReportHandler(w http.ResponseWriter, r *http.Request) {
	if rm.dbManager == nil {
		writeError(w, http.StatusServiceUnavailable, "Report database unavailable")
		return
	}

	diffReport, err := rm.dbManager.LatestReport(r.Context())
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No report saved yet")
		return
	}
	if err != nil {
		rm.log.ErrorWithError(err, "failed to load report")
		writeError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}

	table, err := report.Flatten(diffReport.Records)
	if err != nil {
		rm.log.ErrorWithError(err, "stored report is malformed")
		writeError(w, http.StatusInternalServerError, "Stored report is malformed")
		return
	}

	w.Header().Set("X-Report-ID", diffReport.ID.String())
	rm.writeTable(w, r, table)
}

// fetchHandler pulls all enabled devices once and merges the result
func (rm *RouteManager) fetchHandler(w http.ResponseWriter, r *http.Request) {
	if rm.puller == nil {
		writeError(w, http.StatusServiceUnavailable, "Fetching is not configured")
		return
	}

	total, err := rm.puller.PullOnce(r.Context())
	resp := api.FetchResponse{StoredReadings: total}
	if err != nil {
		var se *ingest.StorageError
		if errors.As(err, &se) {
			rm.log.ErrorWithError(err, "fetch could not be persisted")
			writeError(w, http.StatusInternalServerError, "Failed to persist readings")
			return
		}
		// partial success: some devices failed
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (rm *RouteManager) writeComparisonError(w http.ResponseWriter, err error) {
	var se *ingest.StorageError
	if errors.As(err, &se) {
		rm.log.ErrorWithError(err, "comparison could not load readings")
		writeError(w, http.StatusInternalServerError, "Failed to load readings")
		return
	}

	switch {
	case errors.Is(err, alignment.ErrEmptyReference), errors.Is(err, alignment.ErrUnknownDevice):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// invalid parameters
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (rm *RouteManager) writeTable(w http.ResponseWriter, r *http.Request, table *report.Table) {
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="sliding_difference_data.csv"`)
		if err := table.WriteCSV(w); err != nil {
			rm.log.ErrorWithError(err, "failed to write csv")
		}
		return
	}

	writeJSON(w, http.StatusOK, table)
}
