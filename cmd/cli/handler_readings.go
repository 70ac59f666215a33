package main

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/sguter90/airmaestro/pkg/config"
	"github.com/sguter90/airmaestro/pkg/models"
)

// readingQuerier is implemented by stores that can filter on their own
type readingQuerier interface {
	QueryReadings(ctx context.Context, params models.ReadingQueryParams) ([]models.Reading, error)
}

// getReadingsHandler returns stored readings
// Query params:
//   - device: filter by device id
//   - start: start time (RFC3339 or YYYY-MM-DD HH:MM)
//   - end: end time (same layouts as start)
//   - limit: max number of results (default: 1000, max: 10000)
//   - order: sort order by time (asc/desc, default: asc)
func (rm *RouteManager) getReadingsHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parseReadingQueryParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var readings []models.Reading
	if q, ok := rm.store.(readingQuerier); ok {
		readings, err = q.QueryReadings(r.Context(), params)
	} else {
		readings, err = rm.ingestor.Load(r.Context())
		readings = filterReadings(readings, params)
	}
	if err != nil {
		rm.log.ErrorWithError(err, "failed to query readings")
		writeError(w, http.StatusInternalServerError, "Failed to query readings")
		return
	}

	writeJSON(w, http.StatusOK, readings)
}

func (rm *RouteManager) getVariablesHandler(w http.ResponseWriter, r *http.Request) {
	type variableInfo struct {
		Name  models.Variable `json:"name"`
		Alias string          `json:"alias"`
		Label string          `json:"label"`
		Unit  string          `json:"unit"`
	}

	vars := make([]variableInfo, 0, len(models.VariableRegistry))
	for _, v := range models.AllVariables() {
		info := models.VariableRegistry[v]
		vars = append(vars, variableInfo{Name: v, Alias: info.Alias, Label: info.Label, Unit: info.Unit})
	}
	writeJSON(w, http.StatusOK, vars)
}

// parseReadingQueryParams extracts and parses query parameters from the request
func parseReadingQueryParams(r *http.Request) (models.ReadingQueryParams, error) {
	q := r.URL.Query()
	params := models.ReadingQueryParams{
		DeviceID: q.Get("device"),
		Limit:    1000,
		Order:    "asc",
	}

	if order := q.Get("order"); order != "" {
		params.Order = order
	}

	if limit := q.Get("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil {
			return params, err
		}
		params.Limit = l
	}

	if start := q.Get("start"); start != "" {
		t, err := config.ParseStartTime(start)
		if err != nil {
			return params, err
		}
		params.StartTime = &t
	}

	if end := q.Get("end"); end != "" {
		t, err := config.ParseStartTime(end)
		if err != nil {
			return params, err
		}
		params.EndTime = &t
	}

	return params, nil
}

// filterReadings applies params to an in-memory reading table
func filterReadings(readings []models.Reading, params models.ReadingQueryParams) []models.Reading {
	result := make([]models.Reading, 0)
	for _, r := range readings {
		if params.DeviceID != "" && r.DeviceID != params.DeviceID {
			continue
		}
		if params.StartTime != nil && r.Time.Before(*params.StartTime) {
			continue
		}
		if params.EndTime != nil && r.Time.After(*params.EndTime) {
			continue
		}
		result = append(result, r)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Time.Equal(result[j].Time) {
			if params.Order == "desc" {
				return result[i].Time.After(result[j].Time)
			}
			return result[i].Time.Before(result[j].Time)
		}
		return result[i].DeviceID < result[j].DeviceID
	})

	if len(result) > params.Limit {
		result = result[:params.Limit]
	}
	return result
}

// readingStats summarizes an in-memory reading table per device
func readingStats(readings []models.Reading) map[string]models.DeviceSummary {
	stats := make(map[string]models.DeviceSummary)
	for _, r := range readings {
		s := stats[r.DeviceID]
		s.TotalReadings++
		t := r.Time
		if s.FirstReading == nil || t.Before(*s.FirstReading) {
			first := t
			s.FirstReading = &first
		}
		if s.LastReading == nil || t.After(*s.LastReading) {
			last := t
			s.LastReading = &last
		}
		stats[r.DeviceID] = s
	}
	return stats
}
