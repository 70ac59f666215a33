package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/sguter90/airmaestro/pkg/database"
	"github.com/sguter90/airmaestro/pkg/models"
)

type deviceStatter interface {
	DeviceStats(ctx context.Context) (map[string]models.DeviceSummary, error)
}

// getDevicesHandler lists devices with statistics about their stored readings.
// Without a device registry the devices seen in the store are listed.
func (rm *RouteManager) getDevicesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var stats map[string]models.DeviceSummary
	var err error
	if s, ok := rm.store.(deviceStatter); ok {
		stats, err = s.DeviceStats(ctx)
	} else {
		var readings []models.Reading
		readings, err = rm.ingestor.Load(ctx)
		stats = readingStats(readings)
	}
	if err != nil {
		rm.log.ErrorWithError(err, "failed to load reading statistics")
		writeError(w, http.StatusInternalServerError, "Failed to load devices")
		return
	}

	var devices []models.Device
	if rm.dbManager != nil {
		devices, err = rm.dbManager.ListDevices(ctx)
		if err != nil {
			rm.log.ErrorWithError(err, "failed to list devices")
			writeError(w, http.StatusInternalServerError, "Failed to load devices")
			return
		}
	}

	summaries := make([]models.DeviceSummary, 0, len(devices)+len(stats))
	listed := make(map[string]bool, len(devices))
	for _, d := range devices {
		s := stats[d.ID]
		s.Device = d
		summaries = append(summaries, s)
		listed[d.ID] = true
	}

	// devices with readings but no registry entry, e.g. csv imports
	ids := make([]string, 0, len(stats))
	for id := range stats {
		if !listed[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := stats[id]
		s.Device = models.Device{ID: id}
		summaries = append(summaries, s)
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (rm *RouteManager) saveDeviceHandler(w http.ResponseWriter, r *http.Request) {
	if rm.dbManager == nil {
		writeError(w, http.StatusServiceUnavailable, "Device registry unavailable")
		return
	}

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, ok := newPullerRegistry().Get(device.Source)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown source: "+device.Source)
		return
	}
	if err := p.ValidateConfig(device.Config); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := rm.dbManager.SaveDevice(r.Context(), &device); err != nil {
		rm.log.ErrorWithError(err, "failed to save device")
		writeError(w, http.StatusInternalServerError, "Failed to save device")
		return
	}

	writeJSON(w, http.StatusOK, device)
}

func (rm *RouteManager) deleteDeviceHandler(w http.ResponseWriter, r *http.Request) {
	if rm.dbManager == nil {
		writeError(w, http.StatusServiceUnavailable, "Device registry unavailable")
		return
	}

	id := mux.Vars(r)["id"]
	err := rm.dbManager.DeleteDevice(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}
	if err != nil {
		rm.log.ErrorWithError(err, "failed to delete device")
		writeError(w, http.StatusInternalServerError, "Failed to delete device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
