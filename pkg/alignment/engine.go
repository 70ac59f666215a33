package alignment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sguter90/airmaestro/pkg/logger"
	"github.com/sguter90/airmaestro/pkg/metrics"
	"github.com/sguter90/airmaestro/pkg/models"
)

// Engine compares every non-reference device against the local mean of the
// reference device
type Engine struct {
	cfg     Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewEngine creates an engine for cfg
func NewEngine(cfg Config, log *logger.Logger, m *metrics.Metrics) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		cfg:     cfg.withDefaults(),
		log:     log.WithComponent("alignment"),
		metrics: m,
	}, nil
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Compute produces one DifferenceRecord per (device, time, variable) for every
// non-reference reading at or after the configured start time. Records are
// grouped by variable in configured order, then by device id, then by time.
// Either every record is returned or an error and none.
func (e *Engine) Compute(ctx context.Context, readings []models.Reading) ([]models.DifferenceRecord, error) {
	start := time.Now()

	reference, devices := e.partition(readings)
	if len(reference) == 0 {
		return nil, alignmentError(ErrEmptyReference, "no readings for reference device %q", e.cfg.ReferenceDevice)
	}
	if len(e.cfg.Devices) > 0 {
		present := make(map[string]bool)
		for _, id := range DeviceIDs(readings) {
			present[id] = true
		}
		for _, id := range e.cfg.Devices {
			if !present[id] {
				return nil, alignmentError(ErrUnknownDevice, "no readings for device %q", id)
			}
		}
	}

	perVariable := make([][]models.DifferenceRecord, len(e.cfg.Variables))
	errs := make([]error, len(e.cfg.Variables))

	var wg sync.WaitGroup
	for i, v := range e.cfg.Variables {
		wg.Add(1)
		go func(i int, v models.Variable) {
			defer wg.Done()
			perVariable[i], errs[i] = e.computeVariable(ctx, v, reference, devices)
		}(i, v)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	total := 0
	counts := make(map[string]int, len(perVariable))
	for i, records := range perVariable {
		total += len(records)
		counts[string(e.cfg.Variables[i])] = len(records)
	}

	records := make([]models.DifferenceRecord, 0, total)
	for _, r := range perVariable {
		records = append(records, r...)
	}

	elapsed := time.Since(start)
	e.metrics.ObserveAlignment(elapsed, counts)
	e.log.Logger.Info().
		Str("reference", e.cfg.ReferenceDevice).
		Int("window", e.cfg.WindowSize).
		Int("devices", len(devices)).
		Int("records", len(records)).
		Dur("elapsed", elapsed).
		Msg("alignment complete")

	return records, nil
}

type deviceReadings struct {
	id       string
	readings []models.Reading
}

// partition splits readings into the time-sorted reference readings and the
// comparison readings of every other selected device, filtered by start time
// and sorted by device id
func (e *Engine) partition(readings []models.Reading) ([]models.Reading, []deviceReadings) {
	var reference []models.Reading
	byDevice := make(map[string][]models.Reading)

	wanted := make(map[string]bool, len(e.cfg.Devices))
	for _, id := range e.cfg.Devices {
		wanted[id] = true
	}

	for _, r := range readings {
		if r.DeviceID == e.cfg.ReferenceDevice {
			reference = append(reference, r)
			continue
		}
		if len(wanted) > 0 && !wanted[r.DeviceID] {
			continue
		}
		if !e.cfg.StartTime.IsZero() && r.Time.Before(e.cfg.StartTime) {
			continue
		}
		byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r)
	}

	devices := make([]deviceReadings, 0, len(byDevice))
	for id, rs := range byDevice {
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].Time.Before(rs[j].Time)
		})
		devices = append(devices, deviceReadings{id: id, readings: rs})
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].id < devices[j].id
	})

	return reference, devices
}

func (e *Engine) computeVariable(ctx context.Context, v models.Variable, reference []models.Reading, devices []deviceReadings) ([]models.DifferenceRecord, error) {
	ref := make(series, 0, len(reference))
	for _, r := range reference {
		value, _ := r.Value(v)
		ref = append(ref, point{time: r.Time, value: value})
	}
	ref.sort()

	var records []models.DifferenceRecord
	for _, d := range devices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, r := range d.readings {
			value, _ := r.Value(v)
			mean, n := ref.nearestMean(r.Time, e.cfg.WindowSize)
			records = append(records, newRecord(r, v, value, mean, n))
		}
	}

	return records, nil
}

func newRecord(r models.Reading, v models.Variable, value, mean float64, n int) models.DifferenceRecord {
	abs := value - mean
	record := models.DifferenceRecord{
		Time:               r.Time.UTC(),
		DeviceID:           r.DeviceID,
		Variable:           v,
		ReferenceMean:      mean,
		WindowCount:        n,
		AbsoluteDifference: abs,
	}
	if mean != 0 {
		rel := abs / mean * 100
		record.RelativeDifferencePercent = &rel
	}
	return record
}

// DeviceIDs returns the sorted distinct device ids present in readings
func DeviceIDs(readings []models.Reading) []string {
	seen := make(map[string]struct{})
	ids := []string{}
	for _, r := range readings {
		if _, ok := seen[r.DeviceID]; ok {
			continue
		}
		seen[r.DeviceID] = struct{}{}
		ids = append(ids, r.DeviceID)
	}
	sort.Strings(ids)
	return ids
}
