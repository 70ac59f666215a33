package puller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sguter90/airmaestro/pkg/logger"
	"github.com/sguter90/airmaestro/pkg/metrics"
	"github.com/sguter90/airmaestro/pkg/models"
)

// FetchService pulls readings of registered devices through their pullers
type FetchService struct {
	registry *PullerRegistry
	log      *logger.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// NewFetchService creates a new FetchService. A zero timeout leaves pulls
// bounded only by the caller's context.
func NewFetchService(registry *PullerRegistry, log *logger.Logger, m *metrics.Metrics, timeout time.Duration) *FetchService {
	if log == nil {
		log = logger.Nop()
	}
	return &FetchService{
		registry: registry,
		log:      log.WithComponent("fetch"),
		metrics:  m,
		timeout:  timeout,
	}
}

// FetchDevice pulls one device. Every returned reading carries the device's
// id and MAC regardless of what the source reported.
func (s *FetchService) FetchDevice(ctx context.Context, device models.Device) ([]models.Reading, error) {
	p, ok := s.registry.Get(device.Source)
	if !ok {
		return nil, fmt.Errorf("no puller registered for source %q", device.Source)
	}

	if err := p.ValidateConfig(device.Config); err != nil {
		return nil, fmt.Errorf("invalid %s config for device %s: %w", device.Source, device.ID, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	readings, err := p.Pull(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("pull from %s failed for device %s: %w", device.Source, device.ID, err)
	}

	for i := range readings {
		readings[i].DeviceID = device.ID
		readings[i].MAC = device.MAC
		readings[i].Time = readings[i].Time.UTC()
		if err := readings[i].Validate(); err != nil {
			return nil, fmt.Errorf("device %s returned an invalid reading: %w", device.ID, err)
		}
	}

	s.metrics.ObserveFetch(device.ID, len(readings))
	return readings, nil
}

// FetchAll pulls every enabled device in order and concatenates the results.
// A failing device does not stop the others; the readings that were fetched
// are returned together with the joined errors.
func (s *FetchService) FetchAll(ctx context.Context, devices []models.Device) ([]models.Reading, error) {
	var all []models.Reading
	var errs []error

	for _, device := range devices {
		if !device.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return all, err
		}

		log := s.log.WithField("device", device.ID).WithField("source", device.Source)

		readings, err := s.FetchDevice(ctx, device)
		if err != nil {
			log.ErrorWithError(err, "fetch failed")
			errs = append(errs, err)
			continue
		}

		log.Logger.Info().Int("readings", len(readings)).Msg("fetched readings")
		all = append(all, readings...)
	}

	if all == nil {
		all = []models.Reading{}
	}
	return all, errors.Join(errs...)
}
