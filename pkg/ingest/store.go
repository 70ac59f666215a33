package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sguter90/airmaestro/pkg/logger"
	"github.com/sguter90/airmaestro/pkg/metrics"
	"github.com/sguter90/airmaestro/pkg/models"
)

// Store is the durable table of readings keyed by (device, time)
type Store interface {
	// Load returns every persisted reading. A store without prior state
	// returns an empty slice and no error.
	Load(ctx context.Context) ([]models.Reading, error)

	// Replace atomically overwrites the durable state with readings.
	// On error the previous state must remain visible.
	Replace(ctx context.Context, readings []models.Reading) error
}

// Ingestor is the sole write path of the ingestion store
type Ingestor struct {
	store   Store
	log     *logger.Logger
	metrics *metrics.Metrics

	// mu serializes the load-merge-replace cycle
	mu sync.Mutex
}

// NewIngestor creates a new Ingestor on top of a store
func NewIngestor(store Store, log *logger.Logger, m *metrics.Metrics) *Ingestor {
	if log == nil {
		log = logger.Nop()
	}
	return &Ingestor{
		store:   store,
		log:     log.WithComponent("ingest"),
		metrics: m,
	}
}

// Load returns all previously persisted readings
func (i *Ingestor) Load(ctx context.Context) ([]models.Reading, error) {
	readings, err := i.store.Load(ctx)
	if err != nil {
		return nil, storageError("load", err)
	}
	if readings == nil {
		readings = []models.Reading{}
	}

	i.log.Logger.Debug().Int("readings", len(readings)).Msg("loaded readings")
	return readings, nil
}

// MergeAndPersist merges incoming into existing with upsert semantics,
// persists the complete deduplicated set and returns it.
// When persisting fails nothing is committed and the caller may retry with
// the same existing set.
func (i *Ingestor) MergeAndPersist(ctx context.Context, existing, incoming []models.Reading) ([]models.Reading, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.mergeAndPersist(ctx, existing, incoming)
}

// Refresh loads the current state and merges incoming into it. The whole
// load-merge-replace cycle holds mu, so concurrent callers never overwrite
// each other's readings.
func (i *Ingestor) Refresh(ctx context.Context, incoming []models.Reading) ([]models.Reading, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	existing, err := i.Load(ctx)
	if err != nil {
		return nil, err
	}
	return i.mergeAndPersist(ctx, existing, incoming)
}

// mergeAndPersist expects mu to be held
func (i *Ingestor) mergeAndPersist(ctx context.Context, existing, incoming []models.Reading) ([]models.Reading, error) {
	for _, r := range incoming {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid incoming reading: %w", err)
		}
	}

	merged := Merge(existing, incoming)

	if err := i.store.Replace(ctx, merged); err != nil {
		i.metrics.ObserveMerge(0, err)
		i.log.WithError(err).Error("failed to persist merged readings")
		return nil, storageError("replace", err)
	}

	i.metrics.ObserveMerge(len(merged), nil)
	i.log.Logger.Info().
		Int("existing", len(existing)).
		Int("incoming", len(incoming)).
		Int("total", len(merged)).
		Msg("merged and persisted readings")

	return merged, nil
}
