package ingest

import (
	"context"
	"sync"

	"github.com/sguter90/airmaestro/pkg/models"
)

// MemoryStore keeps readings in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	readings []models.Reading

	// FailLoad and FailReplace make the operations return these errors
	// without touching state
	FailLoad    error
	FailReplace error
}

// NewMemoryStore creates a store seeded with readings
func NewMemoryStore(readings ...models.Reading) *MemoryStore {
	return &MemoryStore{readings: append([]models.Reading(nil), readings...)}
}

// Load returns a copy of the stored readings
func (s *MemoryStore) Load(ctx context.Context) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.FailLoad != nil {
		return nil, s.FailLoad
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Reading{}, s.readings...), nil
}

// Replace swaps the stored readings for a copy of readings
func (s *MemoryStore) Replace(ctx context.Context, readings []models.Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailReplace != nil {
		return s.FailReplace
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append([]models.Reading{}, readings...)
	return nil
}
