package puller

import (
	"context"
	"sort"
	"sync"

	"github.com/sguter90/airmaestro/pkg/models"
)

// Puller defines the interface for upstream sources of device readings
type Puller interface {
	// GetProviderType returns the source identifier stored on devices (e.g., "gateway", "csv")
	GetProviderType() string

	// Pull fetches the complete available history of one device.
	// ctx: context for cancellation and timeouts
	// device: the registered device including its source-specific configuration
	Pull(ctx context.Context, device models.Device) ([]models.Reading, error)

	// ValidateConfig checks if the provided configuration is valid for this source
	ValidateConfig(config map[string]string) error
}

// PullerRegistry holds all registered data pullers
type PullerRegistry struct {
	mu      sync.RWMutex
	pullers map[string]Puller
}

// NewPullerRegistry creates a new puller registry
func NewPullerRegistry() *PullerRegistry {
	return &PullerRegistry{
		pullers: make(map[string]Puller),
	}
}

// Register adds a puller to the registry
func (r *PullerRegistry) Register(p Puller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pullers[p.GetProviderType()] = p
}

// Get retrieves a puller by provider type
func (r *PullerRegistry) Get(providerType string) (Puller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pullers[providerType]
	return p, ok
}

// All returns all registered pullers
func (r *PullerRegistry) All() []Puller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pullers := make([]Puller, 0, len(r.pullers))
	for _, p := range r.pullers {
		pullers = append(pullers, p)
	}
	return pullers
}

// Types returns the sorted provider types of all registered pullers
func (r *PullerRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.pullers))
	for t := range r.pullers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
