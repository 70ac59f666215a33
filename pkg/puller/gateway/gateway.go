package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sguter90/airmaestro/pkg/models"
)

// ProviderType is the device source served by this puller
const ProviderType = "gateway"

// Puller implements the gateway data puller
type Puller struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// NewPuller creates a new gateway puller
func NewPuller() *Puller {
	return &Puller{
		clients: make(map[string]*Client),
	}
}

func (p *Puller) GetProviderType() string {
	return ProviderType
}

func (p *Puller) ValidateConfig(config map[string]string) error {
	baseURL := config["base_url"]
	if baseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL: %q", baseURL)
	}
	if timeout := config["timeout"]; timeout != "" {
		if _, err := time.ParseDuration(timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}
	return nil
}

func (p *Puller) Pull(ctx context.Context, device models.Device) ([]models.Reading, error) {
	if err := p.ValidateConfig(device.Config); err != nil {
		return nil, err
	}
	if device.MAC == "" {
		return nil, fmt.Errorf("device %s has no MAC address", device.ID)
	}

	resp, err := p.client(device.Config).GetRecords(ctx, device.MAC)
	if err != nil {
		return nil, err
	}

	readings := make([]models.Reading, 0, len(resp.Records))
	for _, rec := range resp.Records {
		readings = append(readings, models.NewReading(
			device.ID,
			device.MAC,
			rec.Date,
			rec.CO2,
			rec.Temperature,
			rec.Humidity,
			rec.Pressure,
		))
	}

	return readings, nil
}

// client returns a cached client for the configured gateway
func (p *Puller) client(config map[string]string) *Client {
	key := config["base_url"] + "|" + config["token"] + "|" + config["timeout"]

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c
	}

	timeout, _ := time.ParseDuration(config["timeout"])
	c := NewClient(config["base_url"], config["token"], timeout)
	p.clients[key] = c
	return c
}
