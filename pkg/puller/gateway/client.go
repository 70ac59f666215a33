package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a Bluetooth gateway that exposes the stored history of
// Aranet4 sensors over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a new gateway API client
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Record is one history entry as reported by the gateway
type Record struct {
	Date        time.Time `json:"date"`
	CO2         float64   `json:"co2"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
}

// RecordsResponse represents the gateway response for a device history
type RecordsResponse struct {
	Device struct {
		MAC      string `json:"mac"`
		Name     string `json:"name"`
		Interval int    `json:"interval"`
	} `json:"device"`
	Records []Record `json:"records"`
	Status  string   `json:"status"`
}

// GetRecords retrieves all stored records of the sensor with the given MAC address
func (c *Client) GetRecords(ctx context.Context, mac string) (*RecordsResponse, error) {
	endpoint := fmt.Sprintf("%s/devices/%s/records", c.baseURL, url.PathEscape(mac))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records from gateway: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var recordsResp RecordsResponse
	if err := json.Unmarshal(body, &recordsResp); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	if recordsResp.Status != "" && recordsResp.Status != "ok" {
		return nil, fmt.Errorf("gateway reported status %q for %s", recordsResp.Status, mac)
	}

	return &recordsResp, nil
}
