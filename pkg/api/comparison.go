package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sguter90/airmaestro/pkg/models"
	"github.com/sguter90/airmaestro/pkg/report"
)

// Compare runs a comparison on the server and returns the difference table
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*report.Table, error) {
	var table report.Table
	if err := c.getJSON(ctx, http.MethodPost, "/api/v1/compare", req, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// LatestReport returns the most recently saved difference table
func (c *Client) LatestReport(ctx context.Context) (*report.Table, error) {
	var table report.Table
	if err := c.getJSON(ctx, http.MethodGet, "/api/v1/reports/latest", nil, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// Fetch asks the server to pull all enabled devices once
func (c *Client) Fetch(ctx context.Context) (*FetchResponse, error) {
	var resp FetchResponse
	if err := c.getJSON(ctx, http.MethodPost, "/api/v1/fetch", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Devices lists known devices with their reading statistics
func (c *Client) Devices(ctx context.Context) ([]models.DeviceSummary, error) {
	var devices []models.DeviceSummary
	if err := c.getJSON(ctx, http.MethodGet, "/api/v1/devices", nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Readings queries stored readings; zero fields of params are not sent
func (c *Client) Readings(ctx context.Context, params models.ReadingQueryParams) ([]models.Reading, error) {
	q := url.Values{}
	if params.DeviceID != "" {
		q.Set("device", params.DeviceID)
	}
	if params.StartTime != nil {
		q.Set("start", params.StartTime.UTC().Format(time.RFC3339))
	}
	if params.EndTime != nil {
		q.Set("end", params.EndTime.UTC().Format(time.RFC3339))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Order != "" {
		q.Set("order", params.Order)
	}

	path := "/api/v1/readings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var readings []models.Reading
	if err := c.getJSON(ctx, http.MethodGet, path, nil, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}
