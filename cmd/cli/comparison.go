package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sguter90/airmaestro/pkg/alignment"
	"github.com/sguter90/airmaestro/pkg/api"
	"github.com/sguter90/airmaestro/pkg/config"
	"github.com/sguter90/airmaestro/pkg/logger"
	"github.com/sguter90/airmaestro/pkg/metrics"
	"github.com/sguter90/airmaestro/pkg/models"
	"github.com/sguter90/airmaestro/pkg/report"
)

// withComparisonDefaults fills unset fields from the comparison configuration
func withComparisonDefaults(r api.CompareRequest, cfg config.ComparisonConfig) api.CompareRequest {
	if r.Reference == "" {
		r.Reference = cfg.ReferenceDevice
	}
	if r.WindowSize == 0 {
		r.WindowSize = cfg.WindowSize
	}
	if r.Start == "" {
		r.Start = cfg.StartTime
	}
	if r.Variables == "" {
		r.Variables = cfg.Variables
	}
	return r
}

// engineConfig parses the request into an alignment configuration
func engineConfig(r api.CompareRequest) (alignment.Config, error) {
	start, err := config.ParseStartTime(r.Start)
	if err != nil {
		return alignment.Config{}, err
	}

	variables, err := models.ParseVariables(r.Variables)
	if err != nil {
		return alignment.Config{}, err
	}

	return alignment.Config{
		ReferenceDevice: r.Reference,
		WindowSize:      r.WindowSize,
		StartTime:       start,
		Variables:       variables,
		Devices:         r.Devices,
	}, nil
}

// ReadingLoader provides the readings to compare
type ReadingLoader interface {
	Load(ctx context.Context) ([]models.Reading, error)
}

// runComparison aligns all stored readings against the reference device
func runComparison(ctx context.Context, loader ReadingLoader, req api.CompareRequest, log *logger.Logger, m *metrics.Metrics) (*models.DifferenceReport, *report.Table, error) {
	cfg, err := engineConfig(req)
	if err != nil {
		return nil, nil, err
	}

	engine, err := alignment.NewEngine(cfg, log, m)
	if err != nil {
		return nil, nil, err
	}

	readings, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	records, err := engine.Compute(ctx, readings)
	if err != nil {
		return nil, nil, err
	}

	table, err := report.Flatten(records)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to flatten report: %w", err)
	}

	effective := engine.Config()
	diffReport := &models.DifferenceReport{
		ReferenceDevice: effective.ReferenceDevice,
		WindowSize:      effective.WindowSize,
		StartTime:       effective.StartTime,
		Variables:       effective.Variables,
		CreatedAt:       time.Now().UTC(),
		Records:         records,
	}

	return diffReport, table, nil
}
