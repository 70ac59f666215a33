package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/sguter90/airmaestro/pkg/models"
)

// ReadingStore persists the deduplicated reading table in PostgreSQL
type ReadingStore struct {
	dm *DatabaseManager
}

// NewReadingStore creates a ReadingStore on top of dm
func NewReadingStore(dm *DatabaseManager) *ReadingStore {
	return &ReadingStore{dm: dm}
}

// Load returns every stored reading ordered by device and time
func (s *ReadingStore) Load(ctx context.Context) ([]models.Reading, error) {
	query := `
        SELECT device_id, mac, time, co2, temperature, humidity, pressure
        FROM readings
        ORDER BY device_id, time
    `

	rows, err := s.dm.QueryWithHealthCheck(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.DeviceID, &r.MAC, &r.Time, &r.CO2, &r.Temperature, &r.Humidity, &r.Pressure); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.Time = r.Time.UTC()
		readings = append(readings, r)
	}

	return readings, rows.Err()
}

// Replace overwrites the table with readings in a single transaction.
// Readers see either the old or the new table, never a mix.
func (s *ReadingStore) Replace(ctx context.Context, readings []models.Reading) error {
	tx, err := s.dm.BeginWithHealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE readings IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("failed to lock readings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM readings`); err != nil {
		return fmt.Errorf("failed to clear readings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("readings", "device_id", "mac", "time", "co2", "temperature", "humidity", "pressure"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx, r.DeviceID, r.MAC, r.Time.UTC(), r.CO2, r.Temperature, r.Humidity, r.Pressure); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy reading %s: %w", r.Key(), err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}

	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit readings: %w", err)
	}

	return nil
}

// QueryReadings returns readings matching params
func (s *ReadingStore) QueryReadings(ctx context.Context, params models.ReadingQueryParams) ([]models.Reading, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
        SELECT device_id, mac, time, co2, temperature, humidity, pressure
        FROM readings
        WHERE 1=1
    `
	args := []interface{}{}
	argCount := 1

	if params.DeviceID != "" {
		query += " AND device_id = $" + strconv.Itoa(argCount)
		args = append(args, params.DeviceID)
		argCount++
	}
	if params.StartTime != nil {
		query += " AND time >= $" + strconv.Itoa(argCount)
		args = append(args, params.StartTime.UTC())
		argCount++
	}
	if params.EndTime != nil {
		query += " AND time <= $" + strconv.Itoa(argCount)
		args = append(args, params.EndTime.UTC())
		argCount++
	}

	order := "ASC"
	if params.Order == "desc" {
		order = "DESC"
	}
	query += " ORDER BY time " + order + ", device_id LIMIT $" + strconv.Itoa(argCount)
	args = append(args, params.Limit)

	rows, err := s.dm.QueryWithHealthCheck(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.DeviceID, &r.MAC, &r.Time, &r.CO2, &r.Temperature, &r.Humidity, &r.Pressure); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.Time = r.Time.UTC()
		readings = append(readings, r)
	}

	return readings, rows.Err()
}

// DeviceStats reports per-device reading counts and time ranges
func (s *ReadingStore) DeviceStats(ctx context.Context) (map[string]models.DeviceSummary, error) {
	query := `
        SELECT device_id, COUNT(*), MIN(time), MAX(time)
        FROM readings
        GROUP BY device_id
    `

	rows, err := s.dm.QueryWithHealthCheck(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reading stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]models.DeviceSummary)
	for rows.Next() {
		var id string
		var summary models.DeviceSummary
		var first, last time.Time
		if err := rows.Scan(&id, &summary.TotalReadings, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan reading stats: %w", err)
		}
		first, last = first.UTC(), last.UTC()
		summary.FirstReading = &first
		summary.LastReading = &last
		stats[id] = summary
	}

	return stats, rows.Err()
}
