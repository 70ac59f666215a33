package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sguter90/airmaestro/pkg/models"
)

// SaveReport stores a computed difference report with all its records.
// A report without an id gets a fresh one.
func (dm *DatabaseManager) SaveReport(ctx context.Context, report *models.DifferenceReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	variables := make([]string, len(report.Variables))
	for i, v := range report.Variables {
		variables[i] = string(v)
	}

	var startTime interface{}
	if !report.StartTime.IsZero() {
		startTime = report.StartTime.UTC()
	}

	tx, err := dm.BeginWithHealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO difference_reports (id, reference_device, window_size, start_time, variables)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `, report.ID, report.ReferenceDevice, report.WindowSize, startTime, pq.Array(variables)).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("difference_records",
		"report_id", "position", "time", "device_id", "variable",
		"reference_mean", "window_count", "absolute_difference", "relative_difference_percent",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for i, r := range report.Records {
		var relative interface{}
		if r.RelativeDifferencePercent != nil {
			relative = *r.RelativeDifferencePercent
		}
		_, err := stmt.ExecContext(ctx,
			report.ID, i, r.Time.UTC(), r.DeviceID, string(r.Variable),
			r.ReferenceMean, r.WindowCount, r.AbsoluteDifference, relative,
		)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy record %d: %w", i, err)
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
		return fmt.Errorf("failed to commit report: %w", err)
	}

	dm.log.Logger.Info().Str("report", report.ID.String()).Int("records", len(report.Records)).Msg("saved difference report")
	return nil
}

// LatestReport loads the most recently created report with its records
func (dm *DatabaseManager) LatestReport(ctx context.Context) (*models.DifferenceReport, error) {
	query := `
        SELECT id, reference_device, window_size, start_time, variables, created_at
        FROM difference_reports
        ORDER BY created_at DESC
        LIMIT 1
    `

	var report models.DifferenceReport
	var startTime sql.NullTime
	var variables []string

	err := dm.QueryRowWithHealthCheck(ctx, query).Scan(
		&report.ID,
		&report.ReferenceDevice,
		&report.WindowSize,
		&startTime,
		pq.Array(&variables),
		&report.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	if startTime.Valid {
		report.StartTime = startTime.Time.UTC()
	}
	for _, v := range variables {
		report.Variables = append(report.Variables, models.Variable(v))
	}

	report.Records, err = dm.reportRecords(ctx, report.ID)
	if err != nil {
		return nil, err
	}

	return &report, nil
}

func (dm *DatabaseManager) reportRecords(ctx context.Context, reportID uuid.UUID) ([]models.DifferenceRecord, error) {
	query := `
        SELECT time, device_id, variable, reference_mean, window_count, absolute_difference, relative_difference_percent
        FROM difference_records
        WHERE report_id = $1
        ORDER BY position
    `

	rows, err := dm.QueryWithHealthCheck(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query report records: %w", err)
	}
	defer rows.Close()

	records := []models.DifferenceRecord{}
	for rows.Next() {
		var r models.DifferenceRecord
		var t time.Time
		var variable string
		var relative sql.NullFloat64

		if err := rows.Scan(&t, &r.DeviceID, &variable, &r.ReferenceMean, &r.WindowCount, &r.AbsoluteDifference, &relative); err != nil {
			return nil, fmt.Errorf("failed to scan report record: %w", err)
		}

		r.Time = t.UTC()
		r.Variable = models.Variable(variable)
		if relative.Valid {
			v := relative.Float64
			r.RelativeDifferencePercent = &v
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// PruneReports deletes all but the newest keep reports
func (dm *DatabaseManager) PruneReports(ctx context.Context, keep int) (int64, error) {
	query := `
        DELETE FROM difference_reports
        WHERE id NOT IN (
            SELECT id FROM difference_reports ORDER BY created_at DESC LIMIT $1
        )
    `

	result, err := dm.ExecWithHealthCheck(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}

	return result.RowsAffected()
}
