package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sguter90/airmaestro/pkg/models"
)

// SaveDevice inserts a device or updates it when the id already exists
func (dm *DatabaseManager) SaveDevice(ctx context.Context, device *models.Device) error {
	if device.ID == "" {
		return errors.New("device id must not be empty")
	}
	if device.Source == "" {
		return errors.New("device source must not be empty")
	}

	config := device.Config
	if config == nil {
		config = map[string]string{}
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
        INSERT INTO devices (id, mac, name, source, config, enabled)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE
        SET mac = $2, name = $3, source = $4, config = $5, enabled = $6, updated_at = CURRENT_TIMESTAMP
        RETURNING created_at, updated_at
    `

	err = dm.QueryRowWithHealthCheck(ctx, query,
		device.ID,
		device.MAC,
		device.Name,
		device.Source,
		configJSON,
		device.Enabled,
	).Scan(&device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save device: %w", err)
	}

	return nil
}

// GetDevice loads a device by id
func (dm *DatabaseManager) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	query := `
        SELECT id, mac, name, source, config, enabled, created_at, updated_at
        FROM devices
        WHERE id = $1
    `

	device, err := scanDevice(dm.QueryRowWithHealthCheck(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return device, nil
}

// ListDevices returns all registered devices ordered by id
func (dm *DatabaseManager) ListDevices(ctx context.Context) ([]models.Device, error) {
	query := `
        SELECT id, mac, name, source, config, enabled, created_at, updated_at
        FROM devices
        ORDER BY id
    `

	rows, err := dm.QueryWithHealthCheck(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}

	return devices, rows.Err()
}

// SetDeviceEnabled toggles whether a device is pulled
func (dm *DatabaseManager) SetDeviceEnabled(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE devices SET enabled = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	return dm.execOne(ctx, query, enabled, id)
}

// DeleteDevice removes a device from the registry. Stored readings are kept.
func (dm *DatabaseManager) DeleteDevice(ctx context.Context, id string) error {
	return dm.execOne(ctx, `DELETE FROM devices WHERE id = $1`, id)
}

// execOne runs a statement that must affect exactly one row
func (dm *DatabaseManager) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := dm.ExecWithHealthCheck(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var device models.Device
	var configJSON []byte

	err := row.Scan(
		&device.ID,
		&device.MAC,
		&device.Name,
		&device.Source,
		&configJSON,
		&device.Enabled,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	device.Config = make(map[string]string)
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &device.Config); err != nil {
			return nil, fmt.Errorf("failed to parse config for device %s: %w", device.ID, err)
		}
	}

	return &device, nil
}
