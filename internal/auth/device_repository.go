package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redquill/redquill-core/internal/infrastructure/database"
)

// deviceColumns is the select list shared by all device queries.
const deviceColumns = "id, device_id, device_name, device_type, secret_key, user_id, is_active, last_used_at, created_at, updated_at"

// DeviceRepository defines the interface for device persistence.
type DeviceRepository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, id string) (*Device, error)
	GetActiveByFingerprint(ctx context.Context, fingerprint string) (*Device, error)
	GetActiveByFingerprintAndUser(ctx context.Context, fingerprint, userID string) (*Device, error)
	ListByUser(ctx context.Context, userID string) ([]Device, error)
	Touch(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteDeviceRepository implements DeviceRepository using SQLite.
// It runs against a database.Querier, so the same implementation serves
// both pool-bound reads and transaction-scoped writes.
type SQLiteDeviceRepository struct {
	q database.Querier
}

// NewDeviceRepository creates a new SQLite-backed device repository.
func NewDeviceRepository(q database.Querier) *SQLiteDeviceRepository {
	return &SQLiteDeviceRepository{q: q}
}

// Create inserts a new device. The ID and signing secret are generated if
// empty; the fingerprint must be set by the caller.
func (r *SQLiteDeviceRepository) Create(ctx context.Context, device *Device) error {
	if device.ID == "" {
		device.ID = "dev-" + uuid.NewString()[:8]
	}
	if device.SecretKey == "" {
		secret, err := GenerateDeviceSecret()
		if err != nil {
			return err
		}
		device.SecretKey = secret
	}

	now := time.Now().UTC().Format(time.RFC3339)
	device.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	device.UpdatedAt = device.CreatedAt

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO devices (id, device_id, device_name, device_type, secret_key, user_id, is_active, last_used_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.Fingerprint, device.Name, device.Type,
		device.SecretKey, device.UserID, boolToInt(device.IsActive),
		nullTime(device.LastUsedAt), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("creating device: %w", err)
	}

	return nil
}

// GetByID retrieves a device by its unique ID.
func (r *SQLiteDeviceRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	return r.getDevice(ctx, "SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)
}

// GetActiveByFingerprint retrieves the active device carrying the given
// client fingerprint, regardless of owner.
func (r *SQLiteDeviceRepository) GetActiveByFingerprint(ctx context.Context, fingerprint string) (*Device, error) {
	return r.getDevice(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE device_id = ? AND is_active = 1",
		fingerprint)
}

// GetActiveByFingerprintAndUser retrieves the active device matching both
// the fingerprint and the owning user. This is the verification lookup:
// both keys come from an unverified token decode, so a miss means the
// token does not correspond to any live session.
func (r *SQLiteDeviceRepository) GetActiveByFingerprintAndUser(ctx context.Context, fingerprint, userID string) (*Device, error) {
	return r.getDevice(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE device_id = ? AND user_id = ? AND is_active = 1",
		fingerprint, userID)
}

// ListByUser returns all devices owned by a user, newest first.
func (r *SQLiteDeviceRepository) ListByUser(ctx context.Context, userID string) ([]Device, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE user_id = ? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDeviceFrom(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// Touch records that a device was just used for a verified request.
func (r *SQLiteDeviceRepository) Touch(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.q.ExecContext(ctx,
		"UPDATE devices SET last_used_at = ?, updated_at = ? WHERE id = ?",
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("touching device: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Deactivate revokes a device. Tokens signed with its secret stop
// verifying immediately because the active-device lookup no longer
// returns it.
func (r *SQLiteDeviceRepository) Deactivate(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.q.ExecContext(ctx,
		"UPDATE devices SET is_active = 0, updated_at = ? WHERE id = ?",
		now, id,
	)
	if err != nil {
		return fmt.Errorf("deactivating device: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Count returns the total number of devices.
func (r *SQLiteDeviceRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting devices: %w", err)
	}
	return count, nil
}

// getDevice executes a query and scans a single device result.
func (r *SQLiteDeviceRepository) getDevice(ctx context.Context, query string, args ...any) (*Device, error) {
	row := r.q.QueryRowContext(ctx, query, args...)
	return scanDeviceFrom(row)
}

// scanDeviceFrom scans a device from any scanner (Row or Rows).
func scanDeviceFrom(s scanner) (*Device, error) {
	var d Device
	var lastUsedAt sql.NullString
	var isActive int
	var createdAt, updatedAt string

	err := s.Scan(&d.ID, &d.Fingerprint, &d.Name, &d.Type,
		&d.SecretKey, &d.UserID, &isActive, &lastUsedAt,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	d.IsActive = isActive != 0
	if lastUsedAt.Valid {
		t, _ := time.Parse(time.RFC3339, lastUsedAt.String) //nolint:errcheck // format is controlled
		d.LastUsedAt = &t
	}

	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &d, nil
}

// nullTime converts an optional timestamp to its nullable RFC 3339 text form.
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
