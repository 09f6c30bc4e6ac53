// ABOUTME: Sync cursor persistence for the cloud-poll path.
// ABOUTME: One row per data type holding the last date fully synced.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// GetSyncCursor returns the last-synced date for a data type, or
// ErrNotFound when the type has never synced.
func (d *DB) GetSyncCursor(dataType string) (time.Time, error) {
	var last string
	err := d.queryRow(`SELECT last_synced FROM sync_status WHERE data_type = ?`, dataType).Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("get sync cursor %s: %w", dataType, err)
	}
	return parseDate(last), nil
}

// SetSyncCursor records the last date fully synced for a data type.
func (d *DB) SetSyncCursor(dataType string, date time.Time) error {
	_, err := d.exec(`
		INSERT INTO sync_status (data_type, last_synced)
		VALUES (?, ?)
		ON CONFLICT (data_type) DO UPDATE SET last_synced = excluded.last_synced
	`, dataType, formatDate(date))
	if err != nil {
		return fmt.Errorf("set sync cursor %s: %w", dataType, err)
	}
	return nil
}

// ListSyncCursors returns all cursors, ordered by data type.
func (d *DB) ListSyncCursors() ([]*models.SyncCursor, error) {
	rows, err := d.query(`SELECT data_type, last_synced FROM sync_status ORDER BY data_type`)
	if err != nil {
		return nil, fmt.Errorf("list sync cursors: %w", err)
	}
	defer rows.Close()

	var out []*models.SyncCursor
	for rows.Next() {
		var c models.SyncCursor
		var last string
		if err := rows.Scan(&c.DataType, &last); err != nil {
			return nil, fmt.Errorf("scan sync cursor: %w", err)
		}
		c.LastSynced = parseDate(last)
		out = append(out, &c)
	}
	return out, rows.Err()
}
