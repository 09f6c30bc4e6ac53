// ABOUTME: Storage for continuous glucose monitor readings.
// ABOUTME: Keyed by timestamp; source column records csv_import vs librelinkup.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// InsertGlucoseReadings stores readings, skipping duplicate timestamps.
func (d *DB) InsertGlucoseReadings(readings []*models.GlucoseReading) (int, error) {
	rows := make([][]any, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, []any{formatTS(r.Timestamp), r.Value, r.Source})
	}
	return d.insertIgnore(`
		INSERT INTO glucose_readings (timestamp, value, source)
		VALUES (?, ?, ?)
		ON CONFLICT (timestamp) DO NOTHING
	`, rows)
}

// LatestGlucoseReading returns the most recent reading, or ErrNotFound
// when the table is empty.
func (d *DB) LatestGlucoseReading() (*models.GlucoseReading, error) {
	var r models.GlucoseReading
	var ts string
	err := d.queryRow(`
		SELECT timestamp, value, source
		FROM glucose_readings
		ORDER BY timestamp DESC
		LIMIT 1
	`).Scan(&ts, &r.Value, &r.Source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest glucose reading: %w", err)
	}
	r.Timestamp = parseTS(ts)
	return &r, nil
}

// ListGlucoseReadings returns readings in [start, end), oldest first.
func (d *DB) ListGlucoseReadings(start, end time.Time) ([]*models.GlucoseReading, error) {
	rows, err := d.query(`
		SELECT timestamp, value, source
		FROM glucose_readings
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp
	`, formatTS(start), formatTS(end))
	if err != nil {
		return nil, fmt.Errorf("list glucose readings: %w", err)
	}
	defer rows.Close()

	var out []*models.GlucoseReading
	for rows.Next() {
		var r models.GlucoseReading
		var ts string
		if err := rows.Scan(&ts, &r.Value, &r.Source); err != nil {
			return nil, fmt.Errorf("scan glucose reading: %w", err)
		}
		r.Timestamp = parseTS(ts)
		out = append(out, &r)
	}
	return out, rows.Err()
}
