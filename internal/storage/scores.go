// ABOUTME: Storage for daily stress management and readiness scores.
// ABOUTME: Both come from export CSVs only; insert-or-ignore keyed by date.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// InsertStressDays stores daily stress scores, skipping dates already
// present.
func (d *DB) InsertStressDays(days []*models.StressDay) (int, error) {
	rows := make([][]any, 0, len(days))
	for _, day := range days {
		rows = append(rows, []any{
			formatDate(day.Date), day.StressScore,
			intArg(day.ExertionScore), intArg(day.ResponsivenessScore), intArg(day.SleepScoreComponent),
		})
	}
	return d.insertIgnore(`
		INSERT INTO stress_score (date, stress_score, exertion_score, responsiveness_score, sleep_score_component)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (date) DO NOTHING
	`, rows)
}

// ListStressDays returns rows in [start, end], oldest first.
func (d *DB) ListStressDays(start, end time.Time) ([]*models.StressDay, error) {
	rows, err := d.query(`
		SELECT date, stress_score, exertion_score, responsiveness_score, sleep_score_component
		FROM stress_score
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list stress days: %w", err)
	}
	defer rows.Close()

	var out []*models.StressDay
	for rows.Next() {
		var day models.StressDay
		var date string
		var exertion, responsiveness, sleep sql.NullInt64
		if err := rows.Scan(&date, &day.StressScore, &exertion, &responsiveness, &sleep); err != nil {
			return nil, fmt.Errorf("scan stress day: %w", err)
		}
		day.Date = parseDate(date)
		day.ExertionScore = intPtr(exertion)
		day.ResponsivenessScore = intPtr(responsiveness)
		day.SleepScoreComponent = intPtr(sleep)
		out = append(out, &day)
	}
	return out, rows.Err()
}

// InsertReadinessDays stores daily readiness scores, skipping dates
// already present.
func (d *DB) InsertReadinessDays(days []*models.ReadinessDay) (int, error) {
	rows := make([][]any, 0, len(days))
	for _, day := range days {
		rows = append(rows, []any{formatDate(day.Date), day.ReadinessScore})
	}
	return d.insertIgnore(`
		INSERT INTO readiness_score (date, readiness_score)
		VALUES (?, ?)
		ON CONFLICT (date) DO NOTHING
	`, rows)
}

// ListReadinessDays returns rows in [start, end], oldest first.
func (d *DB) ListReadinessDays(start, end time.Time) ([]*models.ReadinessDay, error) {
	rows, err := d.query(`
		SELECT date, readiness_score
		FROM readiness_score
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list readiness days: %w", err)
	}
	defer rows.Close()

	var out []*models.ReadinessDay
	for rows.Next() {
		var day models.ReadinessDay
		var date string
		if err := rows.Scan(&date, &day.ReadinessScore); err != nil {
			return nil, fmt.Errorf("scan readiness day: %w", err)
		}
		day.Date = parseDate(date)
		out = append(out, &day)
	}
	return out, rows.Err()
}
