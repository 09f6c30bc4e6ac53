// ABOUTME: Activity storage: intraday samples keyed by (timestamp, metric) and daily summaries.
// ABOUTME: Daily rows accept partial writes so AZM files and aggregation can fill them independently.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// InsertActivitySamples stores intraday samples, skipping duplicates on
// (timestamp, metric). Returns the number actually inserted.
func (d *DB) InsertActivitySamples(samples []*models.ActivitySample) (int, error) {
	rows := make([][]any, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []any{formatTS(s.Timestamp), s.Metric, s.Value})
	}
	return d.insertIgnore(`
		INSERT INTO activity_intraday (timestamp, metric, value)
		VALUES (?, ?, ?)
		ON CONFLICT (timestamp, metric) DO NOTHING
	`, rows)
}

// UpsertActivityDay stores a full daily summary, replacing an existing row
// for the same date (cloud-poll path, latest wins).
func (d *DB) UpsertActivityDay(day *models.ActivityDay) error {
	_, err := d.exec(`
		INSERT INTO activity_daily
			(date, steps, distance_km, floors, calories_total, calories_active,
			 minutes_sedentary, minutes_lightly_active, minutes_fairly_active,
			 minutes_very_active, active_zone_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			steps = excluded.steps,
			distance_km = excluded.distance_km,
			floors = excluded.floors,
			calories_total = excluded.calories_total,
			calories_active = excluded.calories_active,
			minutes_sedentary = excluded.minutes_sedentary,
			minutes_lightly_active = excluded.minutes_lightly_active,
			minutes_fairly_active = excluded.minutes_fairly_active,
			minutes_very_active = excluded.minutes_very_active,
			active_zone_minutes = excluded.active_zone_minutes
	`,
		formatDate(day.Date),
		intArg(day.Steps),
		floatArg(day.DistanceKM),
		intArg(day.Floors),
		intArg(day.CaloriesTotal),
		intArg(day.CaloriesActive),
		intArg(day.MinutesSedentary),
		intArg(day.MinutesLightlyActive),
		intArg(day.MinutesFairlyActive),
		intArg(day.MinutesVeryActive),
		intArg(day.ActiveZoneMinutes),
	)
	if err != nil {
		return fmt.Errorf("upsert activity day: %w", err)
	}
	return nil
}

// SetActiveZoneMinutes upserts just the active_zone_minutes field for a
// date, creating a stub daily row when none exists yet.
func (d *DB) SetActiveZoneMinutes(date time.Time, minutes int) error {
	_, err := d.exec(`
		INSERT INTO activity_daily (date, active_zone_minutes)
		VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET active_zone_minutes = excluded.active_zone_minutes
	`, formatDate(date), minutes)
	if err != nil {
		return fmt.Errorf("set active zone minutes: %w", err)
	}
	return nil
}

// DayMetricSum is one (day, metric) group of summed intraday values.
// Day keeps the YYYY-MM-DD form the query groups on.
type DayMetricSum struct {
	Day    string
	Metric string
	Total  float64
}

// SumActivityByDay groups the whole intraday table by calendar day and
// metric with per-group sums, ordered by day then metric.
func (d *DB) SumActivityByDay() ([]DayMetricSum, error) {
	rows, err := d.query(`
		SELECT substr(timestamp, 1, 10) AS day, metric, SUM(value)
		FROM activity_intraday
		GROUP BY substr(timestamp, 1, 10), metric
		ORDER BY day, metric
	`)
	if err != nil {
		return nil, fmt.Errorf("sum activity by day: %w", err)
	}
	defer rows.Close()

	var out []DayMetricSum
	for rows.Next() {
		var g DayMetricSum
		if err := rows.Scan(&g.Day, &g.Metric, &g.Total); err != nil {
			return nil, fmt.Errorf("scan activity sum: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetActivityDay returns the daily summary for date, or ErrNotFound.
func (d *DB) GetActivityDay(date time.Time) (*models.ActivityDay, error) {
	row := d.queryRow(`
		SELECT date, steps, distance_km, floors, calories_total, calories_active,
		       minutes_sedentary, minutes_lightly_active, minutes_fairly_active,
		       minutes_very_active, active_zone_minutes
		FROM activity_daily
		WHERE date = ?
	`, formatDate(date))

	day, err := scanActivityDay(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get activity day: %w", err)
	}
	return day, nil
}

// CreateActivityDay inserts a new daily summary row.
func (d *DB) CreateActivityDay(day *models.ActivityDay) error {
	_, err := d.exec(`
		INSERT INTO activity_daily (date, steps, distance_km, calories_total)
		VALUES (?, ?, ?, ?)
	`, formatDate(day.Date), intArg(day.Steps), floatArg(day.DistanceKM), intArg(day.CaloriesTotal))
	if err != nil {
		return fmt.Errorf("create activity day: %w", err)
	}
	return nil
}

// FillActivityDayGaps writes steps, calories and distance into an existing
// daily row only where the stored value is NULL. Values from a richer
// direct-summary source are never overwritten.
func (d *DB) FillActivityDayGaps(date time.Time, steps *int, calories *int, distanceKM *float64) error {
	_, err := d.exec(`
		UPDATE activity_daily SET
			steps = COALESCE(steps, ?),
			calories_total = COALESCE(calories_total, ?),
			distance_km = COALESCE(distance_km, ?)
		WHERE date = ?
	`, intArg(steps), intArg(calories), floatArg(distanceKM), formatDate(date))
	if err != nil {
		return fmt.Errorf("fill activity day gaps: %w", err)
	}
	return nil
}

// ListActivityDays returns daily summaries in [start, end], oldest first.
func (d *DB) ListActivityDays(start, end time.Time) ([]*models.ActivityDay, error) {
	rows, err := d.query(`
		SELECT date, steps, distance_km, floors, calories_total, calories_active,
		       minutes_sedentary, minutes_lightly_active, minutes_fairly_active,
		       minutes_very_active, active_zone_minutes
		FROM activity_daily
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list activity days: %w", err)
	}
	defer rows.Close()

	var out []*models.ActivityDay
	for rows.Next() {
		day, err := scanActivityDay(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan activity day: %w", err)
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

// ListActivitySamples returns intraday samples for one metric in
// [start, end), oldest first.
func (d *DB) ListActivitySamples(metric string, start, end time.Time) ([]*models.ActivitySample, error) {
	rows, err := d.query(`
		SELECT timestamp, metric, value
		FROM activity_intraday
		WHERE metric = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp
	`, metric, formatTS(start), formatTS(end))
	if err != nil {
		return nil, fmt.Errorf("list activity samples: %w", err)
	}
	defer rows.Close()

	var out []*models.ActivitySample
	for rows.Next() {
		var s models.ActivitySample
		var ts string
		if err := rows.Scan(&ts, &s.Metric, &s.Value); err != nil {
			return nil, fmt.Errorf("scan activity sample: %w", err)
		}
		s.Timestamp = parseTS(ts)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func scanActivityDay(scan func(dest ...any) error) (*models.ActivityDay, error) {
	var day models.ActivityDay
	var date string
	var steps, floors, calTotal, calActive, sedentary, lightly, fairly, very, azm sql.NullInt64
	var distance sql.NullFloat64

	err := scan(&date, &steps, &distance, &floors, &calTotal, &calActive,
		&sedentary, &lightly, &fairly, &very, &azm)
	if err != nil {
		return nil, err
	}

	day.Date = parseDate(date)
	day.Steps = intPtr(steps)
	day.DistanceKM = floatPtr(distance)
	day.Floors = intPtr(floors)
	day.CaloriesTotal = intPtr(calTotal)
	day.CaloriesActive = intPtr(calActive)
	day.MinutesSedentary = intPtr(sedentary)
	day.MinutesLightlyActive = intPtr(lightly)
	day.MinutesFairlyActive = intPtr(fairly)
	day.MinutesVeryActive = intPtr(very)
	day.ActiveZoneMinutes = intPtr(azm)
	return &day, nil
}
