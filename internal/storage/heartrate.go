// ABOUTME: Heart rate storage: intraday samples and daily summaries.
// ABOUTME: Samples dedup on timestamp; daily summaries upsert latest-wins for the sync path.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// InsertHeartRateSamples stores intraday samples, skipping any whose
// timestamp already exists. Returns the number actually inserted.
func (d *DB) InsertHeartRateSamples(samples []*models.HeartRateSample) (int, error) {
	rows := make([][]any, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []any{formatTS(s.Timestamp), s.BPM, intArg(s.Confidence)})
	}
	return d.insertIgnore(`
		INSERT INTO heart_rate_intraday (timestamp, bpm, confidence)
		VALUES (?, ?, ?)
		ON CONFLICT (timestamp) DO NOTHING
	`, rows)
}

// UpsertHeartRateDay stores a daily summary, replacing an existing row for
// the same date. The cloud poll re-fetches whole days, so latest wins.
func (d *DB) UpsertHeartRateDay(day *models.HeartRateDay) error {
	_, err := d.exec(`
		INSERT INTO heart_rate_daily
			(date, resting_heart_rate, fat_burn_minutes, cardio_minutes, peak_minutes, out_of_range_minutes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			resting_heart_rate = excluded.resting_heart_rate,
			fat_burn_minutes = excluded.fat_burn_minutes,
			cardio_minutes = excluded.cardio_minutes,
			peak_minutes = excluded.peak_minutes,
			out_of_range_minutes = excluded.out_of_range_minutes
	`,
		formatDate(day.Date),
		intArg(day.RestingHeartRate),
		intArg(day.FatBurnMinutes),
		intArg(day.CardioMinutes),
		intArg(day.PeakMinutes),
		intArg(day.OutOfRangeMinutes),
	)
	if err != nil {
		return fmt.Errorf("upsert heart rate day: %w", err)
	}
	return nil
}

// ListHeartRateSamples returns samples in [start, end), oldest first.
func (d *DB) ListHeartRateSamples(start, end time.Time) ([]*models.HeartRateSample, error) {
	rows, err := d.query(`
		SELECT timestamp, bpm, confidence
		FROM heart_rate_intraday
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp
	`, formatTS(start), formatTS(end))
	if err != nil {
		return nil, fmt.Errorf("list heart rate samples: %w", err)
	}
	defer rows.Close()

	var out []*models.HeartRateSample
	for rows.Next() {
		var s models.HeartRateSample
		var ts string
		var confidence sql.NullInt64
		if err := rows.Scan(&ts, &s.BPM, &confidence); err != nil {
			return nil, fmt.Errorf("scan heart rate sample: %w", err)
		}
		s.Timestamp = parseTS(ts)
		s.Confidence = intPtr(confidence)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// ListHeartRateDays returns daily summaries in [start, end], oldest first.
func (d *DB) ListHeartRateDays(start, end time.Time) ([]*models.HeartRateDay, error) {
	rows, err := d.query(`
		SELECT date, resting_heart_rate, fat_burn_minutes, cardio_minutes, peak_minutes, out_of_range_minutes
		FROM heart_rate_daily
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list heart rate days: %w", err)
	}
	defer rows.Close()

	var out []*models.HeartRateDay
	for rows.Next() {
		var day models.HeartRateDay
		var date string
		var resting, fatBurn, cardio, peak, oor sql.NullInt64
		if err := rows.Scan(&date, &resting, &fatBurn, &cardio, &peak, &oor); err != nil {
			return nil, fmt.Errorf("scan heart rate day: %w", err)
		}
		day.Date = parseDate(date)
		day.RestingHeartRate = intPtr(resting)
		day.FatBurnMinutes = intPtr(fatBurn)
		day.CardioMinutes = intPtr(cardio)
		day.PeakMinutes = intPtr(peak)
		day.OutOfRangeMinutes = intPtr(oor)
		out = append(out, &day)
	}
	return out, rows.Err()
}
