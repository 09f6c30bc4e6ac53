// ABOUTME: Storage for nightly vitals: SpO2, HRV, breathing rate, skin temperature, VO2 max.
// ABOUTME: Archive path inserts-or-ignores; cloud-poll path upserts latest-wins per date.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// --- SpO2 ---

// InsertSpO2Days stores daily summaries, skipping dates already present.
func (d *DB) InsertSpO2Days(days []*models.SpO2Day) (int, error) {
	rows := make([][]any, 0, len(days))
	for _, day := range days {
		rows = append(rows, []any{formatDate(day.Date), floatArg(day.AvgSpO2), floatArg(day.MinSpO2), floatArg(day.MaxSpO2)})
	}
	return d.insertIgnore(`
		INSERT INTO spo2_daily (date, avg_spo2, min_spo2, max_spo2)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date) DO NOTHING
	`, rows)
}

// UpsertSpO2Day replaces the summary for a date (cloud-poll path).
func (d *DB) UpsertSpO2Day(day *models.SpO2Day) error {
	_, err := d.exec(`
		INSERT INTO spo2_daily (date, avg_spo2, min_spo2, max_spo2)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			avg_spo2 = excluded.avg_spo2,
			min_spo2 = excluded.min_spo2,
			max_spo2 = excluded.max_spo2
	`, formatDate(day.Date), floatArg(day.AvgSpO2), floatArg(day.MinSpO2), floatArg(day.MaxSpO2))
	if err != nil {
		return fmt.Errorf("upsert spo2 day: %w", err)
	}
	return nil
}

// InsertSpO2Samples stores intraday readings, skipping duplicate timestamps.
func (d *DB) InsertSpO2Samples(samples []*models.SpO2Sample) (int, error) {
	rows := make([][]any, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []any{formatTS(s.Timestamp), s.SpO2})
	}
	return d.insertIgnore(`
		INSERT INTO spo2_intraday (timestamp, spo2)
		VALUES (?, ?)
		ON CONFLICT (timestamp) DO NOTHING
	`, rows)
}

// ListSpO2Days returns daily summaries in [start, end], oldest first.
func (d *DB) ListSpO2Days(start, end time.Time) ([]*models.SpO2Day, error) {
	rows, err := d.query(`
		SELECT date, avg_spo2, min_spo2, max_spo2
		FROM spo2_daily
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list spo2 days: %w", err)
	}
	defer rows.Close()

	var out []*models.SpO2Day
	for rows.Next() {
		var day models.SpO2Day
		var date string
		var avg, min, max sql.NullFloat64
		if err := rows.Scan(&date, &avg, &min, &max); err != nil {
			return nil, fmt.Errorf("scan spo2 day: %w", err)
		}
		day.Date = parseDate(date)
		day.AvgSpO2 = floatPtr(avg)
		day.MinSpO2 = floatPtr(min)
		day.MaxSpO2 = floatPtr(max)
		out = append(out, &day)
	}
	return out, rows.Err()
}

// ListSpO2Samples returns intraday readings in [start, end), oldest first.
func (d *DB) ListSpO2Samples(start, end time.Time) ([]*models.SpO2Sample, error) {
	rows, err := d.query(`
		SELECT timestamp, spo2
		FROM spo2_intraday
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp
	`, formatTS(start), formatTS(end))
	if err != nil {
		return nil, fmt.Errorf("list spo2 samples: %w", err)
	}
	defer rows.Close()

	var out []*models.SpO2Sample
	for rows.Next() {
		var s models.SpO2Sample
		var ts string
		if err := rows.Scan(&ts, &s.SpO2); err != nil {
			return nil, fmt.Errorf("scan spo2 sample: %w", err)
		}
		s.Timestamp = parseTS(ts)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// --- HRV ---

// InsertHRVDays stores nightly summaries, skipping dates already present.
func (d *DB) InsertHRVDays(days []*models.HRVDay) (int, error) {
	rows := make([][]any, 0, len(days))
	for _, day := range days {
		rows = append(rows, []any{formatDate(day.Date), floatArg(day.DailyRMSSD), floatArg(day.DeepRMSSD)})
	}
	return d.insertIgnore(`
		INSERT INTO hrv_daily (date, daily_rmssd, deep_rmssd)
		VALUES (?, ?, ?)
		ON CONFLICT (date) DO NOTHING
	`, rows)
}

// UpsertHRVDay replaces the summary for a date (cloud-poll path).
func (d *DB) UpsertHRVDay(day *models.HRVDay) error {
	_, err := d.exec(`
		INSERT INTO hrv_daily (date, daily_rmssd, deep_rmssd)
		VALUES (?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			daily_rmssd = excluded.daily_rmssd,
			deep_rmssd = excluded.deep_rmssd
	`, formatDate(day.Date), floatArg(day.DailyRMSSD), floatArg(day.DeepRMSSD))
	if err != nil {
		return fmt.Errorf("upsert hrv day: %w", err)
	}
	return nil
}

// InsertHRVSamples stores intraday readings, skipping duplicate timestamps.
func (d *DB) InsertHRVSamples(samples []*models.HRVSample) (int, error) {
	rows := make([][]any, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []any{formatTS(s.Timestamp), s.RMSSD, floatArg(s.Coverage), floatArg(s.HF), floatArg(s.LF)})
	}
	return d.insertIgnore(`
		INSERT INTO hrv_intraday (timestamp, rmssd, coverage, hf, lf)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (timestamp) DO NOTHING
	`, rows)
}

// ListHRVDays returns nightly summaries in [start, end], oldest first.
func (d *DB) ListHRVDays(start, end time.Time) ([]*models.HRVDay, error) {
	rows, err := d.query(`
		SELECT date, daily_rmssd, deep_rmssd
		FROM hrv_daily
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list hrv days: %w", err)
	}
	defer rows.Close()

	var out []*models.HRVDay
	for rows.Next() {
		var day models.HRVDay
		var date string
		var daily, deep sql.NullFloat64
		if err := rows.Scan(&date, &daily, &deep); err != nil {
			return nil, fmt.Errorf("scan hrv day: %w", err)
		}
		day.Date = parseDate(date)
		day.DailyRMSSD = floatPtr(daily)
		day.DeepRMSSD = floatPtr(deep)
		out = append(out, &day)
	}
	return out, rows.Err()
}

// ListHRVSamples returns intraday readings in [start, end), oldest first.
func (d *DB) ListHRVSamples(start, end time.Time) ([]*models.HRVSample, error) {
	rows, err := d.query(`
		SELECT timestamp, rmssd, coverage, hf, lf
		FROM hrv_intraday
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp
	`, formatTS(start), formatTS(end))
	if err != nil {
		return nil, fmt.Errorf("list hrv samples: %w", err)
	}
	defer rows.Close()

	var out []*models.HRVSample
	for rows.Next() {
		var s models.HRVSample
		var ts string
		var coverage, hf, lf sql.NullFloat64
		if err := rows.Scan(&ts, &s.RMSSD, &coverage, &hf, &lf); err != nil {
			return nil, fmt.Errorf("scan hrv sample: %w", err)
		}
		s.Timestamp = parseTS(ts)
		s.Coverage = floatPtr(coverage)
		s.HF = floatPtr(hf)
		s.LF = floatPtr(lf)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// --- Breathing rate ---

// UpsertBreathingRateDay replaces the nightly breathing rate for a date.
func (d *DB) UpsertBreathingRateDay(day *models.BreathingRateDay) error {
	_, err := d.exec(`
		INSERT INTO breathing_rate (date, breathing_rate)
		VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET breathing_rate = excluded.breathing_rate
	`, formatDate(day.Date), day.BreathingRate)
	if err != nil {
		return fmt.Errorf("upsert breathing rate: %w", err)
	}
	return nil
}

// ListBreathingRateDays returns rows in [start, end], oldest first.
func (d *DB) ListBreathingRateDays(start, end time.Time) ([]*models.BreathingRateDay, error) {
	rows, err := d.query(`
		SELECT date, breathing_rate
		FROM breathing_rate
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list breathing rate: %w", err)
	}
	defer rows.Close()

	var out []*models.BreathingRateDay
	for rows.Next() {
		var day models.BreathingRateDay
		var date string
		if err := rows.Scan(&date, &day.BreathingRate); err != nil {
			return nil, fmt.Errorf("scan breathing rate: %w", err)
		}
		day.Date = parseDate(date)
		out = append(out, &day)
	}
	return out, rows.Err()
}

// --- Skin temperature ---

// InsertSkinTemperatureDays stores nightly deviations, skipping dates
// already present.
func (d *DB) InsertSkinTemperatureDays(days []*models.SkinTemperatureDay) (int, error) {
	rows := make([][]any, 0, len(days))
	for _, day := range days {
		rows = append(rows, []any{formatDate(day.Date), day.RelativeTemp})
	}
	return d.insertIgnore(`
		INSERT INTO skin_temperature (date, relative_temp)
		VALUES (?, ?)
		ON CONFLICT (date) DO NOTHING
	`, rows)
}

// UpsertSkinTemperatureDay replaces the deviation for a date.
func (d *DB) UpsertSkinTemperatureDay(day *models.SkinTemperatureDay) error {
	_, err := d.exec(`
		INSERT INTO skin_temperature (date, relative_temp)
		VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET relative_temp = excluded.relative_temp
	`, formatDate(day.Date), day.RelativeTemp)
	if err != nil {
		return fmt.Errorf("upsert skin temperature: %w", err)
	}
	return nil
}

// ListSkinTemperatureDays returns rows in [start, end], oldest first.
func (d *DB) ListSkinTemperatureDays(start, end time.Time) ([]*models.SkinTemperatureDay, error) {
	rows, err := d.query(`
		SELECT date, relative_temp
		FROM skin_temperature
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list skin temperature: %w", err)
	}
	defer rows.Close()

	var out []*models.SkinTemperatureDay
	for rows.Next() {
		var day models.SkinTemperatureDay
		var date string
		if err := rows.Scan(&date, &day.RelativeTemp); err != nil {
			return nil, fmt.Errorf("scan skin temperature: %w", err)
		}
		day.Date = parseDate(date)
		out = append(out, &day)
	}
	return out, rows.Err()
}

// --- VO2 max ---

// UpsertVO2MaxDay replaces the cardio fitness score for a date.
func (d *DB) UpsertVO2MaxDay(day *models.VO2MaxDay) error {
	_, err := d.exec(`
		INSERT INTO vo2_max (date, vo2_max)
		VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET vo2_max = excluded.vo2_max
	`, formatDate(day.Date), day.VO2Max)
	if err != nil {
		return fmt.Errorf("upsert vo2 max: %w", err)
	}
	return nil
}

// ListVO2MaxDays returns rows in [start, end], oldest first.
func (d *DB) ListVO2MaxDays(start, end time.Time) ([]*models.VO2MaxDay, error) {
	rows, err := d.query(`
		SELECT date, vo2_max
		FROM vo2_max
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list vo2 max: %w", err)
	}
	defer rows.Close()

	var out []*models.VO2MaxDay
	for rows.Next() {
		var day models.VO2MaxDay
		var date string
		if err := rows.Scan(&date, &day.VO2Max); err != nil {
			return nil, fmt.Errorf("scan vo2 max: %w", err)
		}
		day.Date = parseDate(date)
		out = append(out, &day)
	}
	return out, rows.Err()
}
