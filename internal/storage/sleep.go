// ABOUTME: Sleep storage: sessions keyed by log id with child stage events.
// ABOUTME: Session creation is atomic; score components merge into existing rows by date.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// SleepSessionExists reports whether a session with the given log id is
// already stored.
func (d *DB) SleepSessionExists(logID string) (bool, error) {
	var one int
	err := d.queryRow(`SELECT 1 FROM sleep_log WHERE log_id = ?`, logID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup sleep session: %w", err)
	}
	return true, nil
}

// CreateSleepSession stores a session and its stage events in one
// transaction. Any failure rolls back the whole session so stage rows
// never exist without their parent.
func (d *DB) CreateSleepSession(s *models.SleepSession, stages []*models.SleepStage) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("create sleep session: %w", err)
	}

	_, err = tx.Exec(d.rebind(`
		INSERT INTO sleep_log
			(log_id, date, start_time, end_time, duration_ms, efficiency,
			 minutes_asleep, minutes_awake, time_in_bed, type,
			 overall_score, composition_score, revitalization_score, duration_score,
			 deep_sleep_minutes, rem_sleep_minutes, light_sleep_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		s.LogID,
		formatDate(s.Date),
		formatTS(s.StartTime),
		formatTS(s.EndTime),
		intArg(s.DurationMS),
		intArg(s.Efficiency),
		intArg(s.MinutesAsleep),
		intArg(s.MinutesAwake),
		intArg(s.TimeInBed),
		strArg(s.Type),
		intArg(s.OverallScore),
		intArg(s.CompositionScore),
		intArg(s.RevitalizationScore),
		intArg(s.DurationScore),
		intArg(s.DeepSleepMinutes),
		intArg(s.RemSleepMinutes),
		intArg(s.LightSleepMinutes),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert sleep session %s: %w", s.LogID, err)
	}

	stageQuery := d.rebind(`
		INSERT INTO sleep_stages (log_id, timestamp, stage, duration_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (log_id, timestamp) DO NOTHING
	`)
	for _, st := range stages {
		if _, err := tx.Exec(stageQuery, st.LogID, formatTS(st.Timestamp), st.Stage, intArg(st.DurationSeconds)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert sleep stage for %s: %w", s.LogID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sleep session %s: %w", s.LogID, err)
	}
	return nil
}

// UpsertSleepSession stores or refreshes a session by log id without
// touching score components (the cloud API never reports them).
func (d *DB) UpsertSleepSession(s *models.SleepSession) error {
	_, err := d.exec(`
		INSERT INTO sleep_log
			(log_id, date, start_time, end_time, duration_ms, efficiency,
			 minutes_asleep, minutes_awake, time_in_bed, type,
			 deep_sleep_minutes, rem_sleep_minutes, light_sleep_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (log_id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration_ms = excluded.duration_ms,
			efficiency = excluded.efficiency,
			minutes_asleep = excluded.minutes_asleep,
			minutes_awake = excluded.minutes_awake,
			time_in_bed = excluded.time_in_bed,
			type = excluded.type,
			deep_sleep_minutes = excluded.deep_sleep_minutes,
			rem_sleep_minutes = excluded.rem_sleep_minutes,
			light_sleep_minutes = excluded.light_sleep_minutes
	`,
		s.LogID,
		formatDate(s.Date),
		formatTS(s.StartTime),
		formatTS(s.EndTime),
		intArg(s.DurationMS),
		intArg(s.Efficiency),
		intArg(s.MinutesAsleep),
		intArg(s.MinutesAwake),
		intArg(s.TimeInBed),
		strArg(s.Type),
		intArg(s.DeepSleepMinutes),
		intArg(s.RemSleepMinutes),
		intArg(s.LightSleepMinutes),
	)
	if err != nil {
		return fmt.Errorf("upsert sleep session %s: %w", s.LogID, err)
	}
	return nil
}

// InsertSleepStages stores stage events, skipping duplicates.
func (d *DB) InsertSleepStages(stages []*models.SleepStage) (int, error) {
	rows := make([][]any, 0, len(stages))
	for _, st := range stages {
		rows = append(rows, []any{st.LogID, formatTS(st.Timestamp), st.Stage, intArg(st.DurationSeconds)})
	}
	return d.insertIgnore(`
		INSERT INTO sleep_stages (log_id, timestamp, stage, duration_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (log_id, timestamp) DO NOTHING
	`, rows)
}

// MergeSleepScores folds score components into the session recorded for
// date. When several sessions share a date (a nap plus the night), the
// earliest-starting one receives the scores; the export gives no better
// tie-break. Only non-nil components are written. Returns false when no
// session exists for the date.
func (d *DB) MergeSleepScores(date time.Time, scores models.SleepScores) (bool, error) {
	var logID string
	err := d.queryRow(`
		SELECT log_id FROM sleep_log WHERE date = ? ORDER BY start_time LIMIT 1
	`, formatDate(date)).Scan(&logID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find sleep session for %s: %w", formatDate(date), err)
	}

	var sets []string
	var args []any
	if scores.Overall != nil {
		sets = append(sets, "overall_score = ?")
		args = append(args, *scores.Overall)
	}
	if scores.Composition != nil {
		sets = append(sets, "composition_score = ?")
		args = append(args, *scores.Composition)
	}
	if scores.Revitalization != nil {
		sets = append(sets, "revitalization_score = ?")
		args = append(args, *scores.Revitalization)
	}
	if scores.Duration != nil {
		sets = append(sets, "duration_score = ?")
		args = append(args, *scores.Duration)
	}
	if len(sets) == 0 {
		return true, nil
	}

	args = append(args, logID)
	query := "UPDATE sleep_log SET " + strings.Join(sets, ", ") + " WHERE log_id = ?"
	if _, err := d.exec(query, args...); err != nil {
		return false, fmt.Errorf("merge sleep scores into %s: %w", logID, err)
	}
	return true, nil
}

// ListSleepSessions returns sessions with date in [start, end], oldest first.
func (d *DB) ListSleepSessions(start, end time.Time) ([]*models.SleepSession, error) {
	rows, err := d.query(`
		SELECT log_id, date, start_time, end_time, duration_ms, efficiency,
		       minutes_asleep, minutes_awake, time_in_bed, type,
		       overall_score, composition_score, revitalization_score, duration_score,
		       deep_sleep_minutes, rem_sleep_minutes, light_sleep_minutes
		FROM sleep_log
		WHERE date >= ? AND date <= ?
		ORDER BY start_time
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list sleep sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.SleepSession
	for rows.Next() {
		s, err := scanSleepSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSleepSession(rows *sql.Rows) (*models.SleepSession, error) {
	var s models.SleepSession
	var date, startTime, endTime string
	var durationMS, efficiency, asleep, awake, inBed sql.NullInt64
	var typ sql.NullString
	var overall, composition, revitalization, duration, deep, rem, light sql.NullInt64

	err := rows.Scan(&s.LogID, &date, &startTime, &endTime, &durationMS, &efficiency,
		&asleep, &awake, &inBed, &typ,
		&overall, &composition, &revitalization, &duration,
		&deep, &rem, &light)
	if err != nil {
		return nil, fmt.Errorf("scan sleep session: %w", err)
	}

	s.Date = parseDate(date)
	s.StartTime = parseTS(startTime)
	s.EndTime = parseTS(endTime)
	s.DurationMS = intPtr(durationMS)
	s.Efficiency = intPtr(efficiency)
	s.MinutesAsleep = intPtr(asleep)
	s.MinutesAwake = intPtr(awake)
	s.TimeInBed = intPtr(inBed)
	s.Type = strPtr(typ)
	s.OverallScore = intPtr(overall)
	s.CompositionScore = intPtr(composition)
	s.RevitalizationScore = intPtr(revitalization)
	s.DurationScore = intPtr(duration)
	s.DeepSleepMinutes = intPtr(deep)
	s.RemSleepMinutes = intPtr(rem)
	s.LightSleepMinutes = intPtr(light)
	return &s, nil
}

// ListSleepStages returns the stage events of one session, oldest first.
func (d *DB) ListSleepStages(logID string) ([]*models.SleepStage, error) {
	rows, err := d.query(`
		SELECT log_id, timestamp, stage, duration_seconds
		FROM sleep_stages
		WHERE log_id = ?
		ORDER BY timestamp
	`, logID)
	if err != nil {
		return nil, fmt.Errorf("list sleep stages: %w", err)
	}
	defer rows.Close()

	var out []*models.SleepStage
	for rows.Next() {
		var st models.SleepStage
		var ts string
		var duration sql.NullInt64
		if err := rows.Scan(&st.LogID, &ts, &st.Stage, &duration); err != nil {
			return nil, fmt.Errorf("scan sleep stage: %w", err)
		}
		st.Timestamp = parseTS(ts)
		st.DurationSeconds = intPtr(duration)
		out = append(out, &st)
	}
	return out, rows.Err()
}
