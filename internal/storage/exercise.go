// ABOUTME: Storage for logged exercise sessions, keyed by provider log id.
// ABOUTME: Archive path inserts-or-ignores; cloud-poll path upserts latest-wins.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// InsertExercises stores sessions, skipping log ids already present.
func (d *DB) InsertExercises(sessions []*models.ExerciseSession) (int, error) {
	rows := make([][]any, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, exerciseArgs(s))
	}
	return d.insertIgnore(`
		INSERT INTO exercises (log_id, date, start_time, end_time, activity_name,
			duration_ms, calories, average_heart_rate, steps, distance_km)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (log_id) DO NOTHING
	`, rows)
}

// UpsertExercise replaces a session by log id (cloud-poll path).
func (d *DB) UpsertExercise(s *models.ExerciseSession) error {
	_, err := d.exec(`
		INSERT INTO exercises (log_id, date, start_time, end_time, activity_name,
			duration_ms, calories, average_heart_rate, steps, distance_km)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (log_id) DO UPDATE SET
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			activity_name = excluded.activity_name,
			duration_ms = excluded.duration_ms,
			calories = excluded.calories,
			average_heart_rate = excluded.average_heart_rate,
			steps = excluded.steps,
			distance_km = excluded.distance_km
	`, exerciseArgs(s)...)
	if err != nil {
		return fmt.Errorf("upsert exercise %s: %w", s.LogID, err)
	}
	return nil
}

func exerciseArgs(s *models.ExerciseSession) []any {
	return []any{
		s.LogID, formatDate(s.Date), formatTS(s.StartTime), tsArg(s.EndTime),
		s.ActivityName, intArg(s.DurationMS), intArg(s.Calories),
		intArg(s.AverageHeartRate), intArg(s.Steps), floatArg(s.DistanceKM),
	}
}

// ListExercises returns sessions whose date falls in [start, end], most
// recent first.
func (d *DB) ListExercises(start, end time.Time) ([]*models.ExerciseSession, error) {
	rows, err := d.query(`
		SELECT log_id, date, start_time, end_time, activity_name,
			duration_ms, calories, average_heart_rate, steps, distance_km
		FROM exercises
		WHERE date >= ? AND date <= ?
		ORDER BY start_time DESC
	`, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var out []*models.ExerciseSession
	for rows.Next() {
		var s models.ExerciseSession
		var date, startTime string
		var endTime sql.NullString
		var durationMS, calories, avgHR, steps sql.NullInt64
		var distance sql.NullFloat64
		if err := rows.Scan(&s.LogID, &date, &startTime, &endTime, &s.ActivityName,
			&durationMS, &calories, &avgHR, &steps, &distance); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		s.Date = parseDate(date)
		s.StartTime = parseTS(startTime)
		s.EndTime = tsPtr(endTime)
		s.DurationMS = intPtr(durationMS)
		s.Calories = intPtr(calories)
		s.AverageHeartRate = intPtr(avgHR)
		s.Steps = intPtr(steps)
		s.DistanceKM = floatPtr(distance)
		out = append(out, &s)
	}
	return out, rows.Err()
}
