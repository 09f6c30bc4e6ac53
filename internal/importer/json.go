// ABOUTME: Decoders for the JSON file families under Global Export Data.
// ABOUTME: A bad file skips the file, a bad entry skips the entry; nothing aborts the archive.
package importer

import (
	"encoding/json"
	"time"

	"github.com/harperreed/pulse/internal/archive"
	"github.com/harperreed/pulse/internal/coerce"
	"github.com/harperreed/pulse/internal/models"
)

// readEntries decodes one member as a JSON array, keeping each entry raw
// so that one malformed entry cannot sink the rest of the file.
func (im *Importer) readEntries(a *archive.Archive, name string) []json.RawMessage {
	var entries []json.RawMessage
	if err := a.ReadJSON(name, &entries); err != nil {
		im.log.Warn("skipping file", "file", name, "err", err)
		return nil
	}
	return entries
}

// decodeHeartRate imports heart_rate-*.json files. The value field is
// either an object {bpm, confidence} or a bare number.
func (im *Importer) decodeHeartRate(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.HeartRateSample

	flush := func() {
		n, err := im.store.InsertHeartRateSamples(batch)
		if err != nil {
			im.log.Warn("heart rate batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, raw := range im.readEntries(a, name) {
			var entry struct {
				DateTime string `json:"dateTime"`
				Value    any    `json:"value"`
			}
			if err := json.Unmarshal(raw, &entry); err != nil {
				im.log.Debug("heart rate entry error", "err", err)
				continue
			}
			ts, err := coerce.Timestamp(entry.DateTime)
			if err != nil {
				im.log.Debug("heart rate entry error", "err", err)
				continue
			}

			var bpm, confidence *int
			if obj, ok := entry.Value.(map[string]any); ok {
				bpm = coerce.Int(obj["bpm"])
				confidence = coerce.Int(obj["confidence"])
			} else {
				bpm = coerce.Int(entry.Value)
			}
			if bpm == nil {
				continue
			}

			batch = append(batch, &models.HeartRateSample{Timestamp: ts, BPM: *bpm, Confidence: confidence})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

type sleepStageEntry struct {
	DateTime string `json:"dateTime"`
	Level    string `json:"level"`
	Seconds  any    `json:"seconds"`
}

type sleepEntry struct {
	LogID         json.Number `json:"logId"`
	StartTime     string      `json:"startTime"`
	EndTime       string      `json:"endTime"`
	Duration      any         `json:"duration"`
	Efficiency    any         `json:"efficiency"`
	MinutesAsleep any         `json:"minutesAsleep"`
	MinutesAwake  any         `json:"minutesAwake"`
	TimeInBed     any         `json:"timeInBed"`
	Type          string      `json:"type"`
	Levels        struct {
		Summary map[string]struct {
			Minutes any `json:"minutes"`
		} `json:"summary"`
		Data      []sleepStageEntry `json:"data"`
		ShortData []sleepStageEntry `json:"shortData"`
	} `json:"levels"`
}

// decodeSleep imports sleep-*.json files. Sessions already in the store
// are skipped entirely; a failure inside one session rolls back that
// session only.
func (im *Importer) decodeSleep(a *archive.Archive, files []string) int {
	total := 0

	for _, name := range files {
		for _, raw := range im.readEntries(a, name) {
			var entry sleepEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				im.log.Warn("sleep entry error", "file", name, "err", err)
				continue
			}
			logID := entry.LogID.String()
			if logID == "" {
				continue
			}

			exists, err := im.store.SleepSessionExists(logID)
			if err != nil {
				im.log.Warn("sleep lookup failed", "log_id", logID, "err", err)
				continue
			}
			if exists {
				continue
			}

			start, err := coerce.Timestamp(entry.StartTime)
			if err != nil {
				im.log.Warn("sleep entry error", "file", name, "err", err)
				continue
			}
			end, err := coerce.Timestamp(entry.EndTime)
			if err != nil {
				im.log.Warn("sleep entry error", "file", name, "err", err)
				continue
			}

			session := &models.SleepSession{
				LogID:         logID,
				Date:          start.Truncate(24 * time.Hour),
				StartTime:     start,
				EndTime:       end,
				DurationMS:    coerce.Int(entry.Duration),
				Efficiency:    coerce.Int(entry.Efficiency),
				MinutesAsleep: coerce.Int(entry.MinutesAsleep),
				MinutesAwake:  coerce.Int(entry.MinutesAwake),
				TimeInBed:     coerce.Int(entry.TimeInBed),
			}
			if entry.Type != "" {
				t := entry.Type
				session.Type = &t
			}
			if s, ok := entry.Levels.Summary["deep"]; ok {
				session.DeepSleepMinutes = coerce.Int(s.Minutes)
			}
			if s, ok := entry.Levels.Summary["rem"]; ok {
				session.RemSleepMinutes = coerce.Int(s.Minutes)
			}
			if s, ok := entry.Levels.Summary["light"]; ok {
				session.LightSleepMinutes = coerce.Int(s.Minutes)
			}

			var stages []*models.SleepStage
			for _, se := range append(entry.Levels.Data, entry.Levels.ShortData...) {
				ts, err := coerce.Timestamp(se.DateTime)
				if err != nil {
					im.log.Debug("sleep stage entry error", "err", err)
					continue
				}
				stage := se.Level
				if stage == "" {
					stage = "unknown"
				}
				stages = append(stages, &models.SleepStage{
					LogID:           logID,
					Timestamp:       ts,
					Stage:           stage,
					DurationSeconds: coerce.Int(se.Seconds),
				})
			}

			if err := im.store.CreateSleepSession(session, stages); err != nil {
				im.log.Warn("sleep session insert failed", "log_id", logID, "err", err)
				continue
			}
			total++
		}
	}
	return total
}

// decodeActivity imports one intraday metric family (steps, calories,
// distance, altitude). Entries are {dateTime, value}.
func (im *Importer) decodeActivity(a *archive.Archive, files []string, metric string) int {
	total := 0
	var batch []*models.ActivitySample

	flush := func() {
		n, err := im.store.InsertActivitySamples(batch)
		if err != nil {
			im.log.Warn("activity batch failed", "metric", metric, "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, raw := range im.readEntries(a, name) {
			var entry struct {
				DateTime string `json:"dateTime"`
				Value    any    `json:"value"`
			}
			if err := json.Unmarshal(raw, &entry); err != nil {
				im.log.Debug("activity entry error", "metric", metric, "err", err)
				continue
			}
			ts, err := coerce.Timestamp(entry.DateTime)
			if err != nil {
				im.log.Debug("activity entry error", "metric", metric, "err", err)
				continue
			}
			value := coerce.Float(entry.Value)
			if value == nil {
				continue
			}

			batch = append(batch, &models.ActivitySample{Timestamp: ts, Metric: metric, Value: *value})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

// decodeExercise imports exercise-*.json files. The end instant comes
// from an explicit endTime, else start plus activeDuration milliseconds,
// else stays unknown.
func (im *Importer) decodeExercise(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.ExerciseSession

	flush := func() {
		n, err := im.store.InsertExercises(batch)
		if err != nil {
			im.log.Warn("exercise batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, raw := range im.readEntries(a, name) {
			var entry struct {
				LogID            json.Number `json:"logId"`
				StartTime        string      `json:"startTime"`
				EndTime          string      `json:"endTime"`
				ActivityName     string      `json:"activityName"`
				ActiveDuration   any         `json:"activeDuration"`
				Duration         any         `json:"duration"`
				Calories         any         `json:"calories"`
				AverageHeartRate any         `json:"averageHeartRate"`
				Steps            any         `json:"steps"`
				Distance         any         `json:"distance"`
			}
			if err := json.Unmarshal(raw, &entry); err != nil {
				im.log.Warn("exercise entry error", "file", name, "err", err)
				continue
			}
			logID := entry.LogID.String()
			if logID == "" {
				continue
			}

			start, err := coerce.Timestamp(entry.StartTime)
			if err != nil {
				im.log.Warn("exercise entry error", "file", name, "err", err)
				continue
			}

			var end *time.Time
			if entry.EndTime != "" {
				if t, err := coerce.Timestamp(entry.EndTime); err == nil {
					end = &t
				}
			}
			if end == nil {
				if ms := coerce.Int(entry.ActiveDuration); ms != nil {
					t := start.Add(time.Duration(*ms) * time.Millisecond)
					end = &t
				}
			}

			activityName := entry.ActivityName
			if activityName == "" {
				activityName = "Unknown"
			}
			duration := coerce.Int(entry.ActiveDuration)
			if duration == nil {
				duration = coerce.Int(entry.Duration)
			}

			batch = append(batch, &models.ExerciseSession{
				LogID:            logID,
				Date:             start.Truncate(24 * time.Hour),
				StartTime:        start,
				EndTime:          end,
				ActivityName:     activityName,
				DurationMS:       duration,
				Calories:         coerce.Int(entry.Calories),
				AverageHeartRate: coerce.Int(entry.AverageHeartRate),
				Steps:            coerce.Int(entry.Steps),
				DistanceKM:       coerce.Float(entry.Distance),
			})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}
