// ABOUTME: End-to-end ingestion tests against generated export ZIPs.
// ABOUTME: Covers both layouts, malformed rows, duplicate skips, and the daily backfill.
package importer

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pulse/internal/models"
	"github.com/harperreed/pulse/internal/storage"
)

func setupTest(t *testing.T) (*Importer, *storage.DB) {
	t.Helper()
	db, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, log.New(io.Discard)), db
}

func buildZip(t *testing.T, members map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range members {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close file: %v", err)
	}
	return path
}

const takeoutBase = "Takeout/Fitbit/"

func TestIngestMissingArchive(t *testing.T) {
	im, _ := setupTest(t)
	if _, err := im.Ingest(filepath.Join(t.TempDir(), "nope.zip")); !errors.Is(err, ErrArchiveNotFound) {
		t.Errorf("Expected ErrArchiveNotFound, got %v", err)
	}
}

func TestIngestUnrecognizedArchive(t *testing.T) {
	im, _ := setupTest(t)
	path := buildZip(t, map[string]string{
		"random/readme.txt": "nothing to see",
	})
	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(summary) != 0 {
		t.Errorf("Expected empty summary, got %v", summary)
	}
}

func TestIngestHeartRate(t *testing.T) {
	im, db := setupTest(t)
	path := buildZip(t, map[string]string{
		takeoutBase + "Global Export Data/heart_rate-2024-01-15.json": `[
			{"dateTime": "01/15/24 08:00:00", "value": {"bpm": 62, "confidence": 2}},
			{"dateTime": "01/15/24 08:00:05", "value": 72},
			{"dateTime": "not a timestamp", "value": {"bpm": 70}},
			{"dateTime": "01/15/24 08:00:10", "value": {"confidence": 3}}
		]`,
	})

	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary[models.TypeHeartRateIntraday] != 2 {
		t.Errorf("Expected 2 heart rate records, got %d", summary[models.TypeHeartRateIntraday])
	}

	start, _ := time.Parse("2006-01-02", "2024-01-15")
	samples, err := db.ListHeartRateSamples(start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ListHeartRateSamples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0].BPM != 62 || samples[0].Confidence == nil || *samples[0].Confidence != 2 {
		t.Errorf("First sample mismatch: %+v", samples[0])
	}
	// Bare-number value has no confidence.
	if samples[1].BPM != 72 || samples[1].Confidence != nil {
		t.Errorf("Second sample mismatch: %+v", samples[1])
	}
}

func TestIngestSkipsUnreadableFile(t *testing.T) {
	im, db := setupTest(t)
	path := buildZip(t, map[string]string{
		takeoutBase + "Global Export Data/heart_rate-2024-01-14.json": `{not json at all`,
		takeoutBase + "Global Export Data/heart_rate-2024-01-15.json": `[
			{"dateTime": "01/15/24 08:00:00", "value": {"bpm": 62, "confidence": 2}},
			{"dateTime": "01/15/24 08:00:05", "value": 70}
		]`,
	})

	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary[models.TypeHeartRateIntraday] != 2 {
		t.Errorf("Expected 2 heart rate records, got %d", summary[models.TypeHeartRateIntraday])
	}

	start, _ := time.Parse("2006-01-02", "2024-01-15")
	samples, err := db.ListHeartRateSamples(start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ListHeartRateSamples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Errorf("Expected 2 samples from the readable file, got %d", len(samples))
	}
}

func TestIngestSleep(t *testing.T) {
	im, db := setupTest(t)
	sleepJSON := `[{
		"logId": 12345,
		"startTime": "2024-01-14T23:00:00.000",
		"endTime": "2024-01-15T07:00:00.000",
		"duration": 28800000,
		"efficiency": 94,
		"minutesAsleep": 441,
		"minutesAwake": 39,
		"timeInBed": 480,
		"type": "stages",
		"levels": {
			"summary": {
				"deep": {"minutes": 90},
				"rem": {"minutes": 110},
				"light": {"minutes": 241}
			},
			"data": [
				{"dateTime": "2024-01-14T23:00:00.000", "level": "wake", "seconds": 300},
				{"dateTime": "2024-01-14T23:05:00.000", "level": "light", "seconds": 1800}
			],
			"shortData": [
				{"dateTime": "2024-01-15T02:10:00.000", "level": "wake", "seconds": 60}
			]
		}
	}]`
	path := buildZip(t, map[string]string{
		takeoutBase + "Global Export Data/sleep-2024-01-15.json": sleepJSON,
	})

	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary[models.TypeSleepLogs] != 1 {
		t.Errorf("Expected 1 sleep log, got %d", summary[models.TypeSleepLogs])
	}

	day, _ := time.Parse("2006-01-02", "2024-01-14")
	sessions, err := db.ListSleepSessions(day, day)
	if err != nil {
		t.Fatalf("ListSleepSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.LogID != "12345" {
		t.Errorf("Expected log id 12345, got %s", s.LogID)
	}
	if s.DeepSleepMinutes == nil || *s.DeepSleepMinutes != 90 {
		t.Errorf("Expected deep minutes 90, got %v", s.DeepSleepMinutes)
	}

	stages, err := db.ListSleepStages("12345")
	if err != nil {
		t.Fatalf("ListSleepStages failed: %v", err)
	}
	// levels.data plus levels.shortData.
	if len(stages) != 3 {
		t.Errorf("Expected 3 stages, got %d", len(stages))
	}

	// A second import of the same session is skipped entirely.
	summary, err = im.Ingest(path)
	if err != nil {
		t.Fatalf("Re-ingest failed: %v", err)
	}
	if _, ok := summary[models.TypeSleepLogs]; ok {
		t.Errorf("Expected sleep_logs absent on re-import, got %v", summary)
	}
}

func TestIngestActivityWithAggregation(t *testing.T) {
	im, db := setupTest(t)
	path := buildZip(t, map[string]string{
		takeoutBase + "Global Export Data/steps-2024-01-15.json": `[
			{"dateTime": "01/15/24 08:00:00", "value": "120"},
			{"dateTime": "01/15/24 08:01:00", "value": "80"}
		]`,
		takeoutBase + "Global Export Data/calories-2024-01-15.json": `[
			{"dateTime": "01/15/24 08:00:00", "value": "1.5"},
			{"dateTime": "01/15/24 08:01:00", "value": "2.5"}
		]`,
	})

	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary[models.TypeStepsIntraday] != 2 {
		t.Errorf("Expected 2 steps records, got %d", summary[models.TypeStepsIntraday])
	}
	if summary[models.TypeCaloriesIntraday] != 2 {
		t.Errorf("Expected 2 calories records, got %d", summary[models.TypeCaloriesIntraday])
	}
	if summary[models.TypeActivityDailyAgg] != 1 {
		t.Errorf("Expected 1 aggregated day, got %d", summary[models.TypeActivityDailyAgg])
	}

	day, _ := time.Parse("2006-01-02", "2024-01-15")
	got, err := db.GetActivityDay(day)
	if err != nil {
		t.Fatalf("GetActivityDay failed: %v", err)
	}
	if got.Steps == nil || *got.Steps != 200 {
		t.Errorf("Expected 200 steps backfilled, got %v", got.Steps)
	}
	if got.CaloriesTotal == nil || *got.CaloriesTotal != 4 {
		t.Errorf("Expected 4 calories backfilled, got %v", got.CaloriesTotal)
	}
}

func TestIngestHRVSkipsBadRows(t *testing.T) {
	im, db := setupTest(t)
	path := buildZip(t, map[string]string{
		takeoutBase + "Heart Rate Variability/Daily Heart Rate Variability Summary - 2024-01-15.csv": "timestamp,rmssd,nremRmssd\n" +
			"2024-01-15T00:00:00,42.1,48.0\n" +
			"garbage,50.0,51.0\n" +
			"2024-01-16T00:00:00,,\n" +
			"2024-01-17T00:00:00,39.5,\n",
	})

	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	// Bad-date and all-empty rows skipped, valid rows kept.
	if summary[models.TypeHRVDaily] != 2 {
		t.Errorf("Expected 2 hrv days, got %d", summary[models.TypeHRVDaily])
	}

	start, _ := time.Parse("2006-01-02", "2024-01-15")
	days, err := db.ListHRVDays(start, start.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("ListHRVDays failed: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("Expected 2 days, got %d", len(days))
	}
	if days[0].DailyRMSSD == nil || *days[0].DailyRMSSD != 42.1 {
		t.Errorf("First day mismatch: %+v", days[0])
	}
	if days[1].DeepRMSSD != nil {
		t.Errorf("Expected nil deep rmssd, got %v", *days[1].DeepRMSSD)
	}
}

func TestIngestActiveZoneMinutesUpsert(t *testing.T) {
	im, db := setupTest(t)

	first := buildZip(t, map[string]string{
		takeoutBase + "Active Zone Minutes (AZM)/Active Zone Minutes - 2024-01-15.csv": "date,fat_burn_minutes,cardio_minutes,peak_minutes\n" +
			"2024-01-15,10,5,2\n" +
			"2024-01-16,0,0,0\n",
	})
	summary, err := im.Ingest(first)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	// Zero sum is noise, not a valid zero.
	if summary[models.TypeActiveZoneMinutes] != 1 {
		t.Errorf("Expected 1 azm row, got %d", summary[models.TypeActiveZoneMinutes])
	}

	day, _ := time.Parse("2006-01-02", "2024-01-15")
	got, err := db.GetActivityDay(day)
	if err != nil {
		t.Fatalf("GetActivityDay failed: %v", err)
	}
	if got.ActiveZoneMinutes == nil || *got.ActiveZoneMinutes != 17 {
		t.Errorf("Expected 17 azm, got %v", got.ActiveZoneMinutes)
	}

	// An explicit total in a later import updates the same row.
	second := buildZip(t, map[string]string{
		takeoutBase + "Active Zone Minutes (AZM)/Active Zone Minutes - 2024-01-15.csv": "date,total_minutes\n2024-01-15,25\n",
	})
	if _, err := im.Ingest(second); err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}
	got, err = db.GetActivityDay(day)
	if err != nil {
		t.Fatalf("GetActivityDay failed: %v", err)
	}
	if got.ActiveZoneMinutes == nil || *got.ActiveZoneMinutes != 25 {
		t.Errorf("Expected 25 azm after update, got %v", got.ActiveZoneMinutes)
	}

	days, err := db.ListActivityDays(day, day)
	if err != nil {
		t.Fatalf("ListActivityDays failed: %v", err)
	}
	if len(days) != 1 {
		t.Errorf("Expected a single daily row, got %d", len(days))
	}
}

func TestIngestSleepScoreMerge(t *testing.T) {
	im, db := setupTest(t)
	path := buildZip(t, map[string]string{
		takeoutBase + "Global Export Data/sleep-2024-01-15.json": `[{
			"logId": 777,
			"startTime": "2024-01-15T00:10:00.000",
			"endTime": "2024-01-15T07:40:00.000",
			"levels": {}
		}]`,
		takeoutBase + "Sleep Score/sleep_score.csv": "timestamp,overall_score,composition_score,revitalization_score,duration_score\n" +
			"2024-01-15T07:40:30Z,82,20,18,44\n" +
			"2024-03-01T07:00:00Z,75,19,17,39\n",
	})

	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	// The second row has no matching session and is skipped.
	if summary[models.TypeSleepScoresMerged] != 1 {
		t.Errorf("Expected 1 merged score, got %d", summary[models.TypeSleepScoresMerged])
	}

	day, _ := time.Parse("2006-01-02", "2024-01-15")
	sessions, err := db.ListSleepSessions(day, day)
	if err != nil {
		t.Fatalf("ListSleepSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	if sessions[0].OverallScore == nil || *sessions[0].OverallScore != 82 {
		t.Errorf("Expected overall score 82, got %v", sessions[0].OverallScore)
	}
}

func TestIngestLegacyLayout(t *testing.T) {
	im, _ := setupTest(t)
	path := buildZip(t, map[string]string{
		"MyFitbitData/Global Export Data/heart_rate-2024-01-15.json": `[
			{"dateTime": "01/15/24 08:00:00", "value": {"bpm": 60}}
		]`,
	})

	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary[models.TypeHeartRateIntraday] != 1 {
		t.Errorf("Expected 1 heart rate record from legacy layout, got %d", summary[models.TypeHeartRateIntraday])
	}
}

func TestIngestIdempotent(t *testing.T) {
	im, _ := setupTest(t)
	path := buildZip(t, map[string]string{
		takeoutBase + "Global Export Data/heart_rate-2024-01-15.json": `[
			{"dateTime": "01/15/24 08:00:00", "value": {"bpm": 62}}
		]`,
		takeoutBase + "Global Export Data/exercise-2024-01.json": `[{
			"logId": 555,
			"startTime": "2024-01-15T07:00:00.000",
			"activeDuration": 2700000,
			"activityName": "Run",
			"calories": 340
		}]`,
	})

	first, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if first[models.TypeHeartRateIntraday] != 1 || first[models.TypeExercises] != 1 {
		t.Fatalf("First summary mismatch: %v", first)
	}

	second, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Re-ingest failed: %v", err)
	}
	if _, ok := second[models.TypeHeartRateIntraday]; ok {
		t.Errorf("Expected heart_rate_intraday absent on re-import, got %v", second)
	}
	if _, ok := second[models.TypeExercises]; ok {
		t.Errorf("Expected exercises absent on re-import, got %v", second)
	}
}

func TestIngestExerciseDerivedEnd(t *testing.T) {
	im, db := setupTest(t)
	path := buildZip(t, map[string]string{
		takeoutBase + "Global Export Data/exercise-2024-01.json": `[
			{"logId": 1, "startTime": "2024-01-15T07:00:00.000", "activeDuration": 2700000},
			{"logId": 2, "startTime": "2024-01-15T18:00:00.000"}
		]`,
	})

	summary, err := im.Ingest(path)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if summary[models.TypeExercises] != 2 {
		t.Fatalf("Expected 2 exercises, got %d", summary[models.TypeExercises])
	}

	day, _ := time.Parse("2006-01-02", "2024-01-15")
	sessions, err := db.ListExercises(day, day)
	if err != nil {
		t.Fatalf("ListExercises failed: %v", err)
	}
	for _, s := range sessions {
		switch s.LogID {
		case "1":
			want := s.StartTime.Add(45 * time.Minute)
			if s.EndTime == nil || !s.EndTime.Equal(want) {
				t.Errorf("Expected derived end %v, got %v", want, s.EndTime)
			}
			if s.ActivityName != "Unknown" {
				t.Errorf("Expected default name, got %s", s.ActivityName)
			}
		case "2":
			if s.EndTime != nil {
				t.Errorf("Expected unknown end, got %v", s.EndTime)
			}
		}
	}
}
