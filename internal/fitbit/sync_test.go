// ABOUTME: Sync tests against a fake Web API served by httptest.
// ABOUTME: Covers cursor advancement, rate-limit skips, and partial progress.
package fitbit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pulse/internal/storage"
)

func setupTest(t *testing.T, handler http.Handler) (*Client, *storage.DB) {
	t.Helper()
	db, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := log.New(io.Discard)
	return newTestClient(db, srv.Client(), srv.URL, logger), db
}

func today() time.Time {
	return currentDay()
}

// notFound answers every endpoint with 404, which the client treats as
// "nothing for that day".
var notFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
})

func TestSyncAllAlreadyUpToDate(t *testing.T) {
	c, db := setupTest(t, notFound)

	for _, entry := range c.registry() {
		if err := db.SetSyncCursor(entry.name, today()); err != nil {
			t.Fatalf("set cursor: %v", err)
		}
	}

	results := c.SyncAll(context.Background())
	for name, status := range results {
		if status != "already_up_to_date" {
			t.Errorf("%s = %q, want already_up_to_date", name, status)
		}
	}
}

func TestSyncAllAdvancesCursor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/activities/heart/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"activities-heart-intraday":{"dataset":[
			{"time":"00:00:05","value":61},
			{"time":"00:00:10","value":63}
		]}}`)
	})
	mux.Handle("/", notFound)

	c, db := setupTest(t, mux)
	for _, entry := range c.registry() {
		if err := db.SetSyncCursor(entry.name, today()); err != nil {
			t.Fatalf("set cursor: %v", err)
		}
	}
	yesterday := today().AddDate(0, 0, -1)
	if err := db.SetSyncCursor("heart_rate_intraday", yesterday.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("set cursor: %v", err)
	}

	results := c.SyncAll(context.Background())
	if results["heart_rate_intraday"] != "synced_2_days" {
		t.Errorf("heart_rate_intraday = %q, want synced_2_days", results["heart_rate_intraday"])
	}
	if results["sleep"] != "already_up_to_date" {
		t.Errorf("sleep = %q, want already_up_to_date", results["sleep"])
	}

	cursor, err := db.GetSyncCursor("heart_rate_intraday")
	if err != nil {
		t.Fatalf("get cursor: %v", err)
	}
	if !cursor.Equal(today()) {
		t.Errorf("cursor = %s, want %s", cursor, today())
	}

	samples, err := db.ListHeartRateSamples(yesterday, today().AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	// Two samples per synced day, and the same clock on different days
	// is a different timestamp.
	if len(samples) != 4 {
		t.Errorf("got %d samples, want 4", len(samples))
	}
}

func TestSyncAllPartialProgress(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/activities/heart/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			io.WriteString(w, `{"activities-heart-intraday":{"dataset":[{"time":"08:00:00","value":70}]}}`)
			return
		}
		io.WriteString(w, `{"activities-heart-intraday"`)
	})
	mux.Handle("/", notFound)

	c, db := setupTest(t, mux)
	for _, entry := range c.registry() {
		if err := db.SetSyncCursor(entry.name, today()); err != nil {
			t.Fatalf("set cursor: %v", err)
		}
	}
	start := today().AddDate(0, 0, -2)
	if err := db.SetSyncCursor("heart_rate_intraday", start.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("set cursor: %v", err)
	}

	results := c.SyncAll(context.Background())
	if results["heart_rate_intraday"] != "error_after_1_days" {
		t.Errorf("heart_rate_intraday = %q, want error_after_1_days", results["heart_rate_intraday"])
	}

	cursor, err := db.GetSyncCursor("heart_rate_intraday")
	if err != nil {
		t.Fatalf("get cursor: %v", err)
	}
	if !cursor.Equal(start) {
		t.Errorf("cursor = %s, want %s (first successful day)", cursor, start)
	}
}

func TestSyncRateLimitedCountsAsSynced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/activities/heart/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.Handle("/", notFound)

	c, db := setupTest(t, mux)
	for _, entry := range c.registry() {
		if err := db.SetSyncCursor(entry.name, today()); err != nil {
			t.Fatalf("set cursor: %v", err)
		}
	}
	if err := db.SetSyncCursor("heart_rate_intraday", today().AddDate(0, 0, -1)); err != nil {
		t.Fatalf("set cursor: %v", err)
	}

	results := c.SyncAll(context.Background())
	if results["heart_rate_intraday"] != "synced_1_days" {
		t.Errorf("heart_rate_intraday = %q, want synced_1_days", results["heart_rate_intraday"])
	}
	samples, err := db.ListHeartRateSamples(today(), today().AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("got %d samples, want 0", len(samples))
	}
}

func TestSyncHeartRateDailyZones(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/activities/heart/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"activities-heart":[{"value":{
			"restingHeartRate":52,
			"heartRateZones":[
				{"name":"Out of Range","minutes":1100},
				{"name":"Fat Burn","minutes":200},
				{"name":"Cardio","minutes":30},
				{"name":"Peak","minutes":10}
			]
		}}]}`)
	})

	c, db := setupTest(t, mux)
	day := today()
	if err := c.syncHeartRateDaily(context.Background(), day); err != nil {
		t.Fatalf("sync: %v", err)
	}

	days, err := db.ListHeartRateDays(day, day)
	if err != nil {
		t.Fatalf("list days: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("got %d days, want 1", len(days))
	}
	d := days[0]
	if d.RestingHeartRate == nil || *d.RestingHeartRate != 52 {
		t.Errorf("resting hr = %v, want 52", d.RestingHeartRate)
	}
	if d.FatBurnMinutes == nil || *d.FatBurnMinutes != 200 {
		t.Errorf("fat burn = %v, want 200", d.FatBurnMinutes)
	}
	if d.OutOfRangeMinutes == nil || *d.OutOfRangeMinutes != 1100 {
		t.Errorf("out of range = %v, want 1100", d.OutOfRangeMinutes)
	}
}

func TestSyncSleepUpsertsSessionAndStages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1.2/user/-/sleep/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"sleep":[{
			"logId": 987654321,
			"startTime": "2024-03-10T23:15:00.000",
			"endTime": "2024-03-11T07:05:00.000",
			"duration": 28200000,
			"efficiency": 93,
			"minutesAsleep": 430,
			"minutesAwake": 40,
			"timeInBed": 470,
			"type": "stages",
			"levels": {
				"summary": {
					"deep": {"minutes": 85},
					"rem": {"minutes": 100},
					"light": {"minutes": 245}
				},
				"data": [
					{"dateTime": "2024-03-10T23:15:00.000", "level": "light", "seconds": 1800},
					{"dateTime": "2024-03-10T23:45:00.000", "level": "deep", "seconds": 2400}
				]
			}
		}]}`)
	})

	c, db := setupTest(t, mux)
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local)
	if err := c.syncSleep(context.Background(), day); err != nil {
		t.Fatalf("sync: %v", err)
	}
	// Second pass overwrites rather than duplicating.
	if err := c.syncSleep(context.Background(), day); err != nil {
		t.Fatalf("resync: %v", err)
	}

	sessions, err := db.ListSleepSessions(day, day)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	s := sessions[0]
	if s.LogID != "987654321" {
		t.Errorf("log id = %q, want 987654321", s.LogID)
	}
	if s.DeepSleepMinutes == nil || *s.DeepSleepMinutes != 85 {
		t.Errorf("deep minutes = %v, want 85", s.DeepSleepMinutes)
	}

	stages, err := db.ListSleepStages(s.LogID)
	if err != nil {
		t.Fatalf("list stages: %v", err)
	}
	if len(stages) != 2 {
		t.Errorf("got %d stages, want 2", len(stages))
	}
}

func TestSyncSpO2DailyAndIntraday(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/spo2/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/all.json") {
			io.WriteString(w, `{"minutes":[
				{"minute":"2024-03-11T02:10:00","value":95.5},
				{"minute":"2024-03-11T02:11:00","value":null}
			]}`)
			return
		}
		io.WriteString(w, `{"value":{"avg":96.2,"min":91.0,"max":99.1}}`)
	})

	c, db := setupTest(t, mux)
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local)
	if err := c.syncSpO2(context.Background(), day); err != nil {
		t.Fatalf("sync: %v", err)
	}

	days, err := db.ListSpO2Days(day, day)
	if err != nil {
		t.Fatalf("list days: %v", err)
	}
	if len(days) != 1 || days[0].AvgSpO2 == nil || *days[0].AvgSpO2 != 96.2 {
		t.Fatalf("daily spo2 = %+v, want avg 96.2", days)
	}

	samples, err := db.ListSpO2Samples(day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("got %d samples, want 1 (null value skipped)", len(samples))
	}
}

func TestSyncVO2MaxCoercesRangeString(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/cardioscore/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"cardioScore":[{"value":{"vo2Max":"36-40"}}]}`)
	})

	c, db := setupTest(t, mux)
	day := today()
	if err := c.syncVO2Max(context.Background(), day); err != nil {
		t.Fatalf("sync: %v", err)
	}
	days, err := db.ListVO2MaxDays(day, day)
	if err != nil {
		t.Fatalf("list days: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("got %d days, want 0 (range string has no single value)", len(days))
	}
}

func TestSyncActivityDaily(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/activities/date/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"summary":{
			"steps": 10432,
			"floors": 12,
			"caloriesOut": 2650,
			"activityCalories": 1100,
			"sedentaryMinutes": 600,
			"lightlyActiveMinutes": 200,
			"fairlyActiveMinutes": 45,
			"veryActiveMinutes": 30,
			"distances": [
				{"activity":"total","distance":8.21},
				{"activity":"veryActive","distance":3.4}
			],
			"activeZoneMinutes": {"totalMinutes": 55}
		}}`)
	})

	c, db := setupTest(t, mux)
	day := today()
	if err := c.syncActivityDaily(context.Background(), day); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, err := db.GetActivityDay(day)
	if err != nil {
		t.Fatalf("get day: %v", err)
	}
	if got.Steps == nil || *got.Steps != 10432 {
		t.Errorf("steps = %v, want 10432", got.Steps)
	}
	if got.DistanceKM == nil || *got.DistanceKM != 8.21 {
		t.Errorf("distance = %v, want 8.21 (the total entry)", got.DistanceKM)
	}
	if got.ActiveZoneMinutes == nil || *got.ActiveZoneMinutes != 55 {
		t.Errorf("azm = %v, want 55", got.ActiveZoneMinutes)
	}
}

func TestSyncExercisesFiltersToDay(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/activities/list.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("afterDate") == "" {
			t.Error("missing afterDate query param")
		}
		io.WriteString(w, `{"activities":[
			{"logId": 111, "startTime": "2024-03-11T07:30:00.000", "activityName": "Run",
			 "activeDuration": 1800000, "calories": 320, "steps": 4200, "distance": 4.8},
			{"logId": 222, "startTime": "2024-03-12T18:00:00.000", "activityName": "Walk",
			 "duration": 900000}
		]}`)
	})

	c, db := setupTest(t, mux)
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local)
	if err := c.syncExercises(context.Background(), day); err != nil {
		t.Fatalf("sync: %v", err)
	}

	sessions, err := db.ListExercises(day, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("list exercises: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1 (next day's entry filtered out)", len(sessions))
	}
	s := sessions[0]
	if s.LogID != "111" || s.ActivityName != "Run" {
		t.Errorf("got %s %q, want 111 Run", s.LogID, s.ActivityName)
	}
	wantEnd := s.StartTime.Add(30 * time.Minute)
	if s.EndTime == nil || !s.EndTime.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", s.EndTime, wantEnd)
	}
}

func TestAPIGetRetriesOnUnauthorized(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/1/user/-/br/", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"br":[{"value":{"breathingRate":14.2}}]}`)
	})

	c, db := setupTest(t, mux)
	day := today()
	if err := c.syncBreathingRate(context.Background(), day); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	days, err := db.ListBreathingRateDays(day, day)
	if err != nil {
		t.Fatalf("list days: %v", err)
	}
	if len(days) != 1 || days[0].BreathingRate != 14.2 {
		t.Fatalf("breathing rate = %+v, want one day at 14.2", days)
	}
}
