// ABOUTME: Incremental cloud sync for every supported data type.
// ABOUTME: Each type keeps its own cursor; a mid-range failure persists partial progress.
package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/pulse/internal/coerce"
	"github.com/harperreed/pulse/internal/models"
	"github.com/harperreed/pulse/internal/storage"
)

// defaultLookback is how far back a never-synced data type starts.
const defaultLookback = 30

type syncFunc func(ctx context.Context, day time.Time) error

// currentDay returns today's local calendar date as a date-only time,
// comparable with stored sync cursors.
func currentDay() time.Time {
	day, _ := time.Parse("2006-01-02", time.Now().Format("2006-01-02"))
	return day
}

type registryEntry struct {
	name string
	fn   syncFunc
}

func (c *Client) registry() []registryEntry {
	return []registryEntry{
		{"heart_rate_daily", c.syncHeartRateDaily},
		{"heart_rate_intraday", c.syncHeartRateIntraday},
		{"sleep", c.syncSleep},
		{"spo2", c.syncSpO2},
		{"hrv", c.syncHRV},
		{"breathing_rate", c.syncBreathingRate},
		{"skin_temperature", c.syncSkinTemperature},
		{"vo2_max", c.syncVO2Max},
		{"activity_daily", c.syncActivityDaily},
		{"activity_intraday", c.syncActivityIntraday},
		{"exercises", c.syncExercises},
	}
}

// SyncAll runs an incremental sync for every data type, from each type's
// cursor (plus one day) through today. Returns a status string per type.
func (c *Client) SyncAll(ctx context.Context) map[string]string {
	today := currentDay()
	results := make(map[string]string)

	for _, entry := range c.registry() {
		last, err := c.store.GetSyncCursor(entry.name)
		if errors.Is(err, storage.ErrNotFound) {
			last = today.AddDate(0, 0, -defaultLookback)
		} else if err != nil {
			results[entry.name] = "error_reading_cursor"
			continue
		}

		start := last.AddDate(0, 0, 1)
		if start.After(today) {
			results[entry.name] = "already_up_to_date"
			continue
		}

		c.log.Info("syncing", "type", entry.name, "from", start.Format("2006-01-02"), "to", today.Format("2006-01-02"))
		synced := 0
		var syncErr error
		for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
			if syncErr = entry.fn(ctx, day); syncErr != nil {
				break
			}
			synced++
		}

		if syncErr != nil {
			c.log.Error("sync failed", "type", entry.name, "err", syncErr)
			if synced > 0 {
				if err := c.store.SetSyncCursor(entry.name, start.AddDate(0, 0, synced-1)); err != nil {
					c.log.Error("cursor update failed", "type", entry.name, "err", err)
				}
			}
			results[entry.name] = fmt.Sprintf("error_after_%d_days", synced)
			continue
		}

		if err := c.store.SetSyncCursor(entry.name, today); err != nil {
			c.log.Error("cursor update failed", "type", entry.name, "err", err)
		}
		results[entry.name] = fmt.Sprintf("synced_%d_days", synced)
	}
	return results
}

func (c *Client) syncHeartRateIntraday(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	body, err := c.apiGet(ctx, "/1/user/-/activities/heart/date/"+ds+"/1d/1sec.json")
	if err != nil || body == nil {
		return err
	}

	var payload struct {
		Intraday struct {
			Dataset []struct {
				Time  string `json:"time"`
				Value int    `json:"value"`
			} `json:"dataset"`
		} `json:"activities-heart-intraday"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode heart rate intraday: %w", err)
	}

	var samples []*models.HeartRateSample
	for _, entry := range payload.Intraday.Dataset {
		ts, err := dayClock(day, entry.Time)
		if err != nil {
			continue
		}
		samples = append(samples, &models.HeartRateSample{Timestamp: ts, BPM: entry.Value})
	}
	_, err = c.store.InsertHeartRateSamples(samples)
	return err
}

func (c *Client) syncHeartRateDaily(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	body, err := c.apiGet(ctx, "/1/user/-/activities/heart/date/"+ds+"/1d.json")
	if err != nil || body == nil {
		return err
	}

	var payload struct {
		Heart []struct {
			Value struct {
				RestingHeartRate *int `json:"restingHeartRate"`
				HeartRateZones   []struct {
					Name    string `json:"name"`
					Minutes *int   `json:"minutes"`
				} `json:"heartRateZones"`
			} `json:"value"`
		} `json:"activities-heart"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode heart rate daily: %w", err)
	}
	if len(payload.Heart) == 0 {
		return nil
	}

	rec := &models.HeartRateDay{Date: day, RestingHeartRate: payload.Heart[0].Value.RestingHeartRate}
	for _, zone := range payload.Heart[0].Value.HeartRateZones {
		switch zone.Name {
		case "Fat Burn":
			rec.FatBurnMinutes = zone.Minutes
		case "Cardio":
			rec.CardioMinutes = zone.Minutes
		case "Peak":
			rec.PeakMinutes = zone.Minutes
		case "Out of Range":
			rec.OutOfRangeMinutes = zone.Minutes
		}
	}
	return c.store.UpsertHeartRateDay(rec)
}

func (c *Client) syncSleep(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	body, err := c.apiGet(ctx, "/1.2/user/-/sleep/date/"+ds+".json")
	if err != nil || body == nil {
		return err
	}

	var payload struct {
		Sleep []struct {
			LogID         json.Number `json:"logId"`
			StartTime     string      `json:"startTime"`
			EndTime       string      `json:"endTime"`
			Duration      *int        `json:"duration"`
			Efficiency    *int        `json:"efficiency"`
			MinutesAsleep *int        `json:"minutesAsleep"`
			MinutesAwake  *int        `json:"minutesAwake"`
			TimeInBed     *int        `json:"timeInBed"`
			Type          string      `json:"type"`
			Levels        struct {
				Summary map[string]struct {
					Minutes *int `json:"minutes"`
				} `json:"summary"`
				Data []struct {
					DateTime string `json:"dateTime"`
					Level    string `json:"level"`
					Seconds  *int   `json:"seconds"`
				} `json:"data"`
			} `json:"levels"`
		} `json:"sleep"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode sleep: %w", err)
	}

	for _, s := range payload.Sleep {
		start, err := parseAPITime(s.StartTime)
		if err != nil {
			continue
		}
		end, err := parseAPITime(s.EndTime)
		if err != nil {
			continue
		}

		session := &models.SleepSession{
			LogID:         s.LogID.String(),
			Date:          day,
			StartTime:     start,
			EndTime:       end,
			DurationMS:    s.Duration,
			Efficiency:    s.Efficiency,
			MinutesAsleep: s.MinutesAsleep,
			MinutesAwake:  s.MinutesAwake,
			TimeInBed:     s.TimeInBed,
		}
		if s.Type != "" {
			t := s.Type
			session.Type = &t
		}
		if v, ok := s.Levels.Summary["deep"]; ok {
			session.DeepSleepMinutes = v.Minutes
		}
		if v, ok := s.Levels.Summary["rem"]; ok {
			session.RemSleepMinutes = v.Minutes
		}
		if v, ok := s.Levels.Summary["light"]; ok {
			session.LightSleepMinutes = v.Minutes
		}
		if err := c.store.UpsertSleepSession(session); err != nil {
			return err
		}

		var stages []*models.SleepStage
		for _, lev := range s.Levels.Data {
			ts, err := parseAPITime(lev.DateTime)
			if err != nil {
				continue
			}
			stages = append(stages, &models.SleepStage{
				LogID:           session.LogID,
				Timestamp:       ts,
				Stage:           lev.Level,
				DurationSeconds: lev.Seconds,
			})
		}
		if _, err := c.store.InsertSleepStages(stages); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) syncSpO2(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")

	body, err := c.apiGet(ctx, "/1/user/-/spo2/date/"+ds+".json")
	if err != nil {
		return err
	}
	if body != nil {
		var payload struct {
			Value *struct {
				Avg *float64 `json:"avg"`
				Min *float64 `json:"min"`
				Max *float64 `json:"max"`
			} `json:"value"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("decode spo2 daily: %w", err)
		}
		if payload.Value != nil {
			err := c.store.UpsertSpO2Day(&models.SpO2Day{
				Date:    day,
				AvgSpO2: payload.Value.Avg,
				MinSpO2: payload.Value.Min,
				MaxSpO2: payload.Value.Max,
			})
			if err != nil {
				return err
			}
		}
	}

	body, err = c.apiGet(ctx, "/1/user/-/spo2/date/"+ds+"/all.json")
	if err != nil || body == nil {
		return err
	}
	var intra struct {
		Minutes []struct {
			Minute string   `json:"minute"`
			Value  *float64 `json:"value"`
		} `json:"minutes"`
	}
	if err := json.Unmarshal(body, &intra); err != nil {
		return fmt.Errorf("decode spo2 intraday: %w", err)
	}

	var samples []*models.SpO2Sample
	for _, m := range intra.Minutes {
		if m.Value == nil {
			continue
		}
		ts, err := parseAPITime(m.Minute)
		if err != nil {
			continue
		}
		samples = append(samples, &models.SpO2Sample{Timestamp: ts, SpO2: *m.Value})
	}
	_, err = c.store.InsertSpO2Samples(samples)
	return err
}

func (c *Client) syncHRV(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")

	body, err := c.apiGet(ctx, "/1/user/-/hrv/date/"+ds+".json")
	if err != nil {
		return err
	}
	if body != nil {
		var payload struct {
			HRV []struct {
				Value struct {
					DailyRMSSD *float64 `json:"dailyRmssd"`
					DeepRMSSD  *float64 `json:"deepRmssd"`
				} `json:"value"`
			} `json:"hrv"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("decode hrv daily: %w", err)
		}
		for _, entry := range payload.HRV {
			err := c.store.UpsertHRVDay(&models.HRVDay{
				Date:       day,
				DailyRMSSD: entry.Value.DailyRMSSD,
				DeepRMSSD:  entry.Value.DeepRMSSD,
			})
			if err != nil {
				return err
			}
		}
	}

	body, err = c.apiGet(ctx, "/1/user/-/hrv/date/"+ds+"/all.json")
	if err != nil || body == nil {
		return err
	}
	var intra struct {
		HRV []struct {
			Minutes []struct {
				Minute string `json:"minute"`
				Value  struct {
					RMSSD    float64  `json:"rmssd"`
					Coverage *float64 `json:"coverage"`
					HF       *float64 `json:"hf"`
					LF       *float64 `json:"lf"`
				} `json:"value"`
			} `json:"minutes"`
		} `json:"hrv"`
	}
	if err := json.Unmarshal(body, &intra); err != nil {
		return fmt.Errorf("decode hrv intraday: %w", err)
	}

	var samples []*models.HRVSample
	for _, entry := range intra.HRV {
		for _, m := range entry.Minutes {
			ts, err := parseAPITime(m.Minute)
			if err != nil {
				continue
			}
			samples = append(samples, &models.HRVSample{
				Timestamp: ts,
				RMSSD:     m.Value.RMSSD,
				Coverage:  m.Value.Coverage,
				HF:        m.Value.HF,
				LF:        m.Value.LF,
			})
		}
	}
	_, err = c.store.InsertHRVSamples(samples)
	return err
}

func (c *Client) syncBreathingRate(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	body, err := c.apiGet(ctx, "/1/user/-/br/date/"+ds+".json")
	if err != nil || body == nil {
		return err
	}

	var payload struct {
		BR []struct {
			Value struct {
				BreathingRate *float64 `json:"breathingRate"`
			} `json:"value"`
		} `json:"br"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode breathing rate: %w", err)
	}
	for _, entry := range payload.BR {
		if entry.Value.BreathingRate == nil {
			continue
		}
		err := c.store.UpsertBreathingRateDay(&models.BreathingRateDay{
			Date:          day,
			BreathingRate: *entry.Value.BreathingRate,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) syncSkinTemperature(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	body, err := c.apiGet(ctx, "/1/user/-/temp/skin/date/"+ds+".json")
	if err != nil || body == nil {
		return err
	}

	var payload struct {
		TempSkin []struct {
			Value struct {
				NightlyRelative *float64 `json:"nightlyRelative"`
			} `json:"value"`
		} `json:"tempSkin"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode skin temperature: %w", err)
	}
	for _, entry := range payload.TempSkin {
		if entry.Value.NightlyRelative == nil {
			continue
		}
		err := c.store.UpsertSkinTemperatureDay(&models.SkinTemperatureDay{
			Date:         day,
			RelativeTemp: *entry.Value.NightlyRelative,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) syncVO2Max(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	body, err := c.apiGet(ctx, "/1/user/-/cardioscore/date/"+ds+".json")
	if err != nil || body == nil {
		return err
	}

	// vo2Max can be a number or a range string like "36-40"; keep only
	// values that coerce to a single float.
	var payload struct {
		CardioScore []struct {
			Value struct {
				VO2Max any `json:"vo2Max"`
			} `json:"value"`
		} `json:"cardioScore"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode cardio score: %w", err)
	}
	for _, entry := range payload.CardioScore {
		v := coerce.Float(entry.Value.VO2Max)
		if v == nil {
			continue
		}
		err := c.store.UpsertVO2MaxDay(&models.VO2MaxDay{Date: day, VO2Max: *v})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) syncActivityDaily(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	body, err := c.apiGet(ctx, "/1/user/-/activities/date/"+ds+".json")
	if err != nil || body == nil {
		return err
	}

	var payload struct {
		Summary *struct {
			Steps            *int `json:"steps"`
			Floors           *int `json:"floors"`
			CaloriesOut      *int `json:"caloriesOut"`
			ActivityCalories *int `json:"activityCalories"`
			Sedentary        *int `json:"sedentaryMinutes"`
			LightlyActive    *int `json:"lightlyActiveMinutes"`
			FairlyActive     *int `json:"fairlyActiveMinutes"`
			VeryActive       *int `json:"veryActiveMinutes"`
			Distances        []struct {
				Activity string  `json:"activity"`
				Distance float64 `json:"distance"`
			} `json:"distances"`
			ActiveZoneMinutes *struct {
				TotalMinutes *int `json:"totalMinutes"`
			} `json:"activeZoneMinutes"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode activity daily: %w", err)
	}
	if payload.Summary == nil {
		return nil
	}

	rec := &models.ActivityDay{
		Date:                 day,
		Steps:                payload.Summary.Steps,
		Floors:               payload.Summary.Floors,
		CaloriesTotal:        payload.Summary.CaloriesOut,
		CaloriesActive:       payload.Summary.ActivityCalories,
		MinutesSedentary:     payload.Summary.Sedentary,
		MinutesLightlyActive: payload.Summary.LightlyActive,
		MinutesFairlyActive:  payload.Summary.FairlyActive,
		MinutesVeryActive:    payload.Summary.VeryActive,
	}
	for _, d := range payload.Summary.Distances {
		if d.Activity == "total" {
			v := d.Distance
			rec.DistanceKM = &v
		}
	}
	if payload.Summary.ActiveZoneMinutes != nil {
		rec.ActiveZoneMinutes = payload.Summary.ActiveZoneMinutes.TotalMinutes
	}
	return c.store.UpsertActivityDay(rec)
}

func (c *Client) syncActivityIntraday(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	resources := []struct {
		metric string
		key    string
	}{
		{models.MetricSteps, "activities-steps-intraday"},
		{models.MetricCalories, "activities-calories-intraday"},
		{models.MetricDistance, "activities-distance-intraday"},
	}

	for _, res := range resources {
		body, err := c.apiGet(ctx, "/1/user/-/activities/"+res.metric+"/date/"+ds+"/1d/1min.json")
		if err != nil {
			return err
		}
		if body == nil {
			continue
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return fmt.Errorf("decode activity intraday: %w", err)
		}
		var dataset struct {
			Dataset []struct {
				Time  string  `json:"time"`
				Value float64 `json:"value"`
			} `json:"dataset"`
		}
		if msg, ok := raw[res.key]; ok {
			if err := json.Unmarshal(msg, &dataset); err != nil {
				return fmt.Errorf("decode activity intraday %s: %w", res.metric, err)
			}
		}

		var samples []*models.ActivitySample
		for _, entry := range dataset.Dataset {
			ts, err := dayClock(day, entry.Time)
			if err != nil {
				continue
			}
			samples = append(samples, &models.ActivitySample{
				Timestamp: ts,
				Metric:    res.metric,
				Value:     entry.Value,
			})
		}
		if _, err := c.store.InsertActivitySamples(samples); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) syncExercises(ctx context.Context, day time.Time) error {
	ds := day.Format("2006-01-02")
	body, err := c.apiGet(ctx, "/1/user/-/activities/list.json?afterDate="+ds+"&sort=asc&limit=100&offset=0")
	if err != nil || body == nil {
		return err
	}

	var payload struct {
		Activities []struct {
			LogID             json.Number `json:"logId"`
			StartTime         string      `json:"startTime"`
			OriginalStartTime string      `json:"originalStartTime"`
			ActivityName      string      `json:"activityName"`
			ActiveDuration    *int        `json:"activeDuration"`
			Duration          *int        `json:"duration"`
			Calories          *int        `json:"calories"`
			AverageHeartRate  *int        `json:"averageHeartRate"`
			Steps             *int        `json:"steps"`
			Distance          *float64    `json:"distance"`
		} `json:"activities"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode activities list: %w", err)
	}

	for _, a := range payload.Activities {
		startStr := a.StartTime
		if startStr == "" {
			startStr = a.OriginalStartTime
		}
		if startStr == "" {
			continue
		}
		start, err := parseAPITime(startStr)
		if err != nil {
			continue
		}
		// The list endpoint returns everything after the date; keep only
		// the target day.
		if start.Format("2006-01-02") != ds {
			continue
		}

		duration := a.ActiveDuration
		if duration == nil {
			duration = a.Duration
		}
		var end *time.Time
		if duration != nil {
			t := start.Add(time.Duration(*duration) * time.Millisecond)
			end = &t
		}

		name := a.ActivityName
		if name == "" {
			name = "Unknown"
		}
		err = c.store.UpsertExercise(&models.ExerciseSession{
			LogID:            a.LogID.String(),
			Date:             day,
			StartTime:        start,
			EndTime:          end,
			ActivityName:     name,
			DurationMS:       duration,
			Calories:         a.Calories,
			AverageHeartRate: a.AverageHeartRate,
			Steps:            a.Steps,
			DistanceKM:       a.Distance,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
