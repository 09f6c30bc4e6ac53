// ABOUTME: Record types for all biometric data kinds.
// ABOUTME: Every kind carries a natural key (timestamp, date, or log id) used for dedup.
package models

import "time"

// Data-type names used as keys in import summaries and sync cursors.
const (
	TypeHeartRateIntraday = "heart_rate_intraday"
	TypeHeartRateDaily    = "heart_rate_daily"
	TypeSleepLogs         = "sleep_logs"
	TypeStepsIntraday     = "steps_intraday"
	TypeCaloriesIntraday  = "calories_intraday"
	TypeDistanceIntraday  = "distance_intraday"
	TypeAltitudeIntraday  = "altitude_intraday"
	TypeExercises         = "exercises"
	TypeHRVDaily          = "hrv_daily"
	TypeHRVIntraday       = "hrv_intraday"
	TypeSpO2Daily         = "spo2_daily"
	TypeSpO2Intraday      = "spo2_intraday"
	TypeBreathingRate     = "breathing_rate"
	TypeSkinTemperature   = "skin_temperature"
	TypeVO2Max            = "vo2_max"
	TypeActivityDaily     = "activity_daily"
	TypeStressScore       = "stress_score"
	TypeReadinessScore    = "readiness_score"
	TypeSleepScoresMerged = "sleep_scores_updated"
	TypeActiveZoneMinutes = "active_zone_minutes"
	TypeActivityDailyAgg  = "activity_daily_aggregated"
	TypeGlucose           = "glucose"
)

// Intraday activity metric names. Open string enum: the store accepts
// other values, these are the ones the export produces.
const (
	MetricSteps    = "steps"
	MetricCalories = "calories"
	MetricDistance = "distance"
	MetricAltitude = "altitude"
)

// HeartRateSample is one intraday heart rate reading. Keyed by Timestamp.
type HeartRateSample struct {
	Timestamp  time.Time `json:"timestamp"`
	BPM        int       `json:"bpm"`
	Confidence *int      `json:"confidence,omitempty"`
}

// HeartRateDay is the daily heart rate summary. Keyed by Date.
type HeartRateDay struct {
	Date              time.Time `json:"date"`
	RestingHeartRate  *int      `json:"resting_heart_rate,omitempty"`
	FatBurnMinutes    *int      `json:"fat_burn_minutes,omitempty"`
	CardioMinutes     *int      `json:"cardio_minutes,omitempty"`
	PeakMinutes       *int      `json:"peak_minutes,omitempty"`
	OutOfRangeMinutes *int      `json:"out_of_range_minutes,omitempty"`
}

// SleepSession is one sleep log. Keyed by the provider-issued LogID.
// Score components may arrive later via the sleep-score CSV merge.
type SleepSession struct {
	LogID      string    `json:"log_id"`
	Date       time.Time `json:"date"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	DurationMS *int      `json:"duration_ms,omitempty"`
	Efficiency *int      `json:"efficiency,omitempty"`

	MinutesAsleep *int    `json:"minutes_asleep,omitempty"`
	MinutesAwake  *int    `json:"minutes_awake,omitempty"`
	TimeInBed     *int    `json:"time_in_bed,omitempty"`
	Type          *string `json:"type,omitempty"`

	OverallScore        *int `json:"overall_score,omitempty"`
	CompositionScore    *int `json:"composition_score,omitempty"`
	RevitalizationScore *int `json:"revitalization_score,omitempty"`
	DurationScore       *int `json:"duration_score,omitempty"`
	DeepSleepMinutes    *int `json:"deep_sleep_minutes,omitempty"`
	RemSleepMinutes     *int `json:"rem_sleep_minutes,omitempty"`
	LightSleepMinutes   *int `json:"light_sleep_minutes,omitempty"`
}

// SleepStage is one stage interval within a session. Keyed by (LogID, Timestamp).
type SleepStage struct {
	LogID           string    `json:"log_id"`
	Timestamp       time.Time `json:"timestamp"`
	Stage           string    `json:"stage"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
}

// SleepScores holds the score components merged from the sleep-score CSV.
type SleepScores struct {
	Overall        *int
	Composition    *int
	Revitalization *int
	Duration       *int
}

// SpO2Day is the nightly SpO2 summary. Keyed by Date.
type SpO2Day struct {
	Date    time.Time `json:"date"`
	AvgSpO2 *float64  `json:"avg_spo2,omitempty"`
	MinSpO2 *float64  `json:"min_spo2,omitempty"`
	MaxSpO2 *float64  `json:"max_spo2,omitempty"`
}

// SpO2Sample is one intraday SpO2 reading. Keyed by Timestamp.
type SpO2Sample struct {
	Timestamp time.Time `json:"timestamp"`
	SpO2      float64   `json:"spo2"`
}

// HRVDay is the nightly HRV summary. Keyed by Date.
type HRVDay struct {
	Date       time.Time `json:"date"`
	DailyRMSSD *float64  `json:"daily_rmssd,omitempty"`
	DeepRMSSD  *float64  `json:"deep_rmssd,omitempty"`
}

// HRVSample is one intraday HRV reading. Keyed by Timestamp.
type HRVSample struct {
	Timestamp time.Time `json:"timestamp"`
	RMSSD     float64   `json:"rmssd"`
	Coverage  *float64  `json:"coverage,omitempty"`
	HF        *float64  `json:"hf,omitempty"`
	LF        *float64  `json:"lf,omitempty"`
}

// BreathingRateDay is the nightly breathing rate. Keyed by Date.
type BreathingRateDay struct {
	Date          time.Time `json:"date"`
	BreathingRate float64   `json:"breathing_rate"`
}

// SkinTemperatureDay is the nightly skin temperature deviation from the
// personal baseline. Keyed by Date.
type SkinTemperatureDay struct {
	Date         time.Time `json:"date"`
	RelativeTemp float64   `json:"relative_temp"`
}

// VO2MaxDay is the estimated cardio fitness score. Keyed by Date.
type VO2MaxDay struct {
	Date   time.Time `json:"date"`
	VO2Max float64   `json:"vo2_max"`
}

// ActivityDay is the daily activity summary. Keyed by Date. Active zone
// minutes may be populated by a different file than the rest.
type ActivityDay struct {
	Date                 time.Time `json:"date"`
	Steps                *int      `json:"steps,omitempty"`
	DistanceKM           *float64  `json:"distance_km,omitempty"`
	Floors               *int      `json:"floors,omitempty"`
	CaloriesTotal        *int      `json:"calories_total,omitempty"`
	CaloriesActive       *int      `json:"calories_active,omitempty"`
	MinutesSedentary     *int      `json:"minutes_sedentary,omitempty"`
	MinutesLightlyActive *int      `json:"minutes_lightly_active,omitempty"`
	MinutesFairlyActive  *int      `json:"minutes_fairly_active,omitempty"`
	MinutesVeryActive    *int      `json:"minutes_very_active,omitempty"`
	ActiveZoneMinutes    *int      `json:"active_zone_minutes,omitempty"`
}

// ActivitySample is one intraday activity reading. Keyed by
// (Timestamp, Metric).
type ActivitySample struct {
	Timestamp time.Time `json:"timestamp"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
}

// StressDay is the daily stress management score. Keyed by Date.
type StressDay struct {
	Date                time.Time `json:"date"`
	StressScore         int       `json:"stress_score"`
	ExertionScore       *int      `json:"exertion_score,omitempty"`
	ResponsivenessScore *int      `json:"responsiveness_score,omitempty"`
	SleepScoreComponent *int      `json:"sleep_score_component,omitempty"`
}

// ReadinessDay is the daily readiness score. Keyed by Date.
type ReadinessDay struct {
	Date           time.Time `json:"date"`
	ReadinessScore float64   `json:"readiness_score"`
}

// ExerciseSession is one logged exercise. Keyed by LogID. EndTime is
// unknown when neither an end field nor a duration was reported.
type ExerciseSession struct {
	LogID            string     `json:"log_id"`
	Date             time.Time  `json:"date"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	ActivityName     string     `json:"activity_name"`
	DurationMS       *int       `json:"duration_ms,omitempty"`
	Calories         *int       `json:"calories,omitempty"`
	AverageHeartRate *int       `json:"average_heart_rate,omitempty"`
	Steps            *int       `json:"steps,omitempty"`
	DistanceKM       *float64   `json:"distance_km,omitempty"`
}

// GlucoseReading is one CGM reading. Keyed by Timestamp. Source records
// provenance ("csv_import" or "librelinkup").
type GlucoseReading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     int       `json:"value"`
	Source    string    `json:"source"`
}

// SyncCursor records the last-synced date for one data type of the
// cloud-poll path.
type SyncCursor struct {
	DataType   string    `json:"data_type"`
	LastSynced time.Time `json:"last_synced"`
}
