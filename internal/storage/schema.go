// ABOUTME: Schema definition and initialization for the biometric store.
// ABOUTME: Natural-key primary keys throughout; portable DDL shared by both drivers.
package storage

// initSchema creates or updates the database schema. Every table is keyed
// by its natural key: a timestamp, a date, or a provider-issued log id.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS heart_rate_intraday (
		timestamp TEXT PRIMARY KEY,
		bpm INTEGER NOT NULL,
		confidence INTEGER
	);

	CREATE TABLE IF NOT EXISTS heart_rate_daily (
		date TEXT PRIMARY KEY,
		resting_heart_rate INTEGER,
		fat_burn_minutes INTEGER,
		cardio_minutes INTEGER,
		peak_minutes INTEGER,
		out_of_range_minutes INTEGER
	);

	CREATE TABLE IF NOT EXISTS sleep_log (
		log_id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration_ms INTEGER,
		efficiency INTEGER,
		minutes_asleep INTEGER,
		minutes_awake INTEGER,
		time_in_bed INTEGER,
		type TEXT,
		overall_score INTEGER,
		composition_score INTEGER,
		revitalization_score INTEGER,
		duration_score INTEGER,
		deep_sleep_minutes INTEGER,
		rem_sleep_minutes INTEGER,
		light_sleep_minutes INTEGER
	);

	CREATE TABLE IF NOT EXISTS sleep_stages (
		log_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		stage TEXT NOT NULL,
		duration_seconds INTEGER,
		PRIMARY KEY (log_id, timestamp)
	);

	CREATE TABLE IF NOT EXISTS spo2_daily (
		date TEXT PRIMARY KEY,
		avg_spo2 REAL,
		min_spo2 REAL,
		max_spo2 REAL
	);

	CREATE TABLE IF NOT EXISTS spo2_intraday (
		timestamp TEXT PRIMARY KEY,
		spo2 REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hrv_daily (
		date TEXT PRIMARY KEY,
		daily_rmssd REAL,
		deep_rmssd REAL
	);

	CREATE TABLE IF NOT EXISTS hrv_intraday (
		timestamp TEXT PRIMARY KEY,
		rmssd REAL NOT NULL,
		coverage REAL,
		hf REAL,
		lf REAL
	);

	CREATE TABLE IF NOT EXISTS breathing_rate (
		date TEXT PRIMARY KEY,
		breathing_rate REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS skin_temperature (
		date TEXT PRIMARY KEY,
		relative_temp REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vo2_max (
		date TEXT PRIMARY KEY,
		vo2_max REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity_daily (
		date TEXT PRIMARY KEY,
		steps INTEGER,
		distance_km REAL,
		floors INTEGER,
		calories_total INTEGER,
		calories_active INTEGER,
		minutes_sedentary INTEGER,
		minutes_lightly_active INTEGER,
		minutes_fairly_active INTEGER,
		minutes_very_active INTEGER,
		active_zone_minutes INTEGER
	);

	CREATE TABLE IF NOT EXISTS activity_intraday (
		timestamp TEXT NOT NULL,
		metric TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (timestamp, metric)
	);

	CREATE TABLE IF NOT EXISTS stress_score (
		date TEXT PRIMARY KEY,
		stress_score INTEGER NOT NULL,
		exertion_score INTEGER,
		responsiveness_score INTEGER,
		sleep_score_component INTEGER
	);

	CREATE TABLE IF NOT EXISTS readiness_score (
		date TEXT PRIMARY KEY,
		readiness_score REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exercises (
		log_id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		activity_name TEXT NOT NULL,
		duration_ms INTEGER,
		calories INTEGER,
		average_heart_rate INTEGER,
		steps INTEGER,
		distance_km REAL
	);

	CREATE TABLE IF NOT EXISTS glucose_readings (
		timestamp TEXT PRIMARY KEY,
		value INTEGER NOT NULL,
		source TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_synced TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS oauth_token (
		id INTEGER PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		token_type TEXT,
		expires_at TEXT NOT NULL,
		scope TEXT,
		user_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sleep_log_date ON sleep_log(date);
	CREATE INDEX IF NOT EXISTS idx_exercises_date ON exercises(date);
	CREATE INDEX IF NOT EXISTS idx_sleep_stages_log ON sleep_stages(log_id);
	`

	_, err := d.db.Exec(schema)
	return err
}
