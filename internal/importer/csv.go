// ABOUTME: Decoders for the CSV file families of the export archive.
// ABOUTME: Column names drift across export schema versions; each logical field tries an ordered alias list.
package importer

import (
	"time"

	"github.com/harperreed/pulse/internal/archive"
	"github.com/harperreed/pulse/internal/coerce"
	"github.com/harperreed/pulse/internal/models"
)

// pick returns the first non-empty cell among the alias columns.
func pick(row map[string]string, aliases ...string) string {
	for _, a := range aliases {
		if v := row[a]; v != "" {
			return v
		}
	}
	return ""
}

// pickDate resolves the alias columns to a calendar date, truncating any
// trailing time component first. Returns false when no column matched or
// the value did not parse.
func pickDate(row map[string]string, aliases ...string) (time.Time, bool) {
	raw := pick(row, aliases...)
	if raw == "" {
		return time.Time{}, false
	}
	d, err := coerce.DateOnly(raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// readRows decodes one CSV member, skipping the whole file on failure.
func (im *Importer) readRows(a *archive.Archive, name string) []map[string]string {
	rows, err := a.ReadCSV(name)
	if err != nil {
		im.log.Warn("skipping file", "file", name, "err", err)
		return nil
	}
	return rows
}

func (im *Importer) decodeHRVDaily(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.HRVDay

	flush := func() {
		n, err := im.store.InsertHRVDays(batch)
		if err != nil {
			im.log.Warn("hrv daily batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			date, ok := pickDate(row, "timestamp", "date", "Date", "Timestamp")
			if !ok {
				continue
			}
			daily := coerce.Float(pick(row, "rmssd", "Daily RMSSD", "daily_rmssd"))
			deep := coerce.Float(pick(row, "deep_rmssd", "Deep RMSSD", "nremRmssd"))
			if daily == nil && deep == nil {
				continue
			}
			batch = append(batch, &models.HRVDay{Date: date, DailyRMSSD: daily, DeepRMSSD: deep})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

func (im *Importer) decodeHRVIntraday(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.HRVSample

	flush := func() {
		n, err := im.store.InsertHRVSamples(batch)
		if err != nil {
			im.log.Warn("hrv intraday batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			raw := pick(row, "timestamp", "Timestamp", "dateTime")
			if raw == "" {
				continue
			}
			ts, err := coerce.Timestamp(raw)
			if err != nil {
				im.log.Debug("hrv detail row error", "err", err)
				continue
			}
			rmssd := coerce.Float(pick(row, "rmssd", "RMSSD", "hrv"))
			if rmssd == nil {
				continue
			}
			batch = append(batch, &models.HRVSample{
				Timestamp: ts,
				RMSSD:     *rmssd,
				Coverage:  coerce.Float(pick(row, "coverage", "Coverage")),
				HF:        coerce.Float(pick(row, "hf", "HF")),
				LF:        coerce.Float(pick(row, "lf", "LF")),
			})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

func (im *Importer) decodeSpO2Daily(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.SpO2Day

	flush := func() {
		n, err := im.store.InsertSpO2Days(batch)
		if err != nil {
			im.log.Warn("spo2 daily batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			date, ok := pickDate(row, "timestamp", "date", "Date", "Timestamp")
			if !ok {
				continue
			}
			avg := coerce.Float(pick(row, "avg_spo2", "Average SpO2", "Avg Value", "avgValue"))
			min := coerce.Float(pick(row, "min_spo2", "Min SpO2", "Min Value", "minValue"))
			max := coerce.Float(pick(row, "max_spo2", "Max SpO2", "Max Value", "maxValue"))
			if avg == nil && min == nil && max == nil {
				continue
			}
			batch = append(batch, &models.SpO2Day{Date: date, AvgSpO2: avg, MinSpO2: min, MaxSpO2: max})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

func (im *Importer) decodeSpO2Intraday(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.SpO2Sample

	flush := func() {
		n, err := im.store.InsertSpO2Samples(batch)
		if err != nil {
			im.log.Warn("spo2 intraday batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			raw := pick(row, "timestamp", "Timestamp", "dateTime")
			if raw == "" {
				continue
			}
			ts, err := coerce.Timestamp(raw)
			if err != nil {
				im.log.Debug("spo2 intraday row error", "err", err)
				continue
			}
			spo2 := coerce.Float(pick(row, "value", "Value", "spo2"))
			if spo2 == nil {
				continue
			}
			batch = append(batch, &models.SpO2Sample{Timestamp: ts, SpO2: *spo2})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

func (im *Importer) decodeTemperature(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.SkinTemperatureDay

	flush := func() {
		n, err := im.store.InsertSkinTemperatureDays(batch)
		if err != nil {
			im.log.Warn("temperature batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			date, ok := pickDate(row, "date", "Date", "timestamp", "Timestamp", "sleep_start")
			if !ok {
				continue
			}
			temp := coerce.Float(pick(row, "relative_temp", "Temperature", "temperature", "nightly_temp", "Nightly Temperature"))
			if temp == nil {
				continue
			}
			batch = append(batch, &models.SkinTemperatureDay{Date: date, RelativeTemp: *temp})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

func (im *Importer) decodeStress(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.StressDay

	flush := func() {
		n, err := im.store.InsertStressDays(batch)
		if err != nil {
			im.log.Warn("stress batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			date, ok := pickDate(row, "DATE", "date", "Date", "timestamp")
			if !ok {
				continue
			}
			score := coerce.Int(pick(row, "STRESS_SCORE", "stress_score", "Stress Score", "stressManagementScore"))
			if score == nil {
				continue
			}
			batch = append(batch, &models.StressDay{
				Date:                date,
				StressScore:         *score,
				ExertionScore:       coerce.Int(pick(row, "EXERTION_SCORE", "exertion_score", "Exertion Score")),
				ResponsivenessScore: coerce.Int(pick(row, "RESPONSIVENESS_SCORE", "responsiveness_score", "Responsiveness Score")),
				SleepScoreComponent: coerce.Int(pick(row, "SLEEP_SCORE", "sleep_score", "Sleep Score")),
			})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

func (im *Importer) decodeReadiness(a *archive.Archive, files []string) int {
	total := 0
	var batch []*models.ReadinessDay

	flush := func() {
		n, err := im.store.InsertReadinessDays(batch)
		if err != nil {
			im.log.Warn("readiness batch failed", "err", err)
		}
		total += n
		batch = batch[:0]
	}

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			date, ok := pickDate(row, "date", "Date", "timestamp", "Timestamp")
			if !ok {
				continue
			}
			score := coerce.Float(pick(row, "readiness_score", "Readiness Score", "score", "Score", "overall_score"))
			if score == nil {
				continue
			}
			batch = append(batch, &models.ReadinessDay{Date: date, ReadinessScore: *score})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
	return total
}

// decodeSleepScores merges score components into sessions created earlier
// by the sleep decoder. A date with no session is a no-op skip, not an
// error. Returns the count of sessions updated.
func (im *Importer) decodeSleepScores(a *archive.Archive, files []string) int {
	total := 0

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			date, ok := pickDate(row, "timestamp", "sleep_log_entry_id", "date", "Date")
			if !ok {
				continue
			}
			scores := models.SleepScores{
				Overall:        coerce.Int(pick(row, "overall_score", "Overall Score", "sleep_quality_score", "total_score")),
				Composition:    coerce.Int(pick(row, "composition_score", "Composition Score")),
				Revitalization: coerce.Int(pick(row, "revitalization_score", "Revitalization Score")),
				Duration:       coerce.Int(pick(row, "duration_score", "Duration Score")),
			}
			merged, err := im.store.MergeSleepScores(date, scores)
			if err != nil {
				im.log.Debug("sleep score row error", "err", err)
				continue
			}
			if merged {
				total++
			}
		}
	}
	return total
}

// decodeActiveZoneMinutes upserts the active-zone-minutes column of the
// daily activity summary. An explicit total wins; otherwise the fat-burn,
// cardio and peak sub-columns are summed with missing parts as zero, and
// a zero sum is skipped as noise.
func (im *Importer) decodeActiveZoneMinutes(a *archive.Archive, files []string) int {
	total := 0

	for _, name := range files {
		for _, row := range im.readRows(a, name) {
			date, ok := pickDate(row, "date", "Date", "timestamp", "Timestamp")
			if !ok {
				continue
			}

			azm := coerce.Int(pick(row, "total_minutes", "Total Minutes", "active_zone_minutes", "Active Zone Minutes", "totalMinutes"))
			if azm == nil {
				sum := coerce.IntOr(pick(row, "fat_burn_minutes", "Fat Burn Minutes", "fatBurnActiveZoneMinutes"), 0) +
					coerce.IntOr(pick(row, "cardio_minutes", "Cardio Minutes", "cardioActiveZoneMinutes"), 0) +
					coerce.IntOr(pick(row, "peak_minutes", "Peak Minutes", "peakActiveZoneMinutes"), 0)
				if sum == 0 {
					continue
				}
				azm = &sum
			}

			if err := im.store.SetActiveZoneMinutes(date, *azm); err != nil {
				im.log.Debug("azm row error", "err", err)
				continue
			}
			total++
		}
	}
	return total
}
