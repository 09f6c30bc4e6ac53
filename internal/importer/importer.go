// ABOUTME: Export-archive ingestion orchestrator.
// ABOUTME: Resolves layout, runs every decoder in registry order, returns a per-type count summary.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pulse/internal/archive"
	"github.com/harperreed/pulse/internal/models"
	"github.com/harperreed/pulse/internal/storage"
)

// ErrArchiveNotFound is the only error Ingest returns for a bad archive
// path. Everything past that point is recovered file-by-file or
// row-by-row and shows up only as undercounts in the summary.
var ErrArchiveNotFound = errors.New("archive not found")

// batchSize is how many decoded records accumulate before a flush.
const batchSize = 1000

// Importer ingests export archives into the store.
type Importer struct {
	store *storage.DB
	log   *log.Logger
}

func New(store *storage.DB, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	return &Importer{store: store, log: logger}
}

// Ingest imports every recognized data type from the archive at path and
// returns a map from data-type name to the count of records newly created.
// Zero-count types are omitted: a type contributing nothing is
// indistinguishable from a type not present at all.
func (im *Importer) Ingest(path string) (map[string]int, error) {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, path)
	}

	a, err := archive.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, path)
	}
	defer a.Close()

	im.log.Info("detected archive layout", "base", a.Base())

	summary := make(map[string]int)

	// Global Export Data JSON families, one filename prefix per type.
	globalJSON := a.List("Global Export Data/", ".json")
	summary[models.TypeHeartRateIntraday] = im.decodeHeartRate(a, filterPrefix(globalJSON, "heart_rate-"))
	summary[models.TypeSleepLogs] = im.decodeSleep(a, filterPrefix(globalJSON, "sleep-"))
	summary[models.TypeStepsIntraday] = im.decodeActivity(a, filterPrefix(globalJSON, "steps-"), models.MetricSteps)
	summary[models.TypeCaloriesIntraday] = im.decodeActivity(a, filterPrefix(globalJSON, "calories-"), models.MetricCalories)
	summary[models.TypeDistanceIntraday] = im.decodeActivity(a, filterPrefix(globalJSON, "distance-"), models.MetricDistance)
	summary[models.TypeAltitudeIntraday] = im.decodeActivity(a, filterPrefix(globalJSON, "altitude-"), models.MetricAltitude)
	summary[models.TypeExercises] = im.decodeExercise(a, filterPrefix(globalJSON, "exercise-"))

	// CSV families. HRV and SpO2 share a subdirectory split by a basename
	// marker word.
	hrvCSV := a.List("Heart Rate Variability/", ".csv")
	summary[models.TypeHRVDaily] = im.decodeHRVDaily(a, filterMarker(hrvCSV, "summary"))
	summary[models.TypeHRVIntraday] = im.decodeHRVIntraday(a, filterMarker(hrvCSV, "details"))

	spo2CSV := a.List("Oxygen Saturation (SpO2)/", ".csv")
	summary[models.TypeSpO2Daily] = im.decodeSpO2Daily(a, filterMarker(spo2CSV, "daily"))
	summary[models.TypeSpO2Intraday] = im.decodeSpO2Intraday(a, filterMarker(spo2CSV, "minute"))

	summary[models.TypeSkinTemperature] = im.decodeTemperature(a, a.List("Temperature/", ".csv"))
	summary[models.TypeStressScore] = im.decodeStress(a, a.List("Stress Score/", ".csv"))
	summary[models.TypeReadinessScore] = im.decodeReadiness(a, a.List("Daily Readiness/", ".csv"))
	summary[models.TypeSleepScoresMerged] = im.decodeSleepScores(a, a.List("Sleep Score/", ".csv"))
	summary[models.TypeActiveZoneMinutes] = im.decodeActiveZoneMinutes(a, a.List("Active Zone Minutes (AZM)/", ".csv"))

	// Backfill runs last so it sees everything the decoders wrote.
	summary[models.TypeActivityDailyAgg] = im.aggregateDailyActivity()

	for k, v := range summary {
		if v == 0 {
			delete(summary, k)
		}
	}

	im.log.Info("import complete", "summary", summary)
	return summary, nil
}

// filterPrefix keeps names whose basename starts with prefix.
func filterPrefix(names []string, prefix string) []string {
	var out []string
	for _, name := range names {
		if strings.HasPrefix(filepath.Base(name), prefix) {
			out = append(out, name)
		}
	}
	return out
}

// filterMarker keeps names whose basename contains the marker word,
// case-insensitively.
func filterMarker(names []string, marker string) []string {
	var out []string
	for _, name := range names {
		if strings.Contains(strings.ToLower(filepath.Base(name)), marker) {
			out = append(out, name)
		}
	}
	return out
}
