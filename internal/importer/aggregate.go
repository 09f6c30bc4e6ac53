// ABOUTME: Daily activity backfill from intraday samples.
// ABOUTME: Creates missing daily rows and fills only null fields on existing ones.
package importer

import (
	"errors"

	"github.com/harperreed/pulse/internal/coerce"
	"github.com/harperreed/pulse/internal/models"
	"github.com/harperreed/pulse/internal/storage"
)

// aggregateDailyActivity sums intraday samples per (day, metric) and
// folds the sums into the daily activity table. Direct summary values
// always win over aggregated ones. Returns the number of days created or
// touched.
func (im *Importer) aggregateDailyActivity() int {
	sums, err := im.store.SumActivityByDay()
	if err != nil {
		im.log.Warn("daily aggregation query failed", "err", err)
		return 0
	}

	// Rows arrive ordered by day, so grouping is a single pass.
	byDay := make(map[string]map[string]float64)
	var days []string
	for _, s := range sums {
		if _, ok := byDay[s.Day]; !ok {
			byDay[s.Day] = make(map[string]float64)
			days = append(days, s.Day)
		}
		byDay[s.Day][s.Metric] = s.Total
	}

	count := 0
	for _, day := range days {
		metrics := byDay[day]
		date, err := coerce.Date(day)
		if err != nil {
			im.log.Debug("daily aggregation error", "day", day, "err", err)
			continue
		}

		var steps, calories *int
		var distance *float64
		if v, ok := metrics[models.MetricSteps]; ok {
			steps = coerce.Int(v)
		}
		if v, ok := metrics[models.MetricCalories]; ok {
			calories = coerce.Int(v)
		}
		if v, ok := metrics[models.MetricDistance]; ok {
			distance = &v
		}

		_, err = im.store.GetActivityDay(date)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			err = im.store.CreateActivityDay(&models.ActivityDay{
				Date:          date,
				Steps:         steps,
				CaloriesTotal: calories,
				DistanceKM:    distance,
			})
		case err == nil:
			err = im.store.FillActivityDayGaps(date, steps, calories, distance)
		}
		if err != nil {
			im.log.Debug("daily aggregation error", "day", day, "err", err)
			continue
		}
		count++
	}
	return count
}
