// ABOUTME: Parser for the CGM export CSV (health-export dump format).
// ABOUTME: Keeps only GlucoseMeasurement rows; anything malformed is skipped.
package cgm

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/harperreed/pulse/internal/models"
)

// occurredAtLayout matches the export's occurred_at column, which carries a
// zone offset.
const occurredAtLayout = "2006-01-02 15:04:05 -0700"

// ParseCSV reads a CGM export and returns the glucose readings it contains.
// The file mixes measurement classes; only GlucoseMeasurement rows are kept,
// and rows with an unparseable value or timestamp are dropped.
func ParseCSV(r io.Reader) ([]*models.GlucoseReading, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var readings []*models.GlucoseReading
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if field(row, "class") != "GlucoseMeasurement" {
			continue
		}

		value, err := strconv.Atoi(field(row, "value"))
		if err != nil {
			continue
		}
		occurred, err := time.Parse(occurredAtLayout, field(row, "occurred_at"))
		if err != nil {
			continue
		}

		readings = append(readings, &models.GlucoseReading{
			Timestamp: time.Date(occurred.Year(), occurred.Month(), occurred.Day(),
				occurred.Hour(), occurred.Minute(), occurred.Second(), 0, time.Local),
			Value:  value,
			Source: "csv_import",
		})
	}
	return readings, nil
}
