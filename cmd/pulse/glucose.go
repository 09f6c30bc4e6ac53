// ABOUTME: CLI commands for CGM glucose data: CSV import and latest reading.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/pulse/internal/cgm"
	"github.com/harperreed/pulse/internal/storage"
)

var glucoseCmd = &cobra.Command{
	Use:   "glucose",
	Short: "Work with CGM glucose readings",
}

var glucoseImportCmd = &cobra.Command{
	Use:   "import <export.csv>",
	Short: "Import glucose readings from a CSV export",
	Long: `Import glucose readings from a CSV export.

The file is the mixed-measurement dump format; only GlucoseMeasurement
rows are used. Readings already stored are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("cannot open %s: %w", args[0], err)
		}
		defer f.Close()

		readings, err := cgm.ParseCSV(f)
		if err != nil {
			return fmt.Errorf("parse failed: %w", err)
		}
		inserted, err := store.InsertGlucoseReadings(readings)
		if err != nil {
			return fmt.Errorf("store failed: %w", err)
		}

		color.Green("✓ Imported %s", args[0])
		fmt.Printf("  %d readings parsed, %d new\n", len(readings), inserted)
		return nil
	},
}

var glucoseLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent glucose reading",
	RunE: func(cmd *cobra.Command, args []string) error {
		reading, err := store.LatestGlucoseReading()
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println("No glucose readings stored.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("%d mg/dL  %s  %s\n",
			reading.Value,
			reading.Timestamp.Format("2006-01-02 15:04"),
			color.New(color.Faint).Sprint(reading.Source))
		return nil
	},
}

func init() {
	glucoseCmd.AddCommand(glucoseImportCmd)
	glucoseCmd.AddCommand(glucoseLatestCmd)
	rootCmd.AddCommand(glucoseCmd)
}
