// ABOUTME: CLI command for ingesting an export archive.
// ABOUTME: Prints a per-data-type summary of newly stored records.
package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/pulse/internal/importer"
)

var importCmd = &cobra.Command{
	Use:     "import <archive.zip>",
	Aliases: []string{"ingest"},
	Short:   "Ingest an export archive",
	Long: `Ingest a wearable export archive (Google Takeout ZIP or the legacy
export format).

Already-stored records are skipped, so re-importing an archive is safe.
The summary lists only data types that gained new records.

Examples:
  pulse import takeout.zip
  pulse import ~/Downloads/MyFitbitData.zip`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imp := importer.New(store, logger)
		summary, err := imp.Ingest(args[0])
		if errors.Is(err, importer.ErrArchiveNotFound) {
			return fmt.Errorf("cannot read archive: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		if len(summary) == 0 {
			fmt.Println("No new records found.")
			return nil
		}

		color.Green("✓ Imported %s", args[0])
		total := 0
		for _, line := range summaryLines(summary) {
			fmt.Println("  " + line)
		}
		for _, count := range summary {
			total += count
		}
		fmt.Printf("  %s\n", color.New(color.Faint).Sprintf("%d new records", total))
		return nil
	},
}

// summaryLines renders the summary map sorted by data type.
func summaryLines(summary map[string]int) []string {
	types := make([]string, 0, len(summary))
	for t := range summary {
		types = append(types, t)
	}
	sort.Strings(types)

	lines := make([]string, 0, len(types))
	for _, t := range types {
		lines = append(lines, fmt.Sprintf("%-28s %d", t, summary[t]))
	}
	return lines
}

func init() {
	rootCmd.AddCommand(importCmd)
}
