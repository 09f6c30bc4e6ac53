// ABOUTME: Tests for CLI helpers.
package main

import (
	"strings"
	"testing"
)

func TestSummaryLines(t *testing.T) {
	lines := summaryLines(map[string]int{
		"sleep_logs":          3,
		"heart_rate_intraday": 86400,
		"exercises":           2,
	})
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	// Sorted by data type.
	if !strings.HasPrefix(lines[0], "exercises") {
		t.Errorf("first line = %q, want exercises first", lines[0])
	}
	if !strings.Contains(lines[1], "86400") {
		t.Errorf("heart rate line = %q, want count 86400", lines[1])
	}
}

func TestSummaryLinesEmpty(t *testing.T) {
	if lines := summaryLines(nil); len(lines) != 0 {
		t.Errorf("got %d lines, want 0", len(lines))
	}
}
