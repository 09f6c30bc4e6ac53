// ABOUTME: MCP tool implementations over the biometrics store.
// ABOUTME: Read tools take a YYYY-MM-DD date range defaulting to the last 30 days.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pulse/internal/importer"
	"github.com/harperreed/pulse/internal/storage"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_heart_rate_daily",
		Description: "List daily heart rate summaries (resting rate and zone minutes) for a date range",
	}, s.handleListHeartRateDaily)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_sleep",
		Description: "List sleep sessions with durations, stages summary, and scores for a date range",
	}, s.handleListSleep)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_activity",
		Description: "List daily activity summaries (steps, calories, distance, active minutes) for a date range",
	}, s.handleListActivity)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_exercises",
		Description: "List logged exercise sessions for a date range",
	}, s.handleListExercises)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_glucose",
		Description: "List CGM glucose readings for a date range",
	}, s.handleListGlucose)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_latest_glucose",
		Description: "Get the most recent CGM glucose reading",
	}, s.handleGetLatestGlucose)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_sync_status",
		Description: "Show the last-synced date for each cloud data type",
	}, s.handleGetSyncStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "import_archive",
		Description: "Ingest a wearable export archive (ZIP) from a local path",
	}, s.handleImportArchive)
}

// Tool input/output types

type rangeInput struct {
	Start string `json:"start,omitempty" jsonschema:"Range start (YYYY-MM-DD); defaults to 30 days ago"`
	End   string `json:"end,omitempty" jsonschema:"Range end (YYYY-MM-DD); defaults to today"`
}

func (in rangeInput) resolve() (time.Time, time.Time, error) {
	end, _ := time.Parse("2006-01-02", time.Now().Format("2006-01-02"))
	start := end.AddDate(0, 0, -30)

	if in.Start != "" {
		t, err := time.Parse("2006-01-02", in.Start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %s", in.Start)
		}
		start = t
	}
	if in.End != "" {
		t, err := time.Parse("2006-01-02", in.End)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %s", in.End)
		}
		end = t
	}
	return start, end, nil
}

type importInput struct {
	Path string `json:"path" jsonschema:"Local path to the export archive ZIP"`
}

type importOutput struct {
	Summary map[string]int `json:"summary"`
	Message string         `json:"message"`
}

// Tool handlers

func (s *Server) handleListHeartRateDaily(ctx context.Context, req *mcp.CallToolRequest, input rangeInput) (*mcp.CallToolResult, any, error) {
	start, end, err := input.resolve()
	if err != nil {
		return nil, nil, err
	}
	days, err := s.store.ListHeartRateDays(start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list heart rate days: %w", err)
	}
	if len(days) == 0 {
		return nil, map[string]any{"message": "No heart rate data in range."}, nil
	}
	return nil, days, nil
}

func (s *Server) handleListSleep(ctx context.Context, req *mcp.CallToolRequest, input rangeInput) (*mcp.CallToolResult, any, error) {
	start, end, err := input.resolve()
	if err != nil {
		return nil, nil, err
	}
	sessions, err := s.store.ListSleepSessions(start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list sleep sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, map[string]any{"message": "No sleep data in range."}, nil
	}
	return nil, sessions, nil
}

func (s *Server) handleListActivity(ctx context.Context, req *mcp.CallToolRequest, input rangeInput) (*mcp.CallToolResult, any, error) {
	start, end, err := input.resolve()
	if err != nil {
		return nil, nil, err
	}
	days, err := s.store.ListActivityDays(start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list activity days: %w", err)
	}
	if len(days) == 0 {
		return nil, map[string]any{"message": "No activity data in range."}, nil
	}
	return nil, days, nil
}

func (s *Server) handleListExercises(ctx context.Context, req *mcp.CallToolRequest, input rangeInput) (*mcp.CallToolResult, any, error) {
	start, end, err := input.resolve()
	if err != nil {
		return nil, nil, err
	}
	sessions, err := s.store.ListExercises(start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	if len(sessions) == 0 {
		return nil, map[string]any{"message": "No exercises in range."}, nil
	}
	return nil, sessions, nil
}

func (s *Server) handleListGlucose(ctx context.Context, req *mcp.CallToolRequest, input rangeInput) (*mcp.CallToolResult, any, error) {
	start, end, err := input.resolve()
	if err != nil {
		return nil, nil, err
	}
	readings, err := s.store.ListGlucoseReadings(start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list glucose readings: %w", err)
	}
	if len(readings) == 0 {
		return nil, map[string]any{"message": "No glucose readings in range."}, nil
	}
	return nil, readings, nil
}

func (s *Server) handleGetLatestGlucose(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	reading, err := s.store.LatestGlucoseReading()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, map[string]any{"message": "No glucose readings stored."}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest reading: %w", err)
	}
	return nil, reading, nil
}

func (s *Server) handleGetSyncStatus(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	cursors, err := s.store.ListSyncCursors()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list sync cursors: %w", err)
	}
	if len(cursors) == 0 {
		return nil, map[string]any{"message": "No cloud sync has run yet."}, nil
	}
	return nil, cursors, nil
}

func (s *Server) handleImportArchive(ctx context.Context, req *mcp.CallToolRequest, input importInput) (*mcp.CallToolResult, importOutput, error) {
	summary, err := s.importer.Ingest(input.Path)
	if errors.Is(err, importer.ErrArchiveNotFound) {
		return nil, importOutput{}, fmt.Errorf("cannot read archive: %s", input.Path)
	}
	if err != nil {
		return nil, importOutput{}, fmt.Errorf("import failed: %w", err)
	}

	total := 0
	for _, count := range summary {
		total += count
	}
	return nil, importOutput{
		Summary: summary,
		Message: fmt.Sprintf("Imported %d new records across %d data types", total, len(summary)),
	}, nil
}
