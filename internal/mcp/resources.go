// ABOUTME: MCP resource implementations for the biometrics store.
// ABOUTME: Provides pulse://today and pulse://glucose/latest snapshots.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pulse/internal/storage"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "pulse://today",
		Name:        "Today's Biometrics",
		Description: "Today's activity summary, sleep sessions, and daily heart rate",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "pulse://glucose/latest",
		Name:        "Latest Glucose Reading",
		Description: "The most recent CGM glucose reading",
		MIMEType:    "application/json",
	}, s.handleLatestGlucoseResource)
}

func resourceJSON(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	today, _ := time.Parse("2006-01-02", time.Now().Format("2006-01-02"))

	result := map[string]any{}
	if day, err := s.store.GetActivityDay(today); err == nil {
		result["activity"] = day
	}
	if sessions, err := s.store.ListSleepSessions(today, today); err == nil && len(sessions) > 0 {
		result["sleep"] = sessions
	}
	if days, err := s.store.ListHeartRateDays(today, today); err == nil && len(days) > 0 {
		result["heart_rate"] = days[0]
	}
	if len(result) == 0 {
		result["message"] = "No data for today yet."
	}

	return resourceJSON("pulse://today", result)
}

func (s *Server) handleLatestGlucoseResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	reading, err := s.store.LatestGlucoseReading()
	if errors.Is(err, storage.ErrNotFound) {
		return resourceJSON("pulse://glucose/latest", map[string]string{"message": "No glucose readings stored."})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}
	return resourceJSON("pulse://glucose/latest", reading)
}
