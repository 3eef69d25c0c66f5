// ABOUTME: MCP resource implementations for wellness data.
// ABOUTME: Provides wellness://biometrics/today, wellness://routines/active and wellness://summary.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harperreed/wellness/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	uriBiometricsToday = "wellness://biometrics/today"
	uriRoutinesActive  = "wellness://routines/active"
	uriSummary         = "wellness://summary"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         uriBiometricsToday,
		Name:        "Today's Biometrics",
		Description: "Biometric readings from yesterday and today",
		MIMEType:    "application/json",
	}, s.handleBiometricsTodayResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         uriRoutinesActive,
		Name:        "Active Routines",
		Description: "Routines still scheduled, earliest first",
		MIMEType:    "application/json",
	}, s.handleActiveRoutinesResource)

	// Latest reading per kind over the last week plus routine and emotion context.
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         uriSummary,
		Name:        "Wellness Summary",
		Description: "Latest value per metric kind, active routines and weekly emotion stats",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)
}

// Resource handlers

func (s *Server) handleBiometricsTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	facts, err := s.biometrics.Query(ctx, s.userID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to query biometrics: %w", err)
	}

	counts := make(map[string]int)
	for _, f := range facts {
		counts[string(f.Kind)]++
	}

	return jsonResource(uriBiometricsToday, map[string]interface{}{
		"date":       s.clock.Now().Format(models.DateLayout),
		"biometrics": facts,
		"counts":     counts,
	})
}

func (s *Server) handleActiveRoutinesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	routines, err := s.repo.ListActiveRoutines(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}

	return jsonResource(uriRoutinesActive, map[string]interface{}{
		"routines": routines,
		"count":    len(routines),
	})
}

func (s *Server) handleSummaryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	facts, err := s.biometrics.Query(ctx, s.userID, 7)
	if err != nil {
		return nil, fmt.Errorf("failed to query biometrics: %w", err)
	}

	// Facts arrive newest first, so the first per kind is the latest.
	latest := make(map[string]interface{})
	for _, f := range facts {
		if _, seen := latest[string(f.Kind)]; seen {
			continue
		}
		latest[string(f.Kind)] = map[string]interface{}{
			"value": f.Value,
			"unit":  f.Unit(),
			"date":  f.Date,
			"time":  f.Time,
		}
	}

	routines, err := s.repo.ListActiveRoutines(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}

	now := s.clock.Now()
	stats, err := s.repo.EmotionStats(ctx, s.userID, now.AddDate(0, 0, -7), now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute emotion stats: %w", err)
	}

	return jsonResource(uriSummary, map[string]interface{}{
		"generated_at":    now.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"latest":          latest,
		"active_routines": routines,
		"emotions":        stats,
		"summary": map[string]int{
			"metric_kinds":    len(latest),
			"readings":        len(facts),
			"active_routines": len(routines),
		},
	})
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
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
