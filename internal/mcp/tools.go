// ABOUTME: MCP tool implementations for biometrics, routines, reports and emotions.
// ABOUTME: Every tool acts on the server's configured user.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	// ingest_batch
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ingest_batch",
		Description: "Record biometric readings of one kind (step, heart_rate, deep_sleep, ...)",
	}, s.handleIngestBatch)

	// query_biometrics
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_biometrics",
		Description: "List biometric readings from the last N days, newest first",
	}, s.handleQueryBiometrics)

	// list_routines
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_routines",
		Description: "List scheduled routines, active ones by default",
	}, s.handleListRoutines)

	// update_routine_status
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_routine_status",
		Description: "Mark a routine active, completed or missed",
	}, s.handleUpdateRoutineStatus)

	// list_reports
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_reports",
		Description: "List session reports, newest first",
	}, s.handleListReports)

	// log_emotion
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_emotion",
		Description: "Record a detected emotion with a confidence between 0 and 1",
	}, s.handleLogEmotion)

	// emotion_stats
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "emotion_stats",
		Description: "Count and average confidence per emotion over the last N days",
	}, s.handleEmotionStats)
}

// Tool input/output types

type recordInput struct {
	Date  string `json:"date" jsonschema:"Date as YYYY-MM-DD"`
	Time  string `json:"time" jsonschema:"Time of day as HH:MM:SS"`
	Value any    `json:"value" jsonschema:"Reading value, a number or an opaque string"`
}

type ingestBatchInput struct {
	DataType string        `json:"data_type" jsonschema:"Metric kind such as step or heart_rate"`
	Records  []recordInput `json:"records" jsonschema:"Readings to store"`
}

type ingestOutput struct {
	InsertedCount int64  `json:"inserted_count"`
	Message       string `json:"message"`
}

type queryBiometricsInput struct {
	Days       int    `json:"days,omitempty" jsonschema:"Window size in days, 1 to 30 (default 1)"`
	MetricKind string `json:"metric_kind,omitempty" jsonschema:"Only return this metric kind"`
}

type listRoutinesInput struct {
	All bool `json:"all,omitempty" jsonschema:"Include completed and missed routines"`
}

type updateRoutineStatusInput struct {
	ID     int64  `json:"id" jsonschema:"Routine ID"`
	Status string `json:"status" jsonschema:"One of active, completed, missed"`
}

type logEmotionInput struct {
	Emotion    string  `json:"emotion" jsonschema:"Emotion label"`
	Confidence float64 `json:"confidence" jsonschema:"Detection confidence between 0 and 1"`
	Timestamp  string  `json:"timestamp,omitempty" jsonschema:"When it was detected (RFC 3339), defaults to now"`
}

type emotionStatsInput struct {
	Days int `json:"days,omitempty" jsonschema:"Lookback in days (default 7)"`
}

type emptyInput struct{}

type simpleOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleIngestBatch(ctx context.Context, req *mcp.CallToolRequest, input ingestBatchInput) (*mcp.CallToolResult, ingestOutput, error) {
	batch := &ingest.Batch{DataType: input.DataType}
	for i, r := range input.Records {
		value, err := toValue(r.Value)
		if err != nil {
			return nil, ingestOutput{}, fmt.Errorf("record %d: %w", i, err)
		}
		date, clock := r.Date, r.Time
		batch.Records = append(batch.Records, ingest.Record{Date: &date, Time: &clock, Value: value})
	}

	n, err := s.biometrics.Ingest(ctx, s.userID, batch)
	if err != nil {
		return nil, ingestOutput{}, fmt.Errorf("failed to ingest readings: %w", err)
	}

	return nil, ingestOutput{
		InsertedCount: n,
		Message:       fmt.Sprintf("Stored %d %s reading(s)", n, input.DataType),
	}, nil
}

// toValue maps a decoded JSON value onto the fact value variants.
func toValue(v any) (models.Value, error) {
	switch val := v.(type) {
	case nil:
		return models.Value{}, nil
	case float64:
		return models.Numeric(val), nil
	case int:
		return models.Numeric(float64(val)), nil
	case string:
		return models.Opaque(val), nil
	default:
		return models.Value{}, fmt.Errorf("value must be a number or string, got %T", v)
	}
}

func (s *Server) handleQueryBiometrics(ctx context.Context, req *mcp.CallToolRequest, input queryBiometricsInput) (*mcp.CallToolResult, any, error) {
	facts, err := s.biometrics.Query(ctx, s.userID, input.Days)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query biometrics: %w", err)
	}

	if input.MetricKind != "" {
		filtered := facts[:0]
		for _, f := range facts {
			if string(f.Kind) == input.MetricKind {
				filtered = append(filtered, f)
			}
		}
		facts = filtered
	}

	if len(facts) == 0 {
		return nil, map[string]interface{}{"message": "No biometric readings found."}, nil
	}
	return nil, map[string]interface{}{"biometrics": facts, "count": len(facts)}, nil
}

func (s *Server) handleListRoutines(ctx context.Context, req *mcp.CallToolRequest, input listRoutinesInput) (*mcp.CallToolResult, any, error) {
	var (
		routines []*models.Routine
		err      error
	)
	if input.All {
		routines, err = s.repo.ListRoutines(ctx, s.userID)
	} else {
		routines, err = s.repo.ListActiveRoutines(ctx, s.userID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list routines: %w", err)
	}

	if len(routines) == 0 {
		return nil, map[string]interface{}{"message": "No routines found."}, nil
	}
	return nil, map[string]interface{}{"routines": routines}, nil
}

func (s *Server) handleUpdateRoutineStatus(ctx context.Context, req *mcp.CallToolRequest, input updateRoutineStatusInput) (*mcp.CallToolResult, simpleOutput, error) {
	if !models.IsValidRoutineStatus(input.Status) {
		return nil, simpleOutput{}, fmt.Errorf("unknown routine status: %s", input.Status)
	}
	if err := s.repo.UpdateRoutineStatus(ctx, s.userID, input.ID, models.RoutineStatus(input.Status)); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to update routine %d: %w", input.ID, err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Routine %d is now %s", input.ID, input.Status),
	}, nil
}

func (s *Server) handleListReports(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	reports, err := s.repo.ListReports(ctx, s.userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reports: %w", err)
	}

	if len(reports) == 0 {
		return nil, map[string]interface{}{"message": "No reports found."}, nil
	}
	return nil, map[string]interface{}{"reports": reports}, nil
}

func (s *Server) handleLogEmotion(ctx context.Context, req *mcp.CallToolRequest, input logEmotionInput) (*mcp.CallToolResult, simpleOutput, error) {
	if input.Emotion == "" {
		return nil, simpleOutput{}, fmt.Errorf("emotion is required")
	}
	if input.Confidence < 0 || input.Confidence > 1 {
		return nil, simpleOutput{}, fmt.Errorf("confidence must be between 0 and 1, got %g", input.Confidence)
	}

	at := s.clock.Now()
	if input.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, input.Timestamp)
		if err != nil {
			return nil, simpleOutput{}, fmt.Errorf("invalid timestamp %q: %w", input.Timestamp, err)
		}
		at = t
	}

	e := models.NewEmotionLog(s.userID, input.Emotion, input.Confidence, at)
	if err := s.repo.CreateEmotionLog(ctx, e); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to log emotion: %w", err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Logged %s (%.2f) at %s", e.Emotion, e.Confidence, e.Timestamp.Format(time.RFC3339)),
	}, nil
}

func (s *Server) handleEmotionStats(ctx context.Context, req *mcp.CallToolRequest, input emotionStatsInput) (*mcp.CallToolResult, any, error) {
	days := input.Days
	if days <= 0 {
		days = 7
	}
	to := s.clock.Now()
	from := to.AddDate(0, 0, -days)

	stats, err := s.repo.EmotionStats(ctx, s.userID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute emotion stats: %w", err)
	}
	if len(stats) == 0 {
		return nil, map[string]interface{}{"message": "No emotions logged."}, nil
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })
	return nil, map[string]interface{}{
		"days":  days,
		"stats": stats,
	}, nil
}
