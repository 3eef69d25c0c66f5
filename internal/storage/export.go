// ABOUTME: Export and import of one user's wellness data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/sealing"
	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for one user.
type ExportData struct {
	Version     string                    `json:"version" yaml:"version"`
	ExportedAt  time.Time                 `json:"exported_at" yaml:"exported_at"`
	Tool        string                    `json:"tool" yaml:"tool"`
	UserID      string                    `json:"user_id" yaml:"user_id"`
	Facts       []*models.StoredFact      `json:"facts" yaml:"facts"`
	Routines    []*models.Routine         `json:"routines" yaml:"routines"`
	Feedback    []*models.RoutineFeedback `json:"routine_feedback" yaml:"routine_feedback"`
	Reports     []*models.Report          `json:"reports" yaml:"reports"`
	EmotionLogs []*models.EmotionLog      `json:"emotion_logs" yaml:"emotion_logs"`
}

// ImportSummary holds counts of imported entities.
type ImportSummary struct {
	Facts       int64
	Routines    int
	Feedback    int
	Reports     int
	EmotionLogs int
}

// GetAllData retrieves all of a user's data for export.
func (d *DB) GetAllData(ctx context.Context, userID string) (*ExportData, error) {
	facts, err := d.ListFacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	routines, err := d.ListRoutines(ctx, userID)
	if err != nil {
		return nil, err
	}
	feedback, err := d.ListRoutineFeedback(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	reports, err := d.ListReports(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs, err := d.ListEmotionLogs(ctx, userID, time.Time{}, d.now().AddDate(100, 0, 0))
	if err != nil {
		return nil, err
	}

	return &ExportData{
		Version:     "1.0",
		ExportedAt:  d.now(),
		Tool:        "wellness",
		UserID:      userID,
		Facts:       facts,
		Routines:    routines,
		Feedback:    feedback,
		Reports:     reports,
		EmotionLogs: logs,
	}, nil
}

// ImportData writes exported data under userID in one transaction. Facts are
// revalidated by norm first, so an invalid fact rejects the import before any
// write. Routine ids are reassigned and feedback follows its routine to the new id.
func (d *DB) ImportData(ctx context.Context, userID string, data *ExportData, norm ingest.Normalizer) (*ImportSummary, error) {
	// Facts are stored oldest first so ids keep their relative order.
	raw := make([]models.Fact, 0, len(data.Facts))
	for i := len(data.Facts) - 1; i >= 0; i-- {
		if data.Facts[i] == nil {
			continue
		}
		raw = append(raw, data.Facts[i].Fact)
	}
	facts, err := norm.NormalizeFacts(userID, raw)
	if err != nil {
		return nil, fmt.Errorf("import facts: %w", err)
	}

	summary := &ImportSummary{}
	err = d.inTx(ctx, func(tx *sqlx.Tx) error {
		for i, f := range facts {
			if _, err := d.appendFact(ctx, tx, f); err != nil {
				return fmt.Errorf("fact %d: %w", i, err)
			}
			summary.Facts++
		}

		routineIDs := make(map[int64]int64, len(data.Routines))
		for _, r := range data.Routines {
			oldID := r.ID
			copied := *r
			copied.UserID = userID
			if err := d.insertRoutine(ctx, tx, &copied); err != nil {
				return fmt.Errorf("routine %d: %w", oldID, err)
			}
			routineIDs[oldID] = copied.ID
			summary.Routines++
		}

		for _, fb := range data.Feedback {
			newID, ok := routineIDs[fb.RoutineID]
			if !ok {
				continue
			}
			copied := *fb
			copied.RoutineID = newID
			if err := d.insertRoutineFeedback(ctx, tx, &copied); err != nil {
				return fmt.Errorf("routine feedback %d: %w", fb.ID, err)
			}
			summary.Feedback++
		}

		for _, r := range data.Reports {
			copied := *r
			copied.UserID = userID
			if err := d.insertReport(ctx, tx, &copied); err != nil {
				return fmt.Errorf("report %d: %w", r.ID, err)
			}
			summary.Reports++
		}

		for _, e := range data.EmotionLogs {
			copied := *e
			copied.ID = uuid.New()
			copied.UserID = userID
			if err := d.insertEmotionLog(ctx, tx, &copied); err != nil {
				return fmt.Errorf("emotion log: %w", err)
			}
			summary.EmotionLogs++
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("import", err)
	}
	return summary, nil
}

// ExportJSON exports a user's data as JSON.
func ExportJSON(ctx context.Context, repo Repository, userID string) ([]byte, error) {
	data, err := repo.GetAllData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ImportJSON imports data from JSON bytes.
func ImportJSON(ctx context.Context, repo Repository, userID string, raw []byte, norm ingest.Normalizer) (*ImportSummary, error) {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return repo.ImportData(ctx, userID, &data, norm)
}

type yamlFact struct {
	Date  string       `yaml:"date"`
	Time  string       `yaml:"time"`
	Value models.Value `yaml:"value"`
	Unit  string       `yaml:"unit,omitempty"`
}

type yamlRoutine struct {
	ID        int64  `yaml:"id"`
	Title     string `yaml:"title"`
	Status    string `yaml:"status"`
	StartTime string `yaml:"start_time"`
	Goal      string `yaml:"goal,omitempty"`
}

// ExportYAML exports a user's data as YAML with facts grouped by kind.
func ExportYAML(ctx context.Context, repo Repository, userID string) ([]byte, error) {
	data, err := repo.GetAllData(ctx, userID)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version     string                `yaml:"version"`
		ExportedAt  string                `yaml:"exported_at"`
		Tool        string                `yaml:"tool"`
		UserID      string                `yaml:"user_id"`
		Facts       map[string][]yamlFact `yaml:"facts"`
		Routines    []yamlRoutine         `yaml:"routines"`
		Reports     []*models.Report      `yaml:"reports"`
		EmotionLogs []*models.EmotionLog  `yaml:"emotion_logs"`
	}{
		Version:     data.Version,
		ExportedAt:  data.ExportedAt.Format(time.RFC3339),
		Tool:        data.Tool,
		UserID:      data.UserID,
		Facts:       make(map[string][]yamlFact),
		Routines:    make([]yamlRoutine, 0, len(data.Routines)),
		Reports:     data.Reports,
		EmotionLogs: data.EmotionLogs,
	}

	for _, f := range data.Facts {
		k := string(f.Kind)
		yamlData.Facts[k] = append(yamlData.Facts[k], yamlFact{
			Date:  f.Date,
			Time:  f.Time,
			Value: f.Value,
			Unit:  f.Unit(),
		})
	}

	for _, r := range data.Routines {
		yr := yamlRoutine{
			ID:        r.ID,
			Title:     r.Title,
			Status:    string(r.Status),
			StartTime: r.StartTime.Format(time.RFC3339),
		}
		if r.Goal != nil {
			yr.Goal = *r.Goal
		}
		yamlData.Routines = append(yamlData.Routines, yr)
	}

	return yaml.Marshal(yamlData)
}

// ExportMarkdown renders a user's facts as tables, optionally limited to one
// kind and to facts dated on or after since.
func ExportMarkdown(ctx context.Context, repo Repository, userID string, kind *models.MetricKind, since *time.Time) (string, error) {
	data, err := repo.GetAllData(ctx, userID)
	if err != nil {
		return "", err
	}

	sinceDate := ""
	if since != nil {
		sinceDate = since.Format(models.DateLayout)
	}

	grouped := make(map[models.MetricKind][]*models.StoredFact)
	for _, f := range data.Facts {
		if kind != nil && f.Kind != *kind {
			continue
		}
		if sinceDate != "" && f.Date < sinceDate {
			continue
		}
		grouped[f.Kind] = append(grouped[f.Kind], f)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Wellness Export - %s\n\n", data.ExportedAt.Format(models.DateLayout)))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", data.ExportedAt.Format(time.RFC3339)))

	// Kinds follow the fixed ingestion order; unknown kinds from lenient ingestion go last.
	var extra []models.MetricKind
	for k := range grouped {
		if !models.IsValidMetricKind(string(k)) {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	kinds := append(append([]models.MetricKind{}, models.AllMetricKinds...), extra...)

	for _, k := range kinds {
		facts := grouped[k]
		if len(facts) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", k))
		sb.WriteString("| Date | Time | Value |\n")
		sb.WriteString("|------|------|-------|\n")
		for _, f := range facts {
			value := f.Value.String()
			if sealing.IsSealed(value) {
				value = "<sealed>"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s %s |\n", f.Date, f.Time, value, f.Unit()))
		}
		sb.WriteString("\n")
	}

	if kind == nil && len(data.Routines) > 0 {
		sb.WriteString("## Routines\n\n")
		sb.WriteString("| Start | Title | Status |\n")
		sb.WriteString("|-------|-------|--------|\n")
		for _, r := range data.Routines {
			if since != nil && r.StartTime.Before(*since) {
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				r.StartTime.Format("2006-01-02 15:04"), r.Title, r.Status))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
