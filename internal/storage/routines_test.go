// ABOUTME: Tests for routines, routine feedback, reports and emotion logs.
// ABOUTME: Verifies ownership scoping and ordering.
package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/wellness/internal/models"
)

func TestCreateAndListActiveRoutines(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	later := models.NewRoutine("U1", "Later", base.Add(2*time.Hour))
	earlier := models.NewRoutine("U1", "Earlier", base).WithGoal("focus")
	other := models.NewRoutine("U2", "Not mine", base)

	for _, r := range []*models.Routine{later, earlier, other} {
		if err := db.CreateRoutine(ctx, r); err != nil {
			t.Fatalf("CreateRoutine failed: %v", err)
		}
		if r.ID == 0 {
			t.Fatal("expected routine id to be set")
		}
	}

	got, err := db.ListActiveRoutines(ctx, "U1")
	if err != nil {
		t.Fatalf("ListActiveRoutines failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 routines, got %d", len(got))
	}
	if got[0].Title != "Earlier" || got[1].Title != "Later" {
		t.Errorf("order = %s, %s", got[0].Title, got[1].Title)
	}
	if !got[0].EndTime.Equal(base.Add(30 * time.Minute)) {
		t.Errorf("EndTime = %v", got[0].EndTime)
	}
	if got[0].Goal == nil || *got[0].Goal != "focus" {
		t.Errorf("Goal = %v", got[0].Goal)
	}
}

func TestUpdateRoutineStatus(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	r := models.NewRoutine("U1", "Walk", time.Now())
	if err := db.CreateRoutine(ctx, r); err != nil {
		t.Fatalf("CreateRoutine failed: %v", err)
	}

	if err := db.UpdateRoutineStatus(ctx, "U2", r.ID, models.RoutineCompleted); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user update: expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateRoutineStatus(ctx, "U1", r.ID, models.RoutineCompleted); err != nil {
		t.Fatalf("UpdateRoutineStatus failed: %v", err)
	}

	active, err := db.ListActiveRoutines(ctx, "U1")
	if err != nil {
		t.Fatalf("ListActiveRoutines failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("completed routine still listed as active")
	}
}

func TestRoutineFeedback(t *testing.T) {
	db, clk := setupTestDB(t)
	ctx := context.Background()

	r := models.NewRoutine("U1", "Study", time.Now()).WithDescription("ch. 4")
	if err := db.CreateRoutine(ctx, r); err != nil {
		t.Fatalf("CreateRoutine failed: %v", err)
	}

	fb := models.NewRoutineFeedback(r.ID, 80, 2, "calm", "went well")
	fb.CreatedAt = time.Time{}
	if err := db.CreateRoutineFeedback(ctx, "U1", fb); err != nil {
		t.Fatalf("CreateRoutineFeedback failed: %v", err)
	}
	clk.Advance(time.Minute)
	fb2 := models.NewRoutineFeedback(r.ID, 40, 5, "tired", "distracted")
	fb2.CreatedAt = time.Time{}
	if err := db.CreateRoutineFeedback(ctx, "U1", fb2); err != nil {
		t.Fatalf("CreateRoutineFeedback failed: %v", err)
	}

	err := db.CreateRoutineFeedback(ctx, "U2", models.NewRoutineFeedback(r.ID, 10, 0, "x", "y"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("feedback on another user's routine: expected ErrNotFound, got %v", err)
	}

	got, err := db.ListRoutineFeedback(ctx, "U1", &r.ID)
	if err != nil {
		t.Fatalf("ListRoutineFeedback failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 feedback entries, got %d", len(got))
	}
	if got[0].FeedbackText != "distracted" {
		t.Errorf("expected newest first, got %s", got[0].FeedbackText)
	}
	if got[0].RoutineTitle != "Study" || got[0].RoutineDescription == nil {
		t.Errorf("routine join missing: %+v", got[0])
	}

	none, err := db.ListRoutineFeedback(ctx, "U2", nil)
	if err != nil {
		t.Fatalf("ListRoutineFeedback failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("U2 should see no feedback, got %d", len(none))
	}
}

func TestReports(t *testing.T) {
	db, clk := setupTestDB(t)
	ctx := context.Background()

	first := models.NewReport("U1")
	first.CreatedAt = time.Time{}
	duration, success := 25, models.ReportPass
	first.Duration = &duration
	first.Success = &success
	if err := db.CreateReport(ctx, first); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}

	clk.Advance(time.Hour)
	second := models.NewReport("U1")
	second.CreatedAt = time.Time{}
	if err := db.CreateReport(ctx, second); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}

	got, err := db.ListReports(ctx, "U1")
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	if got[0].ID != second.ID {
		t.Errorf("expected newest report first")
	}
	if got[1].Duration == nil || *got[1].Duration != 25 || got[1].Success == nil || *got[1].Success != "P" {
		t.Errorf("optional fields lost: %+v", got[1])
	}
}

func TestEmotionLogsAndStats(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	logs := []*models.EmotionLog{
		models.NewEmotionLog("U1", "happy", 0.9, base),
		models.NewEmotionLog("U1", "happy", 0.7, base.Add(time.Hour)),
		models.NewEmotionLog("U1", "sad", 0.4, base.Add(2*time.Hour)),
		models.NewEmotionLog("U1", "sad", 0.8, base.Add(48*time.Hour)),
	}
	for _, l := range logs {
		if err := db.CreateEmotionLog(ctx, l); err != nil {
			t.Fatalf("CreateEmotionLog failed: %v", err)
		}
	}

	from, to := base, base.Add(24*time.Hour)
	got, err := db.ListEmotionLogs(ctx, "U1", from, to)
	if err != nil {
		t.Fatalf("ListEmotionLogs failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(got))
	}
	if got[0].Emotion != "sad" {
		t.Errorf("expected newest first, got %s", got[0].Emotion)
	}

	stats, err := db.EmotionStats(ctx, "U1", from, to)
	if err != nil {
		t.Fatalf("EmotionStats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 stats rows, got %d", len(stats))
	}
	if stats[0].Emotion != "happy" || stats[0].Count != 2 {
		t.Errorf("stats[0] = %+v", stats[0])
	}
	if diff := stats[0].AvgConfidence - 0.8; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg confidence = %v, want 0.8", stats[0].AvgConfidence)
	}
}

func TestCreateStampsStoreClock(t *testing.T) {
	db, clk := setupTestDB(t)
	ctx := context.Background()
	clk.Advance(90 * time.Minute)
	want := clk.Now()

	u := models.NewUser("stamp@example.com", models.ProviderLocal)
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	r := models.NewRoutine("U1", "Stretch", want)
	if err := db.CreateRoutine(ctx, r); err != nil {
		t.Fatalf("CreateRoutine failed: %v", err)
	}
	fb := models.NewRoutineFeedback(r.ID, 70, 1, "calm", "fine")
	if err := db.CreateRoutineFeedback(ctx, "U1", fb); err != nil {
		t.Fatalf("CreateRoutineFeedback failed: %v", err)
	}
	rep := models.NewReport("U1")
	if err := db.CreateReport(ctx, rep); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	e := models.NewEmotionLog("U1", "happy", 0.8, want)
	if err := db.CreateEmotionLog(ctx, e); err != nil {
		t.Fatalf("CreateEmotionLog failed: %v", err)
	}

	gotUser, err := db.GetUser(ctx, u.ID.String())
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	gotRoutine, err := db.GetRoutine(ctx, "U1", r.ID)
	if err != nil {
		t.Fatalf("GetRoutine failed: %v", err)
	}
	feedback, err := db.ListRoutineFeedback(ctx, "U1", &r.ID)
	if err != nil || len(feedback) != 1 {
		t.Fatalf("ListRoutineFeedback = %d, %v", len(feedback), err)
	}
	reports, err := db.ListReports(ctx, "U1")
	if err != nil || len(reports) != 1 {
		t.Fatalf("ListReports = %d, %v", len(reports), err)
	}

	stamps := map[string]time.Time{
		"user created":     gotUser.CreatedAt,
		"user updated":     gotUser.UpdatedAt,
		"routine":          gotRoutine.CreatedAt,
		"routine feedback": feedback[0].CreatedAt,
		"report":           reports[0].CreatedAt,
		"emotion log":      e.CreatedAt,
	}
	for name, got := range stamps {
		if !got.Equal(want) {
			t.Errorf("%s CreatedAt = %v, want store clock %v", name, got, want)
		}
	}
}
