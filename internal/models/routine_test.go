// ABOUTME: Tests for Routine, Report and User model constructors.
// ABOUTME: Verifies fixed routine length and builder methods.
package models

import (
	"testing"
	"time"
)

func TestNewRoutine(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	r := NewRoutine("u1", "Deep work", start)

	if r.Status != RoutineActive {
		t.Errorf("Status = %v, want active", r.Status)
	}
	if got := r.EndTime.Sub(r.StartTime); got != 30*time.Minute {
		t.Errorf("duration = %v, want 30m", got)
	}
	if r.Description != nil || r.Goal != nil {
		t.Error("expected nil description and goal")
	}
	if !r.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, want zero until stored", r.CreatedAt)
	}
}

func TestRoutineBuilders(t *testing.T) {
	r := NewRoutine("u1", "Read", time.Now()).
		WithDescription("chapter 3").
		WithGoal("")

	if r.Description == nil || *r.Description != "chapter 3" {
		t.Errorf("Description = %v, want chapter 3", r.Description)
	}
	if r.Goal != nil {
		t.Errorf("empty goal should stay nil, got %v", *r.Goal)
	}
}

func TestIsValidRoutineStatus(t *testing.T) {
	for _, s := range []string{"active", "completed", "missed"} {
		if !IsValidRoutineStatus(s) {
			t.Errorf("IsValidRoutineStatus(%q) = false", s)
		}
	}
	if IsValidRoutineStatus("paused") {
		t.Error("IsValidRoutineStatus(paused) = true")
	}
}

func TestIsValidReportSuccess(t *testing.T) {
	tests := map[string]bool{"P": true, "F": true, "p": false, "": false, "X": false}
	for in, want := range tests {
		if got := IsValidReportSuccess(in); got != want {
			t.Errorf("IsValidReportSuccess(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestUserProfile(t *testing.T) {
	u := NewUser("a@example.com", ProviderLocal).WithNickname("ace")
	p := u.Profile()

	if p.UserID != u.ID.String() {
		t.Errorf("UserID = %s, want %s", p.UserID, u.ID)
	}
	if p.Nickname == nil || *p.Nickname != "ace" {
		t.Errorf("Nickname = %v, want ace", p.Nickname)
	}
	if p.TutorialCompleted {
		t.Error("new user should not have completed the tutorial")
	}
}

func TestConstructorsLeaveTimestampsZero(t *testing.T) {
	u := NewUser("a@example.com", ProviderLocal)
	if !u.CreatedAt.IsZero() || !u.UpdatedAt.IsZero() {
		t.Errorf("user timestamps = %v/%v, want zero", u.CreatedAt, u.UpdatedAt)
	}
	if fb := NewRoutineFeedback(1, 80, 0, "calm", "ok"); !fb.CreatedAt.IsZero() {
		t.Errorf("feedback CreatedAt = %v, want zero", fb.CreatedAt)
	}
	if r := NewReport("u1"); !r.CreatedAt.IsZero() {
		t.Errorf("report CreatedAt = %v, want zero", r.CreatedAt)
	}
	if e := NewEmotionLog("u1", "happy", 0.9, time.Now()); !e.CreatedAt.IsZero() {
		t.Errorf("emotion CreatedAt = %v, want zero", e.CreatedAt)
	}
}
