// ABOUTME: Routine and RoutineFeedback models for scheduled focus sessions.
// ABOUTME: A confirmed routine runs for a fixed block and collects feedback afterwards.
package models

import (
	"time"
)

// RoutineDuration is the length of every confirmed routine.
const RoutineDuration = 30 * time.Minute

// RoutineStatus tracks where a routine is in its lifecycle.
type RoutineStatus string

const (
	RoutineActive    RoutineStatus = "active"
	RoutineCompleted RoutineStatus = "completed"
	RoutineMissed    RoutineStatus = "missed"
)

// IsValidRoutineStatus checks if a string is a known routine status.
func IsValidRoutineStatus(s string) bool {
	switch RoutineStatus(s) {
	case RoutineActive, RoutineCompleted, RoutineMissed:
		return true
	}
	return false
}

// Routine is a scheduled activity block owned by a user.
type Routine struct {
	ID          int64         `json:"id" yaml:"id"`
	UserID      string        `json:"userId" yaml:"user_id"`
	Title       string        `json:"title" yaml:"title"`
	Description *string       `json:"description,omitempty" yaml:"description,omitempty"`
	Goal        *string       `json:"goal,omitempty" yaml:"goal,omitempty"`
	StartTime   time.Time     `json:"startTime" yaml:"start_time"`
	EndTime     time.Time     `json:"endTime" yaml:"end_time"`
	Status      RoutineStatus `json:"status" yaml:"status"`
	CreatedAt   time.Time     `json:"createdAt" yaml:"created_at"`
}

// NewRoutine creates an active routine ending RoutineDuration after start.
func NewRoutine(userID, title string, start time.Time) *Routine {
	return &Routine{
		UserID:    userID,
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(RoutineDuration),
		Status:    RoutineActive,
	}
}

// WithDescription sets the routine description.
func (r *Routine) WithDescription(description string) *Routine {
	if description != "" {
		r.Description = &description
	}
	return r
}

// WithGoal sets the routine goal.
func (r *Routine) WithGoal(goal string) *Routine {
	if goal != "" {
		r.Goal = &goal
	}
	return r
}

// RoutineFeedback is the post-session reflection on a routine.
type RoutineFeedback struct {
	ID                 int64     `json:"id" yaml:"id"`
	RoutineID          int64     `json:"routineId" yaml:"routine_id"`
	RoutineTitle       string    `json:"routineTitle,omitempty" yaml:"routine_title,omitempty"`
	RoutineDescription *string   `json:"routineDescription,omitempty" yaml:"routine_description,omitempty"`
	FocusScore         int       `json:"focusScore" yaml:"focus_score"`
	InterruptionCount  int       `json:"interruptionCount" yaml:"interruption_count"`
	EmotionSummary     string    `json:"emotionSummary" yaml:"emotion_summary"`
	FeedbackText       string    `json:"feedbackText" yaml:"feedback_text"`
	CreatedAt          time.Time `json:"createdAt" yaml:"created_at"`
}

// NewRoutineFeedback creates feedback for a routine.
func NewRoutineFeedback(routineID int64, focusScore, interruptions int, emotionSummary, text string) *RoutineFeedback {
	return &RoutineFeedback{
		RoutineID:         routineID,
		FocusScore:        focusScore,
		InterruptionCount: interruptions,
		EmotionSummary:    emotionSummary,
		FeedbackText:      text,
	}
}
