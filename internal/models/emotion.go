// ABOUTME: EmotionLog model for detected emotions over time.
// ABOUTME: Includes per-emotion aggregate statistics.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EmotionLog records one detected emotion with a confidence score.
type EmotionLog struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	UserID     string    `json:"userId" yaml:"user_id"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Emotion    string    `json:"emotion" yaml:"emotion"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	CreatedAt  time.Time `json:"createdAt" yaml:"created_at"`
}

// NewEmotionLog creates a log entry with a generated UUID.
func NewEmotionLog(userID, emotion string, confidence float64, at time.Time) *EmotionLog {
	return &EmotionLog{
		ID:         uuid.New(),
		UserID:     userID,
		Timestamp:  at.UTC(),
		Emotion:    emotion,
		Confidence: confidence,
	}
}

// EmotionStat aggregates logs for one emotion.
type EmotionStat struct {
	Emotion       string  `json:"emotion" db:"emotion"`
	Count         int     `json:"count" db:"count"`
	AvgConfidence float64 `json:"avgConfidence" db:"avg_confidence"`
}
