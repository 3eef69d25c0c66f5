// ABOUTME: Emotion log persistence and per-emotion statistics.
// ABOUTME: Range queries are inclusive on both ends.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/wellness/internal/models"
	"github.com/jmoiron/sqlx"
)

type emotionRow struct {
	ID         string  `db:"id"`
	UserID     string  `db:"user_id"`
	Timestamp  string  `db:"timestamp"`
	Emotion    string  `db:"emotion"`
	Confidence float64 `db:"confidence"`
	CreatedAt  string  `db:"created_at"`
}

// CreateEmotionLog stores an emotion log entry.
func (d *DB) CreateEmotionLog(ctx context.Context, e *models.EmotionLog) error {
	return storeErr("create emotion log", d.insertEmotionLog(ctx, d.db, e))
}

func (d *DB) insertEmotionLog(ctx context.Context, ext sqlx.ExtContext, e *models.EmotionLog) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = d.now()
	}

	query := ext.Rebind(`
		INSERT INTO emotion_logs (id, user_id, timestamp, emotion, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := ext.ExecContext(ctx, query,
		e.ID.String(),
		e.UserID,
		timestamp(e.Timestamp),
		e.Emotion,
		e.Confidence,
		timestamp(e.CreatedAt),
	)
	return err
}

// ListEmotionLogs returns logs with timestamp in [from, to], newest first.
func (d *DB) ListEmotionLogs(ctx context.Context, userID string, from, to time.Time) ([]*models.EmotionLog, error) {
	query := `
		SELECT id, user_id, timestamp, emotion, confidence, created_at
		FROM emotion_logs
		WHERE user_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
	`
	var rows []emotionRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), userID, timestamp(from), timestamp(to)); err != nil {
		return nil, storeErr("list emotion logs", err)
	}

	logs := make([]*models.EmotionLog, 0, len(rows))
	for _, r := range rows {
		e := &models.EmotionLog{
			UserID:     r.UserID,
			Timestamp:  parseTimestamp(r.Timestamp),
			Emotion:    r.Emotion,
			Confidence: r.Confidence,
			CreatedAt:  parseTimestamp(r.CreatedAt),
		}
		e.ID, _ = uuid.Parse(r.ID)
		logs = append(logs, e)
	}
	return logs, nil
}

// EmotionStats counts logs and averages confidence per emotion in [from, to].
func (d *DB) EmotionStats(ctx context.Context, userID string, from, to time.Time) ([]models.EmotionStat, error) {
	query := `
		SELECT emotion, COUNT(*) AS count, AVG(confidence) AS avg_confidence
		FROM emotion_logs
		WHERE user_id = ? AND timestamp >= ? AND timestamp <= ?
		GROUP BY emotion
		ORDER BY count DESC, emotion ASC
	`
	stats := []models.EmotionStat{}
	if err := d.db.SelectContext(ctx, &stats, d.db.Rebind(query), userID, timestamp(from), timestamp(to)); err != nil {
		return nil, storeErr("emotion stats", err)
	}
	return stats, nil
}
