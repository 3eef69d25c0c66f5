// ABOUTME: Report persistence.
// ABOUTME: Reports are listed newest first per user.
package storage

import (
	"context"
	"database/sql"

	"github.com/harperreed/wellness/internal/models"
	"github.com/jmoiron/sqlx"
)

type reportRow struct {
	ID                 int64          `db:"id"`
	UserID             string         `db:"user_id"`
	Duration           sql.NullInt64  `db:"duration"`
	Feedback           sql.NullString `db:"feedback"`
	Reason             sql.NullString `db:"reason"`
	RecommendedRoutine sql.NullString `db:"recommended_routine"`
	StartTime          sql.NullString `db:"start_time"`
	Success            sql.NullString `db:"success"`
	CreatedAt          string         `db:"created_at"`
}

// CreateReport stores a report and sets its ID.
func (d *DB) CreateReport(ctx context.Context, r *models.Report) error {
	return storeErr("create report", d.insertReport(ctx, d.db, r))
}

func (d *DB) insertReport(ctx context.Context, ext sqlx.ExtContext, r *models.Report) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = d.now()
	}

	query := ext.Rebind(`
		INSERT INTO reports (user_id, duration, feedback, reason, recommended_routine, start_time, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	return ext.QueryRowxContext(ctx, query,
		r.UserID,
		r.Duration,
		r.Feedback,
		r.Reason,
		r.RecommendedRoutine,
		r.StartTime,
		r.Success,
		timestamp(r.CreatedAt),
	).Scan(&r.ID)
}

// ListReports returns the user's reports, newest first.
func (d *DB) ListReports(ctx context.Context, userID string) ([]*models.Report, error) {
	query := `
		SELECT id, user_id, duration, feedback, reason, recommended_routine, start_time, success, created_at
		FROM reports
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	var rows []reportRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), userID); err != nil {
		return nil, storeErr("list reports", err)
	}

	reports := make([]*models.Report, 0, len(rows))
	for _, r := range rows {
		report := &models.Report{
			ID:                 r.ID,
			UserID:             r.UserID,
			Feedback:           nullString(r.Feedback),
			Reason:             nullString(r.Reason),
			RecommendedRoutine: nullString(r.RecommendedRoutine),
			StartTime:          nullString(r.StartTime),
			Success:            nullString(r.Success),
			CreatedAt:          parseTimestamp(r.CreatedAt),
		}
		if r.Duration.Valid {
			n := int(r.Duration.Int64)
			report.Duration = &n
		}
		reports = append(reports, report)
	}
	return reports, nil
}
