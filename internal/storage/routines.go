// ABOUTME: Routine and RoutineFeedback persistence.
// ABOUTME: Feedback is scoped to the owner of the routine it belongs to.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harperreed/wellness/internal/models"
	"github.com/jmoiron/sqlx"
)

const routineColumns = `id, user_id, title, description, goal, start_time, end_time, status, created_at`

type routineRow struct {
	ID          int64          `db:"id"`
	UserID      string         `db:"user_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Goal        sql.NullString `db:"goal"`
	StartTime   string         `db:"start_time"`
	EndTime     string         `db:"end_time"`
	Status      string         `db:"status"`
	CreatedAt   string         `db:"created_at"`
}

func (r *routineRow) toModel() *models.Routine {
	return &models.Routine{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: nullString(r.Description),
		Goal:        nullString(r.Goal),
		StartTime:   parseTimestamp(r.StartTime),
		EndTime:     parseTimestamp(r.EndTime),
		Status:      models.RoutineStatus(r.Status),
		CreatedAt:   parseTimestamp(r.CreatedAt),
	}
}

// CreateRoutine stores a routine and sets its ID.
func (d *DB) CreateRoutine(ctx context.Context, r *models.Routine) error {
	return storeErr("create routine", d.insertRoutine(ctx, d.db, r))
}

func (d *DB) insertRoutine(ctx context.Context, ext sqlx.ExtContext, r *models.Routine) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = d.now()
	}
	if r.Status == "" {
		r.Status = models.RoutineActive
	}

	query := ext.Rebind(`
		INSERT INTO routines (user_id, title, description, goal, start_time, end_time, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	return ext.QueryRowxContext(ctx, query,
		r.UserID,
		r.Title,
		r.Description,
		r.Goal,
		timestamp(r.StartTime),
		timestamp(r.EndTime),
		string(r.Status),
		timestamp(r.CreatedAt),
	).Scan(&r.ID)
}

// GetRoutine retrieves a routine owned by userID.
func (d *DB) GetRoutine(ctx context.Context, userID string, id int64) (*models.Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE id = ? AND user_id = ?`
	var row routineRow
	if err := d.db.GetContext(ctx, &row, d.db.Rebind(query), id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storeErr("get routine", ErrNotFound)
		}
		return nil, storeErr("get routine", err)
	}
	return row.toModel(), nil
}

// ListActiveRoutines returns active routines, earliest start first.
func (d *DB) ListActiveRoutines(ctx context.Context, userID string) ([]*models.Routine, error) {
	query := `
		SELECT ` + routineColumns + `
		FROM routines
		WHERE user_id = ? AND status = ?
		ORDER BY start_time ASC, id ASC
	`
	return d.selectRoutines(ctx, "list active routines", query, userID, string(models.RoutineActive))
}

// ListRoutines returns every routine of the user, most recent start first.
func (d *DB) ListRoutines(ctx context.Context, userID string) ([]*models.Routine, error) {
	query := `
		SELECT ` + routineColumns + `
		FROM routines
		WHERE user_id = ?
		ORDER BY start_time DESC, id DESC
	`
	return d.selectRoutines(ctx, "list routines", query, userID)
}

// UpdateRoutineStatus moves a routine owned by userID to a new status.
func (d *DB) UpdateRoutineStatus(ctx context.Context, userID string, id int64, status models.RoutineStatus) error {
	result, err := d.db.ExecContext(ctx,
		d.db.Rebind(`UPDATE routines SET status = ? WHERE id = ? AND user_id = ?`),
		string(status), id, userID)
	if err != nil {
		return storeErr("update routine status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("update routine status", err)
	}
	if affected == 0 {
		return storeErr("update routine status", ErrNotFound)
	}
	return nil
}

// CreateRoutineFeedback stores feedback for a routine owned by userID.
func (d *DB) CreateRoutineFeedback(ctx context.Context, userID string, fb *models.RoutineFeedback) error {
	if _, err := d.GetRoutine(ctx, userID, fb.RoutineID); err != nil {
		return err
	}
	return storeErr("create routine feedback", d.insertRoutineFeedback(ctx, d.db, fb))
}

func (d *DB) insertRoutineFeedback(ctx context.Context, ext sqlx.ExtContext, fb *models.RoutineFeedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = d.now()
	}

	query := ext.Rebind(`
		INSERT INTO routine_feedbacks (routine_id, focus_score, interruption_count, emotion_summary, feedback_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	return ext.QueryRowxContext(ctx, query,
		fb.RoutineID,
		fb.FocusScore,
		fb.InterruptionCount,
		fb.EmotionSummary,
		fb.FeedbackText,
		timestamp(fb.CreatedAt),
	).Scan(&fb.ID)
}

// ListRoutineFeedback returns feedback on the user's routines, newest first,
// optionally limited to one routine.
func (d *DB) ListRoutineFeedback(ctx context.Context, userID string, routineID *int64) ([]*models.RoutineFeedback, error) {
	query := `
		SELECT rf.id, rf.routine_id, r.title AS routine_title, r.description AS routine_description,
			rf.focus_score, rf.interruption_count, rf.emotion_summary, rf.feedback_text, rf.created_at
		FROM routine_feedbacks rf
		JOIN routines r ON rf.routine_id = r.id
		WHERE r.user_id = ?
	`
	args := []interface{}{userID}
	if routineID != nil {
		query += ` AND rf.routine_id = ?`
		args = append(args, *routineID)
	}
	query += ` ORDER BY rf.created_at DESC, rf.id DESC`

	var rows []struct {
		ID                 int64          `db:"id"`
		RoutineID          int64          `db:"routine_id"`
		RoutineTitle       string         `db:"routine_title"`
		RoutineDescription sql.NullString `db:"routine_description"`
		FocusScore         int            `db:"focus_score"`
		InterruptionCount  int            `db:"interruption_count"`
		EmotionSummary     string         `db:"emotion_summary"`
		FeedbackText       string         `db:"feedback_text"`
		CreatedAt          string         `db:"created_at"`
	}
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), args...); err != nil {
		return nil, storeErr("list routine feedback", err)
	}

	feedback := make([]*models.RoutineFeedback, 0, len(rows))
	for _, r := range rows {
		feedback = append(feedback, &models.RoutineFeedback{
			ID:                 r.ID,
			RoutineID:          r.RoutineID,
			RoutineTitle:       r.RoutineTitle,
			RoutineDescription: nullString(r.RoutineDescription),
			FocusScore:         r.FocusScore,
			InterruptionCount:  r.InterruptionCount,
			EmotionSummary:     r.EmotionSummary,
			FeedbackText:       r.FeedbackText,
			CreatedAt:          parseTimestamp(r.CreatedAt),
		})
	}
	return feedback, nil
}

func (d *DB) selectRoutines(ctx context.Context, op, query string, args ...interface{}) ([]*models.Routine, error) {
	var rows []routineRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), args...); err != nil {
		return nil, storeErr(op, err)
	}
	routines := make([]*models.Routine, 0, len(rows))
	for i := range rows {
		routines = append(routines, rows[i].toModel())
	}
	return routines, nil
}
