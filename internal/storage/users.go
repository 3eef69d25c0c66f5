// ABOUTME: User account persistence.
// ABOUTME: Covers local and Google sign-in lookups and profile updates.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/wellness/internal/models"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, password_hash, provider, nickname, major, emotion, sleep_score,
	stress_level, tutorial_completed, routine_recommendation_triggered, created_at, updated_at`

type userRow struct {
	ID                             string          `db:"id"`
	Email                          string          `db:"email"`
	PasswordHash                   sql.NullString  `db:"password_hash"`
	Provider                       string          `db:"provider"`
	Nickname                       sql.NullString  `db:"nickname"`
	Major                          sql.NullString  `db:"major"`
	Emotion                        sql.NullString  `db:"emotion"`
	SleepScore                     sql.NullFloat64 `db:"sleep_score"`
	StressLevel                    sql.NullFloat64 `db:"stress_level"`
	TutorialCompleted              bool            `db:"tutorial_completed"`
	RoutineRecommendationTriggered bool            `db:"routine_recommendation_triggered"`
	CreatedAt                      string          `db:"created_at"`
	UpdatedAt                      string          `db:"updated_at"`
}

func (r *userRow) toModel() *models.User {
	u := &models.User{
		Email:                          r.Email,
		Provider:                       r.Provider,
		PasswordHash:                   nullString(r.PasswordHash),
		Nickname:                       nullString(r.Nickname),
		Major:                          nullString(r.Major),
		Emotion:                        nullString(r.Emotion),
		SleepScore:                     nullFloat(r.SleepScore),
		StressLevel:                    nullFloat(r.StressLevel),
		TutorialCompleted:              r.TutorialCompleted,
		RoutineRecommendationTriggered: r.RoutineRecommendationTriggered,
		CreatedAt:                      parseTimestamp(r.CreatedAt),
		UpdatedAt:                      parseTimestamp(r.UpdatedAt),
	}
	u.ID, _ = uuid.Parse(r.ID)
	return u
}

// CreateUser stores a new user. Emails are unique.
func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		return d.insertUser(ctx, tx, u)
	})
	return storeErr("create user", err)
}

// GetUser retrieves a user by id.
func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	return d.getUser(ctx, d.db, "id", id)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.getUser(ctx, d.db, "email", normalizeEmail(email))
}

// FindOrCreateUser returns the user with this email, creating it when absent.
func (d *DB) FindOrCreateUser(ctx context.Context, email, provider, nickname string) (*models.User, error) {
	var user *models.User
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := d.getUser(ctx, tx, "email", normalizeEmail(email))
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		user = models.NewUser(email, provider).WithNickname(nickname)
		return d.insertUser(ctx, tx, user)
	})
	if err != nil {
		return nil, storeErr("find or create user", err)
	}
	return user, nil
}

// UpdateProfile writes profile fields and returns the updated user.
// Nickname, major and emotion are always written; scores only when set.
func (d *DB) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	sets := []string{"nickname = ?", "major = ?", "emotion = ?"}
	args := []interface{}{p.Nickname, p.Major, p.Emotion}
	if p.SleepScore != nil {
		sets = append(sets, "sleep_score = ?")
		args = append(args, *p.SleepScore)
	}
	if p.StressLevel != nil {
		sets = append(sets, "stress_level = ?")
		args = append(args, *p.StressLevel)
	}
	if p.CompleteTutorial {
		sets = append(sets, "tutorial_completed = ?")
		args = append(args, true)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, timestamp(d.now()), id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := d.db.ExecContext(ctx, d.db.Rebind(query), args...)
	if err != nil {
		return nil, storeErr("update profile", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, storeErr("update profile", err)
	}
	if affected == 0 {
		return nil, storeErr("update profile", ErrNotFound)
	}
	return d.GetUser(ctx, id)
}

func (d *DB) insertUser(ctx context.Context, ext sqlx.ExtContext, u *models.User) error {
	u.Email = normalizeEmail(u.Email)

	var count int
	if err := sqlx.GetContext(ctx, ext, &count, ext.Rebind(`SELECT COUNT(*) FROM users WHERE email = ?`), u.Email); err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicate
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.now()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if u.Provider == "" {
		u.Provider = models.ProviderLocal
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ext.ExecContext(ctx, ext.Rebind(query),
		u.ID.String(),
		u.Email,
		u.PasswordHash,
		u.Provider,
		u.Nickname,
		u.Major,
		u.Emotion,
		u.SleepScore,
		u.StressLevel,
		u.TutorialCompleted,
		u.RoutineRecommendationTriggered,
		timestamp(u.CreatedAt),
		timestamp(u.UpdatedAt),
	)
	return err
}

func (d *DB) getUser(ctx context.Context, q sqlx.QueryerContext, column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`
	var row userRow
	if err := sqlx.GetContext(ctx, q, &row, d.db.Rebind(query), value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storeErr("get user", ErrNotFound)
		}
		return nil, storeErr("get user", err)
	}
	return row.toModel(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
