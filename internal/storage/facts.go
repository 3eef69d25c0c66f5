// ABOUTME: Biometric fact persistence and windowed retrieval.
// ABOUTME: Appends are insert-only; queries return newest first.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/wellness/internal/models"
	"github.com/jmoiron/sqlx"
)

// batchChunkSize bounds rows per multi-row INSERT to stay under parameter limits.
const batchChunkSize = 500

const factColumns = `id, user_id, metric_kind, date, time, value, value_kind, created_at`

type factRow struct {
	ID        int64  `db:"id"`
	UserID    string `db:"user_id"`
	Kind      string `db:"metric_kind"`
	Date      string `db:"date"`
	Time      string `db:"time"`
	Value     string `db:"value"`
	ValueKind string `db:"value_kind"`
	CreatedAt string `db:"created_at"`
}

func (r *factRow) toModel() (*models.StoredFact, error) {
	v, err := models.ParseStoredValue(r.ValueKind, r.Value)
	if err != nil {
		return nil, fmt.Errorf("fact %d: %w", r.ID, err)
	}
	return &models.StoredFact{
		ID:        r.ID,
		Fact:      models.NewFact(r.UserID, models.MetricKind(r.Kind), r.Date, r.Time, v),
		CreatedAt: parseTimestamp(r.CreatedAt),
	}, nil
}

// AppendFact stores one fact and returns it with its assigned id and created_at.
// Duplicates are accepted.
func (d *DB) AppendFact(ctx context.Context, f models.Fact) (*models.StoredFact, error) {
	sf, err := d.appendFact(ctx, d.db, f)
	if err != nil {
		return nil, storeErr("append fact", err)
	}
	return sf, nil
}

// AppendFacts stores facts one by one in input order inside a single transaction.
// Either every fact is committed or none is.
func (d *DB) AppendFacts(ctx context.Context, facts []models.Fact) (int64, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	var count int64
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		for i, f := range facts {
			if _, err := d.appendFact(ctx, tx, f); err != nil {
				return fmt.Errorf("fact %d: %w", i, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, storeErr("append facts", err)
	}
	return count, nil
}

// AppendBatch stores readings sharing one kind with multi-row inserts in one
// transaction and returns the number of rows written.
func (d *DB) AppendBatch(ctx context.Context, userID string, kind models.MetricKind, readings []models.Reading) (int64, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	createdAt := timestamp(d.now())
	var inserted int64
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(readings); start += batchChunkSize {
			end := start + batchChunkSize
			if end > len(readings) {
				end = len(readings)
			}
			chunk := readings[start:end]

			placeholders := make([]string, len(chunk))
			args := make([]interface{}, 0, len(chunk)*7)
			for i, r := range chunk {
				placeholders[i] = "(?, ?, ?, ?, ?, ?, ?)"
				args = append(args, userID, string(kind), r.Date, r.Time, r.Value.String(), string(r.Value.Kind()), createdAt)
			}

			query := `INSERT INTO biometric_facts (user_id, metric_kind, date, time, value, value_kind, created_at) VALUES ` +
				strings.Join(placeholders, ", ")
			result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
			if err != nil {
				return err
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			inserted += affected
		}
		return nil
	})
	if err != nil {
		return 0, storeErr("append batch", err)
	}
	return inserted, nil
}

// QueryWindow returns the user's facts dated within [today-windowDays, today],
// ordered by date, time and id, all descending. A window below one day is
// treated as one day.
func (d *DB) QueryWindow(ctx context.Context, userID string, windowDays int) ([]*models.StoredFact, error) {
	if windowDays < 1 {
		windowDays = 1
	}
	today := d.clock.Now().In(d.loc)
	to := today.Format(models.DateLayout)
	from := today.AddDate(0, 0, -windowDays).Format(models.DateLayout)

	query := `
		SELECT ` + factColumns + `
		FROM biometric_facts
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC, time DESC, id DESC
	`
	var rows []factRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), userID, from, to); err != nil {
		return nil, storeErr("query facts", err)
	}
	return toStoredFacts(rows)
}

// ListFacts returns every fact of the user, newest first.
func (d *DB) ListFacts(ctx context.Context, userID string) ([]*models.StoredFact, error) {
	query := `
		SELECT ` + factColumns + `
		FROM biometric_facts
		WHERE user_id = ?
		ORDER BY date DESC, time DESC, id DESC
	`
	var rows []factRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), userID); err != nil {
		return nil, storeErr("list facts", err)
	}
	return toStoredFacts(rows)
}

func (d *DB) appendFact(ctx context.Context, ext sqlx.ExtContext, f models.Fact) (*models.StoredFact, error) {
	createdAt := d.now()
	query := ext.Rebind(`
		INSERT INTO biometric_facts (user_id, metric_kind, date, time, value, value_kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := ext.QueryRowxContext(ctx, query,
		f.UserID,
		string(f.Kind),
		f.Date,
		f.Time,
		f.Value.String(),
		string(f.Value.Kind()),
		timestamp(createdAt),
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &models.StoredFact{ID: id, Fact: f, CreatedAt: createdAt}, nil
}

func toStoredFacts(rows []factRow) ([]*models.StoredFact, error) {
	facts := make([]*models.StoredFact, 0, len(rows))
	for i := range rows {
		sf, err := rows[i].toModel()
		if err != nil {
			return nil, storeErr("scan fact", err)
		}
		facts = append(facts, sf)
	}
	return facts, nil
}
