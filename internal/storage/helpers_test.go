// ABOUTME: Shared helpers for storage tests.
// ABOUTME: Opens a migrated SQLite database in a temp dir with a fixed clock and seeded users.
package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/models"
)

// testUsers are seeded by setupTestDB so facts and routines have an owner.
var testUsers = []string{"U1", "U2", "U3"}

func setupTestDB(t *testing.T) (*DB, *clock.Stub) {
	t.Helper()

	clk := clock.Fixed()
	dbPath := filepath.Join(t.TempDir(), "wellness.db")
	db, err := Open(dbPath, WithClock(clk), WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seedUsers(t, db, testUsers...)
	return db, clk
}

func seedUsers(t *testing.T, db *DB, ids ...string) {
	t.Helper()
	now := timestamp(clock.Fixed().Now())
	for _, id := range ids {
		_, err := db.db.Exec(db.db.Rebind(`
			INSERT INTO users (id, email, provider, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`), id, id+"@example.com", models.ProviderLocal, now, now)
		if err != nil {
			t.Fatalf("Failed to seed user %s: %v", id, err)
		}
	}
}

func fact(userID string, kind models.MetricKind, date, clock string, v models.Value) models.Fact {
	return models.NewFact(userID, kind, date, clock, v)
}
