// ABOUTME: Tests for the biometrics service against a real SQLite store.
// ABOUTME: Covers the ingestion round trips, window bounds and failure paths.
package biometrics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/logging"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/storage"
)

// testUser owns every fact written by these tests.
const testUser = "7d0f4a6e-2c1b-4f53-9a8e-3b6c5d2e1f00"

func setupService(t *testing.T) (*Service, *storage.DB) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "wellness.db"),
		storage.WithClock(clock.Fixed()), storage.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u := models.NewUser("tester@example.com", models.ProviderLocal)
	u.ID = uuid.MustParse(testUser)
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	return New(db, ingest.Normalizer{}, logging.Discard()), db
}

func mustParse(t *testing.T, shape ingest.Shape, body string) ingest.Request {
	t.Helper()
	req, err := ingest.Parse(shape, []byte(body))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return req
}

func TestIngestBatchThenQuery(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	req := mustParse(t, ingest.ShapeBatch, `{"dataType":"heart_rate","records":[{"date":"2024-06-01","time":"08:00:00","value":"72"}]}`)
	n, err := svc.Ingest(ctx, testUser, req)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("insertedCount = %d, want 1", n)
	}

	facts, err := svc.Query(ctx, testUser, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	f := facts[0]
	if f.Kind != models.MetricHeartRate || f.Date != "2024-06-01" || f.Time != "08:00:00" || f.Value.String() != "72" {
		t.Errorf("unexpected fact: %+v", f)
	}
}

func TestIngestMissingFieldWritesNothing(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	req := mustParse(t, ingest.ShapeArrays, `{"stepData":[
		{"date":"2024-06-01","time":"08:00:00","value":100},
		{"date":"2024-06-01","value":200}
	]}`)
	_, err := svc.Ingest(ctx, testUser, req)
	if !errors.Is(err, ingest.ErrMissingField) {
		t.Fatalf("expected MissingField, got %v", err)
	}

	facts, err := db.ListFacts(ctx, testUser)
	if err != nil {
		t.Fatalf("ListFacts failed: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected no facts after rejected payload, got %d", len(facts))
	}
}

func TestIngestWideRowInvalidNumeric(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	req := mustParse(t, ingest.ShapeWide, `{"biometricsData":[{"date":"2024-06-01","time":"07:30","step_count":"abc"}]}`)
	_, err := svc.Ingest(ctx, testUser, req)

	var verr *ingest.ValidationError
	if !errors.As(err, &verr) || verr.Kind != ingest.KindInvalidNumeric {
		t.Fatalf("expected InvalidNumeric, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0] != "step_count" {
		t.Errorf("Fields = %v, want [step_count]", verr.Fields)
	}

	facts, _ := db.ListFacts(ctx, testUser)
	if len(facts) != 0 {
		t.Errorf("expected no facts, got %d", len(facts))
	}
}

func TestIngestWideRows(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	req := mustParse(t, ingest.ShapeWide, `{"date":"2024-06-01","time":"07:30","step_count":1200,"avg_heart_rate":61}`)
	n, err := svc.Ingest(ctx, testUser, req)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n != 2 {
		t.Errorf("insertedCount = %d, want 2", n)
	}

	facts, err := svc.Query(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	for _, f := range facts {
		if f.Time != "07:30:00" {
			t.Errorf("time not normalized: %s", f.Time)
		}
	}
}

func TestIngestNoArraysIsEmptySuccess(t *testing.T) {
	svc, _ := setupService(t)

	n, err := svc.Ingest(context.Background(), testUser, mustParse(t, ingest.ShapeArrays, `{}`))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n != 0 {
		t.Errorf("insertedCount = %d, want 0", n)
	}
}

func TestIngestRequiresUser(t *testing.T) {
	svc, _ := setupService(t)

	req := mustParse(t, ingest.ShapeBatch, `{"dataType":"step","records":[{"date":"2024-06-01","time":"08:00:00","value":1}]}`)
	if _, err := svc.Ingest(context.Background(), " ", req); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Query(context.Background(), "", 1); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

type countingStore struct {
	storage.FactStore
	queries int
}

func (c *countingStore) QueryWindow(ctx context.Context, userID string, windowDays int) ([]*models.StoredFact, error) {
	c.queries++
	return nil, nil
}

func TestQueryWindowBoundsCheckedBeforeStore(t *testing.T) {
	store := &countingStore{}
	svc := New(store, ingest.Normalizer{}, logging.Discard())

	for _, days := range []int{-1, 31, 365} {
		_, err := svc.Query(context.Background(), testUser, days)
		if !errors.Is(err, ingest.ErrInvalidRequest) {
			t.Errorf("days=%d: expected InvalidRequest, got %v", days, err)
		}
	}
	if store.queries != 0 {
		t.Errorf("store touched %d times for invalid windows", store.queries)
	}

	for _, days := range []int{0, 1, 30} {
		if _, err := svc.Query(context.Background(), testUser, days); err != nil {
			t.Errorf("days=%d: unexpected error %v", days, err)
		}
	}
	if store.queries != 3 {
		t.Errorf("expected 3 store queries, got %d", store.queries)
	}
}

type failingStore struct {
	storage.FactStore
}

func (failingStore) AppendFacts(ctx context.Context, facts []models.Fact) (int64, error) {
	return 0, &storage.StoreError{Op: "append facts", Err: errors.New("disk full")}
}

func TestIngestSurfacesStoreError(t *testing.T) {
	svc := New(failingStore{}, ingest.Normalizer{}, logging.Discard())

	req := mustParse(t, ingest.ShapeArrays, `{"stepData":[{"date":"2024-06-01","time":"08:00:00","value":1}]}`)
	_, err := svc.Ingest(context.Background(), testUser, req)

	var serr *storage.StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}

func TestParseWindowDays(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"7", 7},
		{" 30 ", 30},
		{"0", 0},
		{"seven", 0},
		{"1.5", 1},
		{"7days", 7},
		{"-1", -1},
		{"-", 0},
	}
	for _, tt := range tests {
		if got := ParseWindowDays(tt.raw); got != tt.want {
			t.Errorf("ParseWindowDays(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}

	// Overflow stays out of range so Query rejects it.
	if got := ParseWindowDays("99999999999999999999"); got <= MaxWindowDays {
		t.Errorf("ParseWindowDays(overflow) = %d, want > %d", got, MaxWindowDays)
	}
}

func TestIngestUnknownUser(t *testing.T) {
	svc, _ := setupService(t)

	req := mustParse(t, ingest.ShapeBatch, `{"dataType":"step","records":[{"date":"2024-06-01","time":"08:00","value":10}]}`)
	_, err := svc.Ingest(context.Background(), "00000000-0000-0000-0000-000000000000", req)
	if !errors.Is(err, storage.ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
}
