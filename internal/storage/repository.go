// ABOUTME: Repository interface for wellness data storage.
// ABOUTME: Defines the contract for facts, users, routines, reports and emotion logs.
package storage

import (
	"context"
	"time"

	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/models"
)

// FactStore is the time-series store for biometric facts.
type FactStore interface {
	AppendFact(ctx context.Context, f models.Fact) (*models.StoredFact, error)
	AppendFacts(ctx context.Context, facts []models.Fact) (int64, error)
	AppendBatch(ctx context.Context, userID string, kind models.MetricKind, readings []models.Reading) (int64, error)
	QueryWindow(ctx context.Context, userID string, windowDays int) ([]*models.StoredFact, error)
	ListFacts(ctx context.Context, userID string) ([]*models.StoredFact, error)
}

// Repository defines the storage interface for wellness data.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	FactStore

	// User operations
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindOrCreateUser(ctx context.Context, email, provider, nickname string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error)

	// Routine operations
	CreateRoutine(ctx context.Context, r *models.Routine) error
	GetRoutine(ctx context.Context, userID string, id int64) (*models.Routine, error)
	ListActiveRoutines(ctx context.Context, userID string) ([]*models.Routine, error)
	ListRoutines(ctx context.Context, userID string) ([]*models.Routine, error)
	UpdateRoutineStatus(ctx context.Context, userID string, id int64, status models.RoutineStatus) error

	// Routine feedback operations
	CreateRoutineFeedback(ctx context.Context, userID string, fb *models.RoutineFeedback) error
	ListRoutineFeedback(ctx context.Context, userID string, routineID *int64) ([]*models.RoutineFeedback, error)

	// Report operations
	CreateReport(ctx context.Context, r *models.Report) error
	ListReports(ctx context.Context, userID string) ([]*models.Report, error)

	// Emotion log operations
	CreateEmotionLog(ctx context.Context, e *models.EmotionLog) error
	ListEmotionLogs(ctx context.Context, userID string, from, to time.Time) ([]*models.EmotionLog, error)
	EmotionStats(ctx context.Context, userID string, from, to time.Time) ([]models.EmotionStat, error)

	// Export/Import
	GetAllData(ctx context.Context, userID string) (*ExportData, error)
	ImportData(ctx context.Context, userID string, data *ExportData, norm ingest.Normalizer) (*ImportSummary, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

var _ Repository = (*DB)(nil)
