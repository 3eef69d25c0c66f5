// ABOUTME: Biometrics service tying ingestion normalization to the fact store.
// ABOUTME: Owns identity checks, window bounds, ingestion logging and counters.
package biometrics

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/metrics"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/sirupsen/logrus"
)

// Window bounds for Query, in days.
const (
	DefaultWindowDays = 1
	MaxWindowDays     = 30
)

// ErrUnauthenticated is returned when a call carries no user id.
var ErrUnauthenticated = errors.New("unauthenticated")

// Service ingests and queries one user's biometric facts.
type Service struct {
	store      storage.FactStore
	normalizer ingest.Normalizer
	log        *logrus.Logger
}

// New creates a Service.
func New(store storage.FactStore, normalizer ingest.Normalizer, log *logrus.Logger) *Service {
	return &Service{store: store, normalizer: normalizer, log: log}
}

// Ingest validates the whole request and then persists every fact it yields.
// Batch requests go through the multi-row insert path. It returns the number
// of facts written.
func (s *Service) Ingest(ctx context.Context, userID string, req ingest.Request) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrUnauthenticated
	}

	facts, err := s.normalizer.Normalize(userID, req)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			metrics.RecordIngestRejection(string(verr.Kind))
		}
		s.log.WithFields(logrus.Fields{
			"user_id": userID,
			"shape":   shapeOf(req),
		}).WithError(err).Debug("rejected biometric payload")
		return 0, err
	}

	var inserted int64
	if batch, ok := req.(*ingest.Batch); ok {
		readings := make([]models.Reading, len(facts))
		for i, f := range facts {
			readings[i] = f.Reading
		}
		inserted, err = s.store.AppendBatch(ctx, userID, models.MetricKind(batch.DataType), readings)
	} else {
		inserted, err = s.store.AppendFacts(ctx, facts)
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": userID,
			"shape":   shapeOf(req),
			"count":   len(facts),
		}).WithError(err).Error("failed to persist biometric facts")
		return 0, err
	}

	perKind := make(map[models.MetricKind]int)
	for _, f := range facts {
		perKind[f.Kind]++
	}
	for kind, n := range perKind {
		metrics.RecordFactsIngested(string(kind), n)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"shape":   shapeOf(req),
		"count":   inserted,
	}).Info("ingested biometric facts")
	return inserted, nil
}

// Query returns the user's facts for the last days days, newest first.
// Zero means the default window.
func (s *Service) Query(ctx context.Context, userID string, days int) ([]*models.StoredFact, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	if days == 0 {
		days = DefaultWindowDays
	}
	if days < 1 || days > MaxWindowDays {
		return nil, ingest.InvalidRequest("days", "days must be between 1 and %d", MaxWindowDays)
	}
	return s.store.QueryWindow(ctx, userID, days)
}

// ParseWindowDays reads a days query parameter from its leading integer.
// Input without one yields zero, which Query treats as the default window;
// out-of-range values are left for Query to reject.
func ParseWindowDays(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	days, err := strconv.Atoi(raw[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return days
}

func shapeOf(req ingest.Request) string {
	if req == nil {
		return ""
	}
	return string(req.Shape())
}
