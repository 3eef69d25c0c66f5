// ABOUTME: Emotion log handlers for recording detections and reading them back.
// ABOUTME: Range queries default to the last seven days ending now.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/models"
)

// defaultEmotionRange is the lookback used when from is omitted.
const defaultEmotionRange = 7 * 24 * time.Hour

type createEmotionRequest struct {
	Emotion    string   `json:"emotion"`
	Confidence *float64 `json:"confidence"`
	Timestamp  string   `json:"timestamp"`
}

func (s *Server) handleCreateEmotion(w http.ResponseWriter, r *http.Request) {
	var req createEmotionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	emotion := strings.TrimSpace(req.Emotion)
	if emotion == "" || req.Confidence == nil {
		badRequest(w, "Missing required fields", "emotion, confidence", "Emotion and confidence are required")
		return
	}
	if *req.Confidence < 0 || *req.Confidence > 1 {
		badRequest(w, "Invalid confidence", "confidence", "Confidence must be between 0 and 1")
		return
	}

	at := s.clock.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			badRequest(w, "Invalid timestamp", "timestamp", "timestamp must be an RFC 3339 timestamp")
			return
		}
		at = parsed
	}

	entry := models.NewEmotionLog(auth.UserID(r.Context()), emotion, *req.Confidence, at)
	if err := s.repo.CreateEmotionLog(r.Context(), entry); err != nil {
		writeInternalError(w, r, s.log, "Could not record emotion", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Emotion recorded", entry)
}

func (s *Server) handleListEmotions(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.emotionRange(w, r)
	if !ok {
		return
	}
	logs, err := s.repo.ListEmotionLogs(r.Context(), auth.UserID(r.Context()), from, to)
	if err != nil {
		writeInternalError(w, r, s.log, "Could not list emotions", err)
		return
	}
	if logs == nil {
		logs = []*models.EmotionLog{}
	}
	writeSuccess(w, http.StatusOK, "Emotion logs retrieved", map[string]interface{}{"emotions": logs})
}

func (s *Server) handleEmotionStats(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.emotionRange(w, r)
	if !ok {
		return
	}
	stats, err := s.repo.EmotionStats(r.Context(), auth.UserID(r.Context()), from, to)
	if err != nil {
		writeInternalError(w, r, s.log, "Could not compute emotion statistics", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Emotion statistics retrieved", map[string]interface{}{
		"from":  from,
		"to":    to,
		"stats": stats,
	})
}

// emotionRange reads from/to as RFC 3339 timestamps or YYYY-MM-DD dates.
// A bare to date covers the whole day.
func (s *Server) emotionRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()

	to := s.clock.Now().UTC()
	if raw := q.Get("to"); raw != "" {
		t, dateOnly, err := parseRangeBound(raw)
		if err != nil {
			badRequest(w, "Invalid range", "to", "to must be a date or RFC 3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = t
	}

	from := to.Add(-defaultEmotionRange)
	if raw := q.Get("from"); raw != "" {
		t, _, err := parseRangeBound(raw)
		if err != nil {
			badRequest(w, "Invalid range", "from", "from must be a date or RFC 3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
		from = t
	}

	if from.After(to) {
		badRequest(w, "Invalid range", "from", "from must not be after to")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseRangeBound(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
