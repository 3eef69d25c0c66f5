// ABOUTME: Liveness endpoint reporting status, current time and uptime.
// ABOUTME: Answers 503 with status "degraded" when the database is unreachable.
package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	resp := healthResponse{
		Status:    "ok",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Uptime:    now.Sub(s.started).Seconds(),
	}

	status := http.StatusOK
	if err := s.repo.Ping(r.Context()); err != nil {
		entryFor(r, s.log).WithError(err).Warn("health check: database unreachable")
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
