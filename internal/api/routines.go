// ABOUTME: Routine handlers for confirming, listing and updating scheduled sessions.
// ABOUTME: Routines are owned by the caller; other users' routines read as not found.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/sirupsen/logrus"
)

type confirmRoutineRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Goal        string `json:"goal"`
	StartTime   string `json:"startTime"`
}

type confirmRoutineResponse struct {
	RoutineID int64                `json:"routineId"`
	Status    models.RoutineStatus `json:"status"`
	EndTime   time.Time            `json:"endTime"`
}

type routinesResponse struct {
	Routines []*models.Routine `json:"routines"`
}

type routineStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleConfirmRoutine(w http.ResponseWriter, r *http.Request) {
	var req confirmRoutineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.StartTime) == "" {
		badRequest(w, "Missing required fields", "title, startTime", "Title and start time are required")
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		badRequest(w, "Invalid start time", "startTime", "startTime must be an RFC 3339 timestamp")
		return
	}

	routine := models.NewRoutine(auth.UserID(r.Context()), title, start.UTC()).
		WithDescription(strings.TrimSpace(req.Description)).
		WithGoal(strings.TrimSpace(req.Goal))
	if err := s.repo.CreateRoutine(r.Context(), routine); err != nil {
		writeInternalError(w, r, s.log, "Could not confirm routine", err)
		return
	}

	entryFor(r, s.log).WithField("routine_id", routine.ID).Info("routine confirmed")
	writeSuccess(w, http.StatusCreated, "Routine confirmed", confirmRoutineResponse{
		RoutineID: routine.ID,
		Status:    routine.Status,
		EndTime:   routine.EndTime,
	})
}

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.repo.ListActiveRoutines(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeInternalError(w, r, s.log, "Could not list routines", err)
		return
	}
	if routines == nil {
		routines = []*models.Routine{}
	}
	writeSuccess(w, http.StatusOK, "Active routines retrieved", routinesResponse{Routines: routines})
}

func (s *Server) handleUpdateRoutineStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		badRequest(w, "Invalid routine ID", "id", "Routine ID must be a valid number")
		return
	}

	var req routineStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !models.IsValidRoutineStatus(req.Status) {
		badRequest(w, "Invalid status", "status", "Status must be one of active, completed, missed")
		return
	}

	status := models.RoutineStatus(req.Status)
	if err := s.repo.UpdateRoutineStatus(r.Context(), auth.UserID(r.Context()), id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Routine not found",
				fieldError{Field: "id", Message: "Routine not found"})
			return
		}
		writeInternalError(w, r, s.log, "Could not update routine", err)
		return
	}

	entryFor(r, s.log).WithFields(logrus.Fields{
		"routine_id": id,
		"status":     status,
	}).Info("routine status updated")
	writeSuccess(w, http.StatusOK, "Routine status updated", map[string]interface{}{
		"routineId": id,
		"status":    status,
	})
}
