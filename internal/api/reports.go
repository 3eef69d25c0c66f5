// ABOUTME: Report and routine feedback handlers.
// ABOUTME: Feedback may only be attached to a routine the caller owns.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/storage"
)

type createReportRequest struct {
	Duration           *int    `json:"duration"`
	Feedback           *string `json:"feedback"`
	Reason             *string `json:"reason"`
	RecommendedRoutine *string `json:"recommendedRoutine"`
	StartTime          *string `json:"startTime"`
	Success            *string `json:"success"`
}

type createFeedbackRequest struct {
	RoutineID         *int64  `json:"routineId"`
	FocusScore        *int    `json:"focusScore"`
	InterruptionCount *int    `json:"interruptionCount"`
	EmotionSummary    *string `json:"emotionSummary"`
	FeedbackText      *string `json:"feedbackText"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Success != nil && !models.IsValidReportSuccess(*req.Success) {
		badRequest(w, "Invalid success value", "success", "Success must be either P or F")
		return
	}
	if req.Duration != nil && *req.Duration < 0 {
		badRequest(w, "Invalid duration", "duration", "Duration cannot be negative")
		return
	}

	report := models.NewReport(auth.UserID(r.Context()))
	report.Duration = req.Duration
	report.Feedback = req.Feedback
	report.Reason = req.Reason
	report.RecommendedRoutine = req.RecommendedRoutine
	report.StartTime = req.StartTime
	report.Success = req.Success

	if err := s.repo.CreateReport(r.Context(), report); err != nil {
		writeInternalError(w, r, s.log, "Error creating report", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Report created successfully", map[string]int64{"reportId": report.ID})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.repo.ListReports(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeInternalError(w, r, s.log, "Error retrieving reports", err)
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	writeSuccess(w, http.StatusOK, "Reports retrieved successfully", map[string]interface{}{"reports": reports})
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req createFeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoutineID == nil || req.FocusScore == nil || req.InterruptionCount == nil ||
		req.EmotionSummary == nil || strings.TrimSpace(*req.EmotionSummary) == "" ||
		req.FeedbackText == nil || strings.TrimSpace(*req.FeedbackText) == "" {
		badRequest(w, "Missing required fields",
			"routineId, focusScore, interruptionCount, emotionSummary, feedbackText",
			"All fields are required")
		return
	}
	if *req.FocusScore < 0 || *req.FocusScore > 100 {
		badRequest(w, "Invalid focus score", "focusScore", "Focus score must be between 0 and 100")
		return
	}
	if *req.InterruptionCount < 0 {
		badRequest(w, "Invalid interruption count", "interruptionCount", "Interruption count cannot be negative")
		return
	}

	fb := models.NewRoutineFeedback(*req.RoutineID, *req.FocusScore, *req.InterruptionCount,
		*req.EmotionSummary, *req.FeedbackText)
	if err := s.repo.CreateRoutineFeedback(r.Context(), auth.UserID(r.Context()), fb); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Routine not found",
				fieldError{Field: "routineId", Message: "Routine not found"})
			return
		}
		writeInternalError(w, r, s.log, "Error creating routine feedback", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Routine feedback created successfully", map[string]int64{"feedbackId": fb.ID})
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	var routineID *int64
	if raw := r.URL.Query().Get("routineId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(w, "Invalid routine ID", "routineId", "Routine ID must be a valid number")
			return
		}
		routineID = &id
	}

	feedbacks, err := s.repo.ListRoutineFeedback(r.Context(), auth.UserID(r.Context()), routineID)
	if err != nil {
		writeInternalError(w, r, s.log, "Error retrieving routine feedbacks", err)
		return
	}
	if feedbacks == nil {
		feedbacks = []*models.RoutineFeedback{}
	}
	writeSuccess(w, http.StatusOK, "Routine feedbacks retrieved successfully", map[string]interface{}{"feedbacks": feedbacks})
}
