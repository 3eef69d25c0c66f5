// ABOUTME: Biometric ingestion and window query handlers.
// ABOUTME: Each ingestion route accepts one payload shape and reports how many facts were stored.
package api

import (
	"errors"
	"net/http"

	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/biometrics"
	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/models"
)

type ingestResponse struct {
	InsertedCount int64 `json:"insertedCount"`
}

type biometricsResponse struct {
	Biometrics []*models.StoredFact `json:"biometrics"`
}

func (s *Server) handleGetBiometrics(w http.ResponseWriter, r *http.Request) {
	days := biometrics.ParseWindowDays(r.URL.Query().Get("days"))
	facts, err := s.biometrics.Query(r.Context(), auth.UserID(r.Context()), days)
	if err != nil {
		s.writeBiometricsError(w, r, "Error retrieving biometrics data", err)
		return
	}
	if facts == nil {
		facts = []*models.StoredFact{}
	}
	writeSuccess(w, http.StatusOK, "Biometrics data retrieved successfully", biometricsResponse{Biometrics: facts})
}

func (s *Server) handleReceiveArrays(w http.ResponseWriter, r *http.Request) {
	s.ingestShape(w, r, ingest.ShapeArrays, "Biometrics data received successfully")
}

func (s *Server) handleReceiveBatch(w http.ResponseWriter, r *http.Request) {
	s.ingestShape(w, r, ingest.ShapeBatch, "Biometrics data batch inserted successfully")
}

func (s *Server) handleReceiveWide(w http.ResponseWriter, r *http.Request) {
	s.ingestShape(w, r, ingest.ShapeWide, "Biometrics rows inserted successfully")
}

func (s *Server) ingestShape(w http.ResponseWriter, r *http.Request, shape ingest.Shape, message string) {
	body, err := readBody(w, r)
	if err != nil {
		badRequest(w, "Invalid request data", "", err.Error())
		return
	}

	req, err := ingest.Parse(shape, body)
	if err != nil {
		if !writeValidationError(w, err) {
			badRequest(w, "Invalid request data", "", err.Error())
		}
		return
	}

	inserted, err := s.biometrics.Ingest(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		s.writeBiometricsError(w, r, "Error processing biometric data", err)
		return
	}
	writeSuccess(w, http.StatusOK, message, ingestResponse{InsertedCount: inserted})
}

func (s *Server) writeBiometricsError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if errors.Is(err, biometrics.ErrUnauthenticated) {
		writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	if writeValidationError(w, err) {
		return
	}
	writeInternalError(w, r, s.log, message, err)
}
