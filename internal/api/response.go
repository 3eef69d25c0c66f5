// ABOUTME: JSON response envelopes and request decoding helpers.
// ABOUTME: Every reply is {success, message, data} or {success:false, message, errors}.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps request bodies; large batches fit comfortably.
const maxBodyBytes = 8 << 20

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// fieldError is the errors payload naming the offending field.
type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, errs interface{}) {
	writeJSON(w, status, envelope{Success: false, Message: message, Errors: errs})
}

func badRequest(w http.ResponseWriter, message, field, detail string) {
	writeError(w, http.StatusBadRequest, message, fieldError{Field: field, Message: detail})
}

// writeValidationError renders ingestion validation failures as 400s.
// It reports false when err is not a validation error.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *ingest.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeError(w, http.StatusBadRequest, verr.Summary(), verr.Details())
	return true
}

// writeInternalError logs the cause and replies with a generic 500. A token
// whose user no longer exists is answered with 401 instead.
func writeInternalError(w http.ResponseWriter, r *http.Request, log *logrus.Logger, message string, err error) {
	if errors.Is(err, storage.ErrUnknownUser) {
		entryFor(r, log).WithError(err).Warn("token names an unknown user")
		writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	entryFor(r, log).WithError(err).Error(message)
	writeError(w, http.StatusInternalServerError, message, nil)
}

// readBody reads a size-limited request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// decodeJSON decodes the body into v, replying 400 and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := readBody(w, r)
	if err != nil {
		badRequest(w, "Invalid request data", "", err.Error())
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		badRequest(w, "Invalid request data", "", "body must be valid JSON")
		return false
	}
	return true
}
