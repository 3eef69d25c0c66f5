// ABOUTME: Validation error taxonomy for biometric ingestion.
// ABOUTME: MissingField, InvalidNumeric and InvalidRequest all map to HTTP 400.
package ingest

import (
	"fmt"
	"strings"

	"github.com/harperreed/wellness/internal/models"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindMissingField   ErrorKind = "missing_field"
	KindInvalidNumeric ErrorKind = "invalid_numeric"
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Sentinels for errors.Is matching on the kind alone.
var (
	ErrMissingField   = &ValidationError{Kind: KindMissingField}
	ErrInvalidNumeric = &ValidationError{Kind: KindInvalidNumeric}
	ErrInvalidRequest = &ValidationError{Kind: KindInvalidRequest}
)

// ValidationError reports why a payload was rejected before any write.
type ValidationError struct {
	Kind    ErrorKind
	Fields  []string
	Metric  models.MetricKind
	Index   int // element position, -1 when the error is not tied to one element
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Fields, ", "))
	}
	if e.Metric != "" {
		fmt.Fprintf(&b, " in %s", e.Metric)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, " at index %d", e.Index)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is matches any ValidationError of the same kind.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

// Summary is the short human message used in response envelopes.
func (e *ValidationError) Summary() string {
	switch e.Kind {
	case KindMissingField:
		return "Missing required fields"
	case KindInvalidNumeric:
		return "Invalid numeric value"
	default:
		return "Invalid request data"
	}
}

// Details renders the error for the errors section of a response envelope.
func (e *ValidationError) Details() map[string]interface{} {
	d := map[string]interface{}{
		"kind":    string(e.Kind),
		"message": e.Message,
	}
	if len(e.Fields) > 0 {
		d["field"] = strings.Join(e.Fields, ", ")
	}
	if e.Metric != "" {
		d["metric"] = string(e.Metric)
	}
	if e.Index >= 0 {
		d["index"] = e.Index
	}
	return d
}

func missingField(kind models.MetricKind, index int, fields ...string) *ValidationError {
	return &ValidationError{
		Kind:    KindMissingField,
		Fields:  fields,
		Metric:  kind,
		Index:   index,
		Message: strings.Join(fields, ", ") + " required",
	}
}

func invalidNumeric(field string, index int, raw string) *ValidationError {
	return &ValidationError{
		Kind:    KindInvalidNumeric,
		Fields:  []string{field},
		Index:   index,
		Message: fmt.Sprintf("%q is not a number", raw),
	}
}

// InvalidRequest builds a structural validation error for the named field.
func InvalidRequest(field, format string, args ...interface{}) *ValidationError {
	e := &ValidationError{
		Kind:    KindInvalidRequest,
		Index:   -1,
		Message: fmt.Sprintf(format, args...),
	}
	if field != "" {
		e.Fields = []string{field}
	}
	return e
}
