// ABOUTME: Tests for ingestion parsing and normalization.
// ABOUTME: Covers the three payload shapes and the validation error taxonomy.
package ingest

import (
	"errors"
	"reflect"
	"testing"

	"github.com/harperreed/wellness/internal/models"
)

func TestNormalizeBatch(t *testing.T) {
	req, err := ParseBatch([]byte(`{"dataType":"heart_rate","records":[{"date":"2024-06-01","time":"08:00:00","value":"72"}]}`))
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}

	facts, err := Normalizer{}.Normalize("U1", req)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}

	f := facts[0]
	if f.UserID != "U1" || f.Kind != models.MetricHeartRate {
		t.Errorf("unexpected owner/kind: %+v", f)
	}
	if f.Value.Kind() != models.ValueOpaque || f.Value.String() != "72" {
		t.Errorf("value = %v %q, want opaque 72", f.Value.Kind(), f.Value.String())
	}
}

func TestNormalizeBatchInvalidRequest(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing dataType", `{"records":[{"date":"2024-06-01","time":"08:00","value":1}]}`, "dataType"},
		{"unknown dataType", `{"dataType":"weight","records":[{"date":"2024-06-01","time":"08:00","value":1}]}`, "dataType"},
		{"missing records", `{"dataType":"step"}`, "records"},
		{"empty records", `{"dataType":"step","records":[]}`, "records"},
		{"records not array", `{"dataType":"step","records":{"date":"2024-06-01"}}`, "records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseBatch([]byte(tt.body))
			if err == nil {
				_, err = Normalizer{}.Normalize("U1", req)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected InvalidRequest, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || len(ve.Fields) != 1 || ve.Fields[0] != tt.field {
				t.Errorf("expected field %s, got %+v", tt.field, ve)
			}
		})
	}
}

func TestNormalizeBatchAllowsUnknownKindsWhenLenient(t *testing.T) {
	req := &Batch{
		DataType: "spo2",
		Records:  []Record{{Date: strPtr("2024-06-01"), Time: strPtr("08:00:00"), Value: models.Numeric(97)}},
	}
	facts, err := Normalizer{AllowUnknownKinds: true}.Normalize("U1", req)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if facts[0].Kind != "spo2" {
		t.Errorf("Kind = %s, want spo2", facts[0].Kind)
	}
}

func TestMissingFieldNamesEveryAbsentField(t *testing.T) {
	req, err := ParseBatch([]byte(`{"dataType":"step","records":[
		{"date":"2024-06-01","time":"08:00","value":100},
		{"date":"2024-06-01"}
	]}`))
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}

	facts, err := Normalizer{}.Normalize("U1", req)
	if facts != nil {
		t.Errorf("expected no facts on failure, got %d", len(facts))
	}
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected MissingField, got %v", err)
	}

	var ve *ValidationError
	errors.As(err, &ve)
	if !reflect.DeepEqual(ve.Fields, []string{"time", "value"}) {
		t.Errorf("Fields = %v, want [time value]", ve.Fields)
	}
	if ve.Index != 1 {
		t.Errorf("Index = %d, want 1", ve.Index)
	}
}

func TestEmptyValueIsMissing(t *testing.T) {
	for _, value := range []string{`""`, `null`} {
		body := `{"dataType":"step","records":[{"date":"2024-06-01","time":"08:00","value":` + value + `}]}`
		req, err := ParseBatch([]byte(body))
		if err != nil {
			t.Fatalf("ParseBatch failed: %v", err)
		}
		if _, err := (Normalizer{}).Normalize("U1", req); !errors.Is(err, ErrMissingField) {
			t.Errorf("value %s: expected MissingField, got %v", value, err)
		}
	}
}

func TestZeroIsAValue(t *testing.T) {
	req, _ := ParseBatch([]byte(`{"dataType":"step","records":[{"date":"2024-06-01","time":"08:00","value":0}]}`))
	facts, err := Normalizer{}.Normalize("U1", req)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if f, ok := facts[0].Value.Float(); !ok || f != 0 {
		t.Errorf("value = %v, want numeric 0", facts[0].Value)
	}
}

func TestNormalizeArrays(t *testing.T) {
	req, err := ParseMetricArrays([]byte(`{
		"heartRateData": [{"date":"2024-06-01","time":"08:00","value":70}],
		"stepData": [
			{"date":"2024-06-01","time":"08:00","value":100},
			{"date":"2024-06-01","time":"09:00","value":250}
		],
		"unrelated": 5
	}`))
	if err != nil {
		t.Fatalf("ParseMetricArrays failed: %v", err)
	}

	facts, err := Normalizer{}.Normalize("U1", req)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	want := []struct {
		kind models.MetricKind
		time string
	}{
		{models.MetricStep, "08:00:00"},
		{models.MetricStep, "09:00:00"},
		{models.MetricHeartRate, "08:00:00"},
	}
	if len(facts) != len(want) {
		t.Fatalf("expected %d facts, got %d", len(want), len(facts))
	}
	for i, w := range want {
		if facts[i].Kind != w.kind || facts[i].Time != w.time {
			t.Errorf("fact %d = %s %s, want %s %s", i, facts[i].Kind, facts[i].Time, w.kind, w.time)
		}
	}
}

func TestNormalizeArraysNoArrays(t *testing.T) {
	req, err := ParseMetricArrays([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParseMetricArrays failed: %v", err)
	}
	facts, err := Normalizer{}.Normalize("U1", req)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected 0 facts, got %d", len(facts))
	}
}

func TestParseMetricArraysRejectsNonArray(t *testing.T) {
	_, err := ParseMetricArrays([]byte(`{"stepData": {"date":"2024-06-01"}}`))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
}

func TestNormalizeWideRowInvalidNumeric(t *testing.T) {
	req, err := ParseWideRows([]byte(`{"date":"2024-06-01","time":"09:00:00","step_count":"abc"}`))
	if err != nil {
		t.Fatalf("ParseWideRows failed: %v", err)
	}

	facts, err := Normalizer{}.Normalize("U1", req)
	if facts != nil {
		t.Errorf("expected no facts, got %d", len(facts))
	}
	if !errors.Is(err, ErrInvalidNumeric) {
		t.Fatalf("expected InvalidNumeric, got %v", err)
	}
	var ve *ValidationError
	errors.As(err, &ve)
	if ve.Fields[0] != "step_count" {
		t.Errorf("field = %s, want step_count", ve.Fields[0])
	}
}

func TestNormalizeWideRows(t *testing.T) {
	req, err := ParseWideRows([]byte(`{"biometricsData":[{
		"date":"2024-06-01","time":"07:30",
		"step_count":"1200","calories_burned":85.5,
		"total_sleep_minutes":420,"deep_sleep_minutes":90,
		"avg_heart_rate":61,"heart_rate":64,"max_heart_rate":110
	}]}`))
	if err != nil {
		t.Fatalf("ParseWideRows failed: %v", err)
	}

	facts, err := Normalizer{}.Normalize("U1", req)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	got := map[models.MetricKind]float64{}
	for _, f := range facts {
		v, ok := f.Value.Float()
		if !ok {
			t.Errorf("%s value is not numeric", f.Kind)
		}
		if f.Time != "07:30:00" {
			t.Errorf("%s time = %s, want 07:30:00", f.Kind, f.Time)
		}
		got[f.Kind] = v
	}

	want := map[models.MetricKind]float64{
		models.MetricStep:      1200,
		models.MetricCalories:  85.5,
		models.MetricDeepSleep: 90,
		models.MetricHeartRate: 61,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("facts = %v, want %v", got, want)
	}
}

func TestNormalizeWideRowRequiresDateAndTime(t *testing.T) {
	req, _ := ParseWideRows([]byte(`{"step_count":10}`))
	_, err := Normalizer{}.Normalize("U1", req)
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected MissingField, got %v", err)
	}
	var ve *ValidationError
	errors.As(err, &ve)
	if !reflect.DeepEqual(ve.Fields, []string{"date", "time"}) {
		t.Errorf("Fields = %v, want [date time]", ve.Fields)
	}
}

func TestMalformedDateAndTime(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad date", `{"dataType":"step","records":[{"date":"06/01/2024","time":"08:00","value":1}]}`, "date"},
		{"impossible date", `{"dataType":"step","records":[{"date":"2024-02-30","time":"08:00","value":1}]}`, "date"},
		{"bad time", `{"dataType":"step","records":[{"date":"2024-06-01","time":"8am","value":1}]}`, "time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseBatch([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParseBatch failed: %v", err)
			}
			_, err = Normalizer{}.Normalize("U1", req)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Kind != KindInvalidRequest || ve.Fields[0] != tt.field {
				t.Errorf("expected InvalidRequest on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestParseDispatch(t *testing.T) {
	if _, err := Parse("csv", []byte(`{}`)); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected InvalidRequest for unknown shape, got %v", err)
	}
	req, err := Parse(ShapeArrays, []byte(`{"stepData":[]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if req.Shape() != ShapeArrays {
		t.Errorf("Shape = %s, want arrays", req.Shape())
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := missingField(models.MetricStep, 2, "date", "value")
	d := err.Details()
	if d["field"] != "date, value" {
		t.Errorf("field = %v", d["field"])
	}
	if d["index"] != 2 || d["metric"] != "step" {
		t.Errorf("unexpected details: %v", d)
	}
	if err.Summary() != "Missing required fields" {
		t.Errorf("Summary = %q", err.Summary())
	}
}

func strPtr(s string) *string { return &s }
