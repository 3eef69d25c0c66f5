// ABOUTME: Pure normalization of ingestion requests into biometric facts.
// ABOUTME: Every element is validated before any fact is returned.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/wellness/internal/models"
)

// Normalizer turns ingestion requests into facts. It never touches storage.
type Normalizer struct {
	// AllowUnknownKinds accepts batch dataType values outside the closed set.
	AllowUnknownKinds bool
}

// Normalize dispatches on the request variant.
func (n Normalizer) Normalize(userID string, req Request) ([]models.Fact, error) {
	switch r := req.(type) {
	case *WideRows:
		return NormalizeWideRows(userID, r)
	case *MetricArrays:
		return NormalizeArrays(userID, r)
	case *Batch:
		return n.NormalizeBatch(userID, r)
	case nil:
		return nil, InvalidRequest("", "empty request")
	default:
		return nil, InvalidRequest("", "unsupported request type %T", req)
	}
}

// wideField binds a wide-row column to the kind it produces.
// An empty kind means the column is validated but has no fact of its own.
type wideField struct {
	name  string
	kind  models.MetricKind
	value func(*WideRow) *Number
}

var wideFields = []wideField{
	{"step_count", models.MetricStep, func(r *WideRow) *Number { return r.StepCount }},
	{"calories_burned", models.MetricCalories, func(r *WideRow) *Number { return r.CaloriesBurned }},
	{"distance_walked", models.MetricDistance, func(r *WideRow) *Number { return r.DistanceWalked }},
	{"total_sleep_minutes", "", func(r *WideRow) *Number { return r.TotalSleepMinutes }},
	{"deep_sleep_minutes", models.MetricDeepSleep, func(r *WideRow) *Number { return r.DeepSleepMinutes }},
	{"light_sleep_minutes", models.MetricLightSleep, func(r *WideRow) *Number { return r.LightSleepMinutes }},
	{"rem_sleep_minutes", models.MetricRemSleep, func(r *WideRow) *Number { return r.RemSleepMinutes }},
	{"avg_heart_rate", models.MetricHeartRate, func(r *WideRow) *Number { return r.AvgHeartRate }},
	{"heart_rate", models.MetricHeartRate, func(r *WideRow) *Number { return r.HeartRate }},
	{"max_heart_rate", "", func(r *WideRow) *Number { return r.MaxHeartRate }},
	{"min_heart_rate", "", func(r *WideRow) *Number { return r.MinHeartRate }},
}

// NormalizeWideRows emits one numeric fact per present metric column.
// avg_heart_rate wins over heart_rate when a row carries both.
func NormalizeWideRows(userID string, req *WideRows) ([]models.Fact, error) {
	if req == nil || len(req.Rows) == 0 {
		return nil, InvalidRequest("biometricsData", "at least one row is required")
	}

	var facts []models.Fact
	for i := range req.Rows {
		row := &req.Rows[i]

		var missing []string
		if isBlank(row.Date) {
			missing = append(missing, "date")
		}
		if isBlank(row.Time) {
			missing = append(missing, "time")
		}
		if len(missing) > 0 {
			return nil, missingField("", i, missing...)
		}

		date, err := normalizeDate(*row.Date, "", i)
		if err != nil {
			return nil, err
		}
		clock, err := normalizeTime(*row.Time, "", i)
		if err != nil {
			return nil, err
		}

		heartRateSeen := false
		for _, wf := range wideFields {
			num := wf.value(row)
			if num == nil || strings.TrimSpace(num.raw) == "" {
				continue
			}
			f, err := parseNumber(num.raw)
			if err != nil {
				return nil, invalidNumeric(wf.name, i, num.raw)
			}
			if wf.kind == "" {
				continue
			}
			if wf.kind == models.MetricHeartRate {
				if heartRateSeen {
					continue
				}
				heartRateSeen = true
			}
			facts = append(facts, models.NewFact(userID, wf.kind, date, clock, models.Numeric(f)))
		}
	}
	return facts, nil
}

// NormalizeArrays emits facts array by array in fixed kind order.
func NormalizeArrays(userID string, req *MetricArrays) ([]models.Fact, error) {
	if req == nil {
		return nil, InvalidRequest("", "empty request")
	}

	var facts []models.Fact
	for _, s := range req.Series {
		for i, rec := range s.Records {
			f, err := normalizeRecord(userID, s.Kind, i, rec)
			if err != nil {
				return nil, err
			}
			facts = append(facts, f)
		}
	}
	return facts, nil
}

// NormalizeBatch emits one fact per record under the shared dataType.
func (n Normalizer) NormalizeBatch(userID string, req *Batch) ([]models.Fact, error) {
	if req == nil {
		return nil, InvalidRequest("", "empty request")
	}
	if strings.TrimSpace(req.DataType) == "" {
		return nil, InvalidRequest("dataType", "dataType is required")
	}
	if !n.AllowUnknownKinds && !models.IsValidMetricKind(req.DataType) {
		return nil, InvalidRequest("dataType", "unknown dataType %q", req.DataType)
	}
	if len(req.Records) == 0 {
		return nil, InvalidRequest("records", "records must be a non-empty array")
	}

	kind := models.MetricKind(req.DataType)
	facts := make([]models.Fact, 0, len(req.Records))
	for i, rec := range req.Records {
		f, err := normalizeRecord(userID, kind, i, rec)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// NormalizeFacts revalidates facts that arrive outside a payload shape, such as
// an import, and rebinds them to userID. Kind membership follows the same rule
// as batch dataType. One invalid fact rejects the whole slice.
func (n Normalizer) NormalizeFacts(userID string, facts []models.Fact) ([]models.Fact, error) {
	out := make([]models.Fact, 0, len(facts))
	for i, f := range facts {
		kind := strings.TrimSpace(string(f.Kind))
		if kind == "" {
			return nil, missingField("", i, "metric_kind")
		}
		if !n.AllowUnknownKinds && !models.IsValidMetricKind(kind) {
			return nil, &ValidationError{
				Kind:    KindInvalidRequest,
				Fields:  []string{"metric_kind"},
				Index:   i,
				Message: fmt.Sprintf("unknown metric_kind %q", kind),
			}
		}

		date, clock := f.Date, f.Time
		nf, err := normalizeRecord(userID, models.MetricKind(kind), i, Record{Date: &date, Time: &clock, Value: f.Value})
		if err != nil {
			return nil, err
		}
		out = append(out, nf)
	}
	return out, nil
}

func normalizeRecord(userID string, kind models.MetricKind, index int, rec Record) (models.Fact, error) {
	var missing []string
	if isBlank(rec.Date) {
		missing = append(missing, "date")
	}
	if isBlank(rec.Time) {
		missing = append(missing, "time")
	}
	if rec.Value.IsEmpty() {
		missing = append(missing, "value")
	}
	if len(missing) > 0 {
		return models.Fact{}, missingField(kind, index, missing...)
	}

	date, err := normalizeDate(*rec.Date, kind, index)
	if err != nil {
		return models.Fact{}, err
	}
	clock, err := normalizeTime(*rec.Time, kind, index)
	if err != nil {
		return models.Fact{}, err
	}
	return models.NewFact(userID, kind, date, clock, rec.Value), nil
}

func normalizeDate(s string, kind models.MetricKind, index int) (string, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", &ValidationError{
			Kind:    KindInvalidRequest,
			Fields:  []string{"date"},
			Metric:  kind,
			Index:   index,
			Message: fmt.Sprintf("date %q must be YYYY-MM-DD", s),
		}
	}
	return t.Format(models.DateLayout), nil
}

// normalizeTime accepts HH:MM:SS or HH:MM and always returns HH:MM:SS.
func normalizeTime(s string, kind models.MetricKind, index int) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{models.TimeLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.TimeLayout), nil
		}
	}
	return "", &ValidationError{
		Kind:    KindInvalidRequest,
		Fields:  []string{"time"},
		Metric:  kind,
		Index:   index,
		Message: fmt.Sprintf("time %q must be HH:MM:SS", s),
	}
}

func parseNumber(raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %s", raw)
	}
	return f, nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
