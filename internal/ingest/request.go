// ABOUTME: Tagged ingestion request variants and their JSON decoders.
// ABOUTME: WideRows, MetricArrays and Batch each normalize into the same Fact sequence.
package ingest

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/harperreed/wellness/internal/models"
)

// Shape names an accepted payload convention.
type Shape string

const (
	ShapeWide   Shape = "wide"
	ShapeArrays Shape = "arrays"
	ShapeBatch  Shape = "batch"
)

// Request is one of *WideRows, *MetricArrays or *Batch.
type Request interface {
	Shape() Shape
}

// Number is an optional numeric field kept as raw text until validated.
type Number struct {
	raw string
}

// NumberOf builds a Number from a float.
func NumberOf(f float64) *Number {
	return &Number{raw: models.Numeric(f).String()}
}

// UnmarshalJSON accepts any scalar so that bad input is reported per field.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n.raw = s
		return nil
	}
	n.raw = string(data)
	return nil
}

// Record is one {date, time, value} element of an array or batch payload.
type Record struct {
	Date  *string      `json:"date"`
	Time  *string      `json:"time"`
	Value models.Value `json:"value"`
}

// WideRow carries many optional metrics sharing one timestamp.
type WideRow struct {
	Date              *string `json:"date"`
	Time              *string `json:"time"`
	StepCount         *Number `json:"step_count"`
	CaloriesBurned    *Number `json:"calories_burned"`
	DistanceWalked    *Number `json:"distance_walked"`
	TotalSleepMinutes *Number `json:"total_sleep_minutes"`
	DeepSleepMinutes  *Number `json:"deep_sleep_minutes"`
	RemSleepMinutes   *Number `json:"rem_sleep_minutes"`
	LightSleepMinutes *Number `json:"light_sleep_minutes"`
	AvgHeartRate      *Number `json:"avg_heart_rate"`
	HeartRate         *Number `json:"heart_rate"`
	MaxHeartRate      *Number `json:"max_heart_rate"`
	MinHeartRate      *Number `json:"min_heart_rate"`
}

// WideRows is the wide-row payload.
type WideRows struct {
	Rows []WideRow `json:"biometricsData"`
}

// Shape implements Request.
func (*WideRows) Shape() Shape { return ShapeWide }

// Series is one named array of a MetricArrays payload.
type Series struct {
	Kind    models.MetricKind
	Field   string
	Records []Record
}

// MetricArrays is the per-metric array payload, in fixed kind order.
type MetricArrays struct {
	Series []Series
}

// Shape implements Request.
func (*MetricArrays) Shape() Shape { return ShapeArrays }

// Batch is the explicit {dataType, records} payload.
type Batch struct {
	DataType string
	Records  []Record
}

// Shape implements Request.
func (*Batch) Shape() Shape { return ShapeBatch }

// ArrayFields maps per-metric array names to their kind, in ingestion order.
var ArrayFields = []struct {
	Field string
	Kind  models.MetricKind
}{
	{"stepData", models.MetricStep},
	{"caloriesBurnedData", models.MetricCalories},
	{"distanceWalked", models.MetricDistance},
	{"deepSleepMinutes", models.MetricDeepSleep},
	{"lightSleepMinutes", models.MetricLightSleep},
	{"remSleepMinutes", models.MetricRemSleep},
	{"heartRateData", models.MetricHeartRate},
}

// Parse decodes a payload of the given shape.
func Parse(shape Shape, data []byte) (Request, error) {
	switch shape {
	case ShapeWide:
		return ParseWideRows(data)
	case ShapeArrays:
		return ParseMetricArrays(data)
	case ShapeBatch:
		return ParseBatch(data)
	default:
		return nil, InvalidRequest("shape", "unknown payload shape %q", shape)
	}
}

// ParseWideRows decodes {"biometricsData": [...]} or a single bare row object.
func ParseWideRows(data []byte) (*WideRows, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, InvalidRequest("", "body must be a JSON object: %v", err)
	}

	raw, wrapped := top["biometricsData"]
	if !wrapped {
		var row WideRow
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, InvalidRequest("", "malformed row: %v", err)
		}
		return &WideRows{Rows: []WideRow{row}}, nil
	}

	if !isArray(raw) {
		return nil, InvalidRequest("biometricsData", "biometricsData must be an array")
	}
	var rows []WideRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, InvalidRequest("biometricsData", "malformed rows: %v", err)
	}
	if len(rows) == 0 {
		return nil, InvalidRequest("biometricsData", "biometricsData must not be empty")
	}
	return &WideRows{Rows: rows}, nil
}

// ParseMetricArrays decodes the per-metric array payload.
func ParseMetricArrays(data []byte) (*MetricArrays, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, InvalidRequest("", "body must be a JSON object: %v", err)
	}

	req := &MetricArrays{}
	for _, af := range ArrayFields {
		raw, ok := top[af.Field]
		if !ok || isNull(raw) {
			continue
		}
		records, err := decodeRecords(af.Field, raw)
		if err != nil {
			return nil, err
		}
		req.Series = append(req.Series, Series{Kind: af.Kind, Field: af.Field, Records: records})
	}
	return req, nil
}

// ParseBatch decodes the explicit batch payload.
func ParseBatch(data []byte) (*Batch, error) {
	var body struct {
		DataType *string         `json:"dataType"`
		Records  json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, InvalidRequest("", "body must be a JSON object: %v", err)
	}

	req := &Batch{}
	if body.DataType != nil {
		req.DataType = *body.DataType
	}
	if len(body.Records) == 0 || isNull(body.Records) {
		return req, nil
	}
	records, err := decodeRecords("records", body.Records)
	if err != nil {
		return nil, err
	}
	req.Records = records
	return req, nil
}

func decodeRecords(field string, raw json.RawMessage) ([]Record, error) {
	if !isArray(raw) {
		return nil, InvalidRequest(field, "%s must be an array", field)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, InvalidRequest(field, "malformed %s: %v", field, err)
	}
	return records, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Shapes lists the accepted shapes for help text.
func Shapes() string {
	return strings.Join([]string{string(ShapeBatch), string(ShapeArrays), string(ShapeWide)}, "|")
}
