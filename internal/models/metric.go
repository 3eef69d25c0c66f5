// ABOUTME: MetricKind enum and the biometric Fact model.
// ABOUTME: Defines the seven wearable metric kinds and the Numeric/Opaque value variant.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MetricKind identifies which biometric a fact measures.
type MetricKind string

const (
	// Activity
	MetricStep     MetricKind = "step"
	MetricCalories MetricKind = "calories"
	MetricDistance MetricKind = "distance"

	// Sleep stages
	MetricDeepSleep  MetricKind = "deep_sleep"
	MetricLightSleep MetricKind = "light_sleep"
	MetricRemSleep   MetricKind = "rem_sleep"

	// Cardio
	MetricHeartRate MetricKind = "heart_rate"
)

// Layouts for the stored date and time columns.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// MetricUnits maps metric kinds to their display units.
var MetricUnits = map[MetricKind]string{
	MetricStep:       "steps",
	MetricCalories:   "kcal",
	MetricDistance:   "m",
	MetricDeepSleep:  "min",
	MetricLightSleep: "min",
	MetricRemSleep:   "min",
	MetricHeartRate:  "bpm",
}

// AllMetricKinds lists the closed set of kinds in ingestion order.
var AllMetricKinds = []MetricKind{
	MetricStep, MetricCalories, MetricDistance,
	MetricDeepSleep, MetricLightSleep, MetricRemSleep,
	MetricHeartRate,
}

// IsValidMetricKind checks if a string is a known metric kind.
func IsValidMetricKind(s string) bool {
	for _, mk := range AllMetricKinds {
		if string(mk) == s {
			return true
		}
	}
	return false
}

// ValueKind tags how a fact value was supplied.
type ValueKind string

const (
	ValueNumeric ValueKind = "numeric"
	ValueOpaque  ValueKind = "opaque"
)

// Value is either a number or an opaque string kept exactly as received.
type Value struct {
	kind   ValueKind
	number float64
	text   string
}

// Numeric builds a numeric value.
func Numeric(f float64) Value {
	return Value{kind: ValueNumeric, number: f}
}

// Opaque builds a string value that is stored verbatim.
func Opaque(s string) Value {
	return Value{kind: ValueOpaque, text: s}
}

// ParseStoredValue rebuilds a Value from its persisted text and kind tag.
func ParseStoredValue(kind, text string) (Value, error) {
	switch ValueKind(kind) {
	case ValueNumeric:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse numeric value %q: %w", text, err)
		}
		return Numeric(f), nil
	case ValueOpaque, "":
		return Opaque(text), nil
	default:
		return Value{}, fmt.Errorf("unknown value kind %q", kind)
	}
}

// Kind reports which variant the value holds.
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return ValueOpaque
	}
	return v.kind
}

// IsZero reports whether the value was never set.
func (v Value) IsZero() bool {
	return v.kind == ""
}

// IsEmpty reports whether the value carries nothing usable.
// Numeric zero is a real reading and is not empty.
func (v Value) IsEmpty() bool {
	return v.kind == "" || (v.kind == ValueOpaque && v.text == "")
}

// Float returns the number and whether the value is numeric.
func (v Value) Float() (float64, bool) {
	return v.number, v.kind == ValueNumeric
}

// String returns the persisted text form.
func (v Value) String() string {
	if v.kind == ValueNumeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

// MarshalJSON encodes numbers as JSON numbers and opaque values as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == ValueNumeric {
		return json.Marshal(v.number)
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts a JSON number or string. Null leaves the value unset.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Opaque(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("value must be a number or string: %w", err)
	}
	*v = Numeric(f)
	return nil
}

// MarshalYAML mirrors the JSON encoding.
func (v Value) MarshalYAML() (interface{}, error) {
	if v.kind == ValueNumeric {
		return v.number, nil
	}
	return v.text, nil
}

// Reading is one dated measurement without an owner or kind.
type Reading struct {
	Date  string `json:"date" yaml:"date"`
	Time  string `json:"time" yaml:"time"`
	Value Value  `json:"value" yaml:"value"`
}

// Fact is a normalized reading ready to be stored.
type Fact struct {
	UserID  string     `json:"user_id" yaml:"user_id"`
	Kind    MetricKind `json:"metric_kind" yaml:"metric_kind"`
	Reading `yaml:",inline"`
}

// NewFact creates a Fact for the given owner and kind.
func NewFact(userID string, kind MetricKind, date, clock string, value Value) Fact {
	return Fact{
		UserID:  userID,
		Kind:    kind,
		Reading: Reading{Date: date, Time: clock, Value: value},
	}
}

// StoredFact is a Fact after the store assigned its identity.
type StoredFact struct {
	ID        int64 `json:"id" yaml:"id"`
	Fact      `yaml:",inline"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Unit returns the display unit for the fact's kind.
func (f *StoredFact) Unit() string {
	return MetricUnits[f.Kind]
}
