// ABOUTME: Tests for MetricKind validation and the Value variant.
// ABOUTME: Verifies kind membership, JSON round trips, and stored value parsing.
package models

import (
	"encoding/json"
	"testing"
)

func TestIsValidMetricKind(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"step", true},
		{"calories", true},
		{"distance", true},
		{"deep_sleep", true},
		{"light_sleep", true},
		{"rem_sleep", true},
		{"heart_rate", true},
		{"steps", false},
		{"weight", false},
		{"", false},
		{"HEART_RATE", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidMetricKind(tt.input); got != tt.want {
				t.Errorf("IsValidMetricKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAllMetricKindsHaveUnits(t *testing.T) {
	if len(AllMetricKinds) != 7 {
		t.Fatalf("expected 7 metric kinds, got %d", len(AllMetricKinds))
	}
	for _, mk := range AllMetricKinds {
		if _, ok := MetricUnits[mk]; !ok {
			t.Errorf("MetricKind %s has no unit defined", mk)
		}
	}
}

func TestValueUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKind  ValueKind
		wantText  string
		wantEmpty bool
	}{
		{"number", `72`, ValueNumeric, "72", false},
		{"float", `5.25`, ValueNumeric, "5.25", false},
		{"zero", `0`, ValueNumeric, "0", false},
		{"string", `"72"`, ValueOpaque, "72", false},
		{"empty string", `""`, ValueOpaque, "", true},
		{"null", `null`, ValueOpaque, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(tt.input), &v); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if v.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", v.Kind(), tt.wantKind)
			}
			if v.String() != tt.wantText {
				t.Errorf("String() = %q, want %q", v.String(), tt.wantText)
			}
			if v.IsEmpty() != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", v.IsEmpty(), tt.wantEmpty)
			}
		})
	}
}

func TestValueUnmarshalRejectsObjects(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"a":1}`), &v); err == nil {
		t.Error("expected error for object value")
	}
}

func TestValueMarshalKeepsVariant(t *testing.T) {
	data, err := json.Marshal([]Value{Numeric(72), Opaque("72")})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `[72,"72"]` {
		t.Errorf("got %s, want [72,\"72\"]", data)
	}
}

func TestParseStoredValue(t *testing.T) {
	v, err := ParseStoredValue("numeric", "8000")
	if err != nil {
		t.Fatalf("ParseStoredValue failed: %v", err)
	}
	if f, ok := v.Float(); !ok || f != 8000 {
		t.Errorf("got %v (numeric=%v), want 8000", f, ok)
	}

	v, err = ParseStoredValue("opaque", "age:abc")
	if err != nil {
		t.Fatalf("ParseStoredValue failed: %v", err)
	}
	if v.Kind() != ValueOpaque || v.String() != "age:abc" {
		t.Errorf("got %v %q, want opaque age:abc", v.Kind(), v.String())
	}

	if _, err := ParseStoredValue("numeric", "abc"); err == nil {
		t.Error("expected error for non-numeric stored value")
	}
	if _, err := ParseStoredValue("blob", "x"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestNewFact(t *testing.T) {
	f := NewFact("u1", MetricHeartRate, "2024-06-01", "08:00:00", Opaque("72"))
	if f.UserID != "u1" || f.Kind != MetricHeartRate {
		t.Errorf("unexpected fact owner/kind: %+v", f)
	}
	if f.Date != "2024-06-01" || f.Time != "08:00:00" {
		t.Errorf("unexpected reading: %+v", f.Reading)
	}
}
