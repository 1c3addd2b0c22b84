package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	// Generate many IDs
	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"run-123", RunID("run-123"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseRunID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestCohortHashDeterminism tests that column order does not change the hash
func TestCohortHashDeterminism(t *testing.T) {
	a := ComputeCohortHash([]ColumnKey{"her2_final_status", "pp_her2", "vital_status"}, 100, "pp_her2")
	b := ComputeCohortHash([]ColumnKey{"vital_status", "pp_her2", "her2_final_status"}, 100, "pp_her2")
	if !Hash(a).Equals(Hash(b)) {
		t.Errorf("Expected identical hashes for reordered columns, got %s vs %s", a, b)
	}

	c := ComputeCohortHash([]ColumnKey{"her2_final_status", "pp_her2", "vital_status"}, 101, "pp_her2")
	if Hash(a).Equals(Hash(c)) {
		t.Error("Expected different hashes for different row counts")
	}
}

// TestRunFingerprintStageOrder tests that stage order changes the fingerprint
func TestRunFingerprintStageOrder(t *testing.T) {
	cohort := ComputeCohortHash([]ColumnKey{"pp_her2"}, 10, "pp_her2")

	a := ComputeRunFingerprint(cohort, 42, []string{"profile", "survival"})
	b := ComputeRunFingerprint(cohort, 42, []string{"survival", "profile"})
	if Hash(a).Equals(Hash(b)) {
		t.Error("Expected different fingerprints for reordered stages")
	}

	c := ComputeRunFingerprint(cohort, 43, []string{"profile", "survival"})
	if Hash(a).Equals(Hash(c)) {
		t.Error("Expected different fingerprints for different seeds")
	}
}

// TestColumnMissingError tests the error truncates the seen column list
func TestColumnMissingError(t *testing.T) {
	seen := make([]string, 20)
	for i := range seen {
		seen[i] = "col"
	}

	err := NewColumnMissingError([]string{"her2_final_status"}, seen)
	if !errors.Is(err, ErrColumnMissing) {
		t.Errorf("Expected ErrColumnMissing, got %v", err)
	}
	if !IsDataError(err) {
		t.Error("Expected column missing error to be a data error")
	}
}

// TestUnmappedValueError tests the error caps the reported rows at five
func TestUnmappedValueError(t *testing.T) {
	err := NewUnmappedValueError("vital_status", []int{3, 7, 9, 12, 15, 21, 30})
	if !errors.Is(err, ErrUnmappedValue) {
		t.Errorf("Expected ErrUnmappedValue, got %v", err)
	}

	msg := err.Error()
	if want := "[3 7 9 12 15]"; !strings.Contains(msg, want) {
		t.Errorf("Expected message to contain %q, got %q", want, msg)
	}
}

// TestJSONFloat tests that non-finite values survive JSON encoding
func TestJSONFloat(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"finite", 2.5, "2.5"},
		{"zero", 0, "0"},
		{"nan", math.NaN(), "null"},
		{"positive_inf", math.Inf(1), "null"},
		{"negative_inf", math.Inf(-1), "null"},
	}

	for _, tt := range tests {
		got, err := json.Marshal(JSONFloat(tt.value))
		if err != nil {
			t.Errorf("%s: marshal error: %v", tt.name, err)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}

	var back JSONFloat
	if err := json.Unmarshal([]byte("null"), &back); err != nil {
		t.Fatalf("Unmarshal null: %v", err)
	}
	if !math.IsNaN(float64(back)) {
		t.Errorf("Expected null to decode as NaN, got %v", back)
	}

	if err := json.Unmarshal([]byte("3.25"), &back); err != nil {
		t.Fatalf("Unmarshal number: %v", err)
	}
	if back != 3.25 {
		t.Errorf("Expected 3.25, got %v", back)
	}
	if !back.Finite() {
		t.Error("Expected 3.25 to be finite")
	}
}
