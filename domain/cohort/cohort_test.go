package cohort

import (
	"errors"
	"testing"

	"her2lab/domain/core"
)

// TestToSnake tests header normalization against known dataset spellings
func TestToSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HER2 Final Status", "her2_final_status"},
		{"her2_final_status", "her2_final_status"},
		{"pp.HER2", "pp_her2"},
		{"ppHER2", "pp_her2"},
		{"Cosmic-ID", "cosmic_id"},
		{"Vital Status", "vital_status"},
		{"  spaced  name ", "spaced_name"},
		{"drugName", "drug_name"},
		{"ALLCAPS", "allcaps"},
		{"", ""},
	}

	for _, test := range tests {
		if got := ToSnake(test.input); got != test.expected {
			t.Errorf("ToSnake(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

// TestResolveSignalColumn tests preference ordering
func TestResolveSignalColumn(t *testing.T) {
	cols := []string{"her2_final_status", "pp_her2_py1248", "pp_her2"}

	key, err := ResolveSignalColumn(cols, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key != "pp_her2" {
		t.Errorf("Expected pp_her2 to win the preference order, got %s", key)
	}

	key, err = ResolveSignalColumn([]string{"pp_her2_py1248"}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key != "pp_her2_py1248" {
		t.Errorf("Expected fallback to pp_her2_py1248, got %s", key)
	}

	_, err = ResolveSignalColumn([]string{"er_status"}, nil)
	if !errors.Is(err, core.ErrColumnMissing) {
		t.Errorf("Expected ErrColumnMissing, got %v", err)
	}
}

// TestResolveHER2Column tests the candidate spellings
func TestResolveHER2Column(t *testing.T) {
	col, err := ResolveHER2Column([]string{"pp_her2", "her2_status"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if col != "her2_status" {
		t.Errorf("Expected her2_status, got %s", col)
	}

	_, err = ResolveHER2Column([]string{"pp_her2", "er_status"})
	if !errors.Is(err, core.ErrColumnMissing) {
		t.Errorf("Expected ErrColumnMissing, got %v", err)
	}
}

// TestNormalizeStatus tests label standardization
func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"POSITIVE ", "Positive"},
		{"negative", "Negative"},
		{"Equivocal", "Equivocal"},
		{"nan", "Nan"},
		{"", ""},
	}

	for _, test := range tests {
		if got := NormalizeStatus(test.input); got != test.expected {
			t.Errorf("NormalizeStatus(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}

	if !IsCanonicalStatus("Positive") || !IsCanonicalStatus("Negative") {
		t.Error("Expected canonical labels to be accepted")
	}
	if IsCanonicalStatus("Equivocal") || IsCanonicalStatus("Nan") {
		t.Error("Expected non-canonical labels to be rejected")
	}
}

// TestHER2Indicator tests the broad positive spelling set
func TestHER2Indicator(t *testing.T) {
	positives := []string{"positive", "POS", "her2+", "1", "true", " YES ", "High"}
	for _, raw := range positives {
		if HER2Indicator(raw) != 1 {
			t.Errorf("Expected %q to flag as positive", raw)
		}
	}

	negatives := []string{"negative", "neg", "0", "false", "no", ""}
	for _, raw := range negatives {
		if HER2Indicator(raw) != 0 {
			t.Errorf("Expected %q to flag as negative", raw)
		}
	}
}

// TestEncodeVitalColumn tests the exact mapping and its failure mode
func TestEncodeVitalColumn(t *testing.T) {
	encoded, err := EncodeVitalColumn([]string{"Alive", "DECEASED", "0", "1", "dead"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := []int{0, 1, 0, 1, 1}
	for i, v := range expected {
		if encoded[i] != v {
			t.Errorf("Row %d: expected %d, got %d", i, v, encoded[i])
		}
	}

	// "true"/"false" never mapped in the reference encoding
	_, err = EncodeVitalColumn([]string{"alive", "true", "dead", "unknown"})
	if !errors.Is(err, core.ErrUnmappedValue) {
		t.Fatalf("Expected ErrUnmappedValue, got %v", err)
	}

	// Missing cells encode as unknown rather than failing
	encoded, err = EncodeVitalColumn([]string{"alive", "", "NA", "dead"})
	if err != nil {
		t.Fatalf("Unexpected error for missing cells: %v", err)
	}
	expected = []int{VitalAlive, VitalUnknown, VitalUnknown, VitalDeceased}
	for i, v := range expected {
		if encoded[i] != v {
			t.Errorf("Row %d: expected %d, got %d", i, v, encoded[i])
		}
	}
}

// TestIsMissingCell tests the ingestion NA sentinels
func TestIsMissingCell(t *testing.T) {
	missing := []string{"", "  ", "NA", "n/a", "NaN", "null", "None", "#N/A"}
	for _, v := range missing {
		if !IsMissingCell(v) {
			t.Errorf("Expected %q to read as missing", v)
		}
	}

	present := []string{"0", "Negative", "alive", "na-cl", "nothing"}
	for _, v := range present {
		if IsMissingCell(v) {
			t.Errorf("Expected %q to read as present", v)
		}
	}
}

// TestSurvivalRows tests that unknown vital rows drop out
func TestSurvivalRows(t *testing.T) {
	c := &Cohort{
		SignalColumn: "pp_her2",
		HER2:         []HER2Status{StatusPositive, StatusNegative, StatusPositive},
		Signal:       []float64{2.0, -1.0, 3.0},
		H:            []int{1, 0, 1},
		VitalStatus:  []int{VitalAlive, VitalUnknown, VitalDeceased},
		HasVital:     true,
	}

	signal, vital := c.SurvivalRows()
	if len(signal) != 2 || len(vital) != 2 {
		t.Fatalf("Expected 2 survival rows, got %d/%d", len(signal), len(vital))
	}
	if signal[0] != 2.0 || signal[1] != 3.0 {
		t.Errorf("Unexpected signal rows: %v", signal)
	}
	if vital[0] != VitalAlive || vital[1] != VitalDeceased {
		t.Errorf("Unexpected vital rows: %v", vital)
	}

	noVital := &Cohort{SignalColumn: "pp_her2", HER2: []HER2Status{StatusPositive}, Signal: []float64{1}, H: []int{1}}
	if s, v := noVital.SurvivalRows(); s != nil || v != nil {
		t.Error("Expected nil survival rows without the column")
	}
}

// TestCohortValidate tests parallel slice consistency
func TestCohortValidate(t *testing.T) {
	c := &Cohort{
		SignalColumn: "pp_her2",
		HER2:         []HER2Status{StatusPositive, StatusNegative},
		Signal:       []float64{1.2, -0.4},
		H:            []int{1, 0},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Expected valid cohort, got %v", err)
	}

	c.Signal = []float64{1.2}
	if err := c.Validate(); err == nil {
		t.Error("Expected length mismatch error")
	}

	empty := &Cohort{SignalColumn: "pp_her2"}
	if err := empty.Validate(); !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for empty cohort, got %v", err)
	}
}

// TestSignalByStatus tests arm extraction
func TestSignalByStatus(t *testing.T) {
	c := &Cohort{
		SignalColumn: "pp_her2",
		HER2:         []HER2Status{StatusPositive, StatusNegative, StatusPositive},
		Signal:       []float64{2.0, -1.0, 3.0},
		H:            []int{1, 0, 1},
	}

	pos := c.SignalByStatus(StatusPositive)
	if len(pos) != 2 || pos[0] != 2.0 || pos[1] != 3.0 {
		t.Errorf("Unexpected positive arm: %v", pos)
	}

	neg := c.SignalByStatus(StatusNegative)
	if len(neg) != 1 || neg[0] != -1.0 {
		t.Errorf("Unexpected negative arm: %v", neg)
	}
}

// TestDrugScreenLookups tests name normalization and per-drug extraction
func TestDrugScreenLookups(t *testing.T) {
	s := &DrugScreen{
		Drug:      []string{"lapatinib", "lapatinib", "docetaxel"},
		Viability: []float64{30, 45, 80},
		Dose:      []float64{0.1, 1.0, 0.5},
		HasDose:   true,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Expected valid screen, got %v", err)
	}

	vals := s.ViabilityForDrug("Lapatinib")
	if len(vals) != 2 {
		t.Fatalf("Expected 2 measurements, got %d", len(vals))
	}

	doses, via := s.MeasurementsForDrug("LAPATINIB")
	if len(doses) != 2 || len(via) != 2 {
		t.Errorf("Expected paired measurements, got %d doses / %d viability", len(doses), len(via))
	}

	drugs := s.Drugs()
	if len(drugs) != 2 || drugs[0] != "docetaxel" || drugs[1] != "lapatinib" {
		t.Errorf("Expected sorted distinct drugs, got %v", drugs)
	}

	counts := s.MeasurementCounts()
	if counts["lapatinib"] != 2 || counts["docetaxel"] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

// TestClipViability tests the assay range clamp
func TestClipViability(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-5, 0},
		{0, 0},
		{99.5, 99.5},
		{200, 200},
		{250, 200},
	}
	for _, test := range tests {
		if got := ClipViability(test.input); got != test.expected {
			t.Errorf("ClipViability(%v) = %v, expected %v", test.input, got, test.expected)
		}
	}
}
