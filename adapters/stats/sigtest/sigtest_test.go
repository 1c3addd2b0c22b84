package sigtest

import (
	"errors"
	"math"
	"testing"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
)

func TestMannWhitneyEmptyGroup(t *testing.T) {
	_, err := MannWhitney([]float64{}, []float64{1, 2, 3}, stats.TwoSided)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for empty group, got %v", err)
	}

	_, err = MannWhitney([]float64{math.NaN()}, []float64{1, 2, 3}, stats.TwoSided)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData when NaN filtering empties a group, got %v", err)
	}
}

func TestMannWhitneyAllEqual(t *testing.T) {
	res, err := MannWhitney([]float64{2, 2, 2}, []float64{2, 2, 2}, stats.TwoSided)
	if err != nil {
		t.Fatalf("MannWhitney: %v", err)
	}

	if res.Metrics.PValue != 1.0 {
		t.Errorf("Expected p=1 for identical samples, got %v", res.Metrics.PValue)
	}
	if res.Metrics.EffectSize != 0 {
		t.Errorf("Expected zero effect for identical samples, got %v", res.Metrics.EffectSize)
	}

	found := false
	for _, w := range res.Warnings {
		if w == stats.WarningZeroVariance {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected ZERO_VARIANCE warning, got %v", res.Warnings)
	}
}

func TestMannWhitneyDropsNaN(t *testing.T) {
	clean, err := MannWhitney([]float64{1, 2, 3, 4, 5}, []float64{6, 7, 8, 9, 10}, stats.TwoSided)
	if err != nil {
		t.Fatalf("MannWhitney: %v", err)
	}
	dirty, err := MannWhitney(
		[]float64{1, math.NaN(), 2, 3, 4, 5},
		[]float64{6, 7, math.NaN(), 8, 9, 10},
		stats.TwoSided,
	)
	if err != nil {
		t.Fatalf("MannWhitney with NaN: %v", err)
	}

	if clean.Metrics.Statistic != dirty.Metrics.Statistic || clean.Metrics.PValue != dirty.Metrics.PValue {
		t.Errorf("Expected NaN rows to be ignored: clean U=%v p=%v, dirty U=%v p=%v",
			clean.Metrics.Statistic, clean.Metrics.PValue, dirty.Metrics.Statistic, dirty.Metrics.PValue)
	}
	if dirty.N1 != 5 || dirty.N2 != 5 {
		t.Errorf("Expected group sizes 5/5 after NaN filtering, got %d/%d", dirty.N1, dirty.N2)
	}
}

func TestMannWhitneyGroupSummaries(t *testing.T) {
	res, err := MannWhitney([]float64{10, 20, 30}, []float64{1, 2, 3, 4}, stats.TwoSided)
	if err != nil {
		t.Fatalf("MannWhitney: %v", err)
	}

	if res.MedianX != 20 {
		t.Errorf("Expected median 20 for first group, got %v", res.MedianX)
	}
	if res.MedianY != 2.5 {
		t.Errorf("Expected median 2.5 for second group, got %v", res.MedianY)
	}
	if res.Metrics.SampleSize != 7 {
		t.Errorf("Expected sample size 7, got %d", res.Metrics.SampleSize)
	}
	if res.Metrics.Test != stats.TestMannWhitney {
		t.Errorf("Expected test tag %s, got %s", stats.TestMannWhitney, res.Metrics.Test)
	}
}

func TestChiSquareRejectsDegenerateTables(t *testing.T) {
	empty := &stats.ContingencyTable{
		RowLabels: []string{"High", "Low"},
		ColLabels: []string{"alive", "deceased"},
		Counts:    [][]int{{0, 0}, {0, 0}},
	}
	if _, err := ChiSquare(empty, true); !errors.Is(err, core.ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable, got %v", err)
	}

	zeroColumn := &stats.ContingencyTable{
		RowLabels: []string{"High", "Low"},
		ColLabels: []string{"alive", "deceased"},
		Counts:    [][]int{{5, 0}, {7, 0}},
	}
	if _, err := ChiSquare(zeroColumn, true); !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for a zero expected count, got %v", err)
	}

	oneRow := &stats.ContingencyTable{
		RowLabels: []string{"High"},
		ColLabels: []string{"alive", "deceased"},
		Counts:    [][]int{{5, 3}},
	}
	if _, err := ChiSquare(oneRow, true); !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for zero degrees of freedom, got %v", err)
	}
}

func TestChiSquareYatesOnlyAppliesAtOneDF(t *testing.T) {
	table := &stats.ContingencyTable{
		RowLabels: []string{"a", "b", "c"},
		ColLabels: []string{"x", "y"},
		Counts:    [][]int{{10, 15}, {20, 5}, {12, 18}},
	}

	res, err := ChiSquare(table, true)
	if err != nil {
		t.Fatalf("ChiSquare: %v", err)
	}

	if res.Yates {
		t.Error("Expected no continuity correction on a 3x2 table")
	}
	if res.Metrics.DF != 2 {
		t.Errorf("Expected 2 degrees of freedom, got %d", res.Metrics.DF)
	}
	if float64(res.Metrics.Statistic) != res.Uncorrected {
		t.Errorf("Expected statistic to equal the uncorrected value, got %v vs %v",
			res.Metrics.Statistic, res.Uncorrected)
	}
}

func TestFisherExactNeeds2x2(t *testing.T) {
	table := &stats.ContingencyTable{
		RowLabels: []string{"a", "b", "c"},
		ColLabels: []string{"x", "y"},
		Counts:    [][]int{{1, 2}, {3, 4}, {5, 6}},
	}
	if _, err := FisherExact(table); err == nil {
		t.Error("Expected error for a 3x2 table")
	}
}

func TestFisherExactEmptyCells(t *testing.T) {
	// One empty cell on the denominator diagonal: infinite odds ratio, no CI.
	inf := &stats.ContingencyTable{
		RowLabels: []string{"High", "Low"},
		ColLabels: []string{"deceased", "alive"},
		Counts:    [][]int{{2, 0}, {3, 1}},
	}
	res, err := FisherExact(inf)
	if err != nil {
		t.Fatalf("FisherExact: %v", err)
	}
	if !math.IsInf(res.OddsRatio, 1) {
		t.Errorf("Expected +Inf odds ratio, got %v", res.OddsRatio)
	}
	if res.HasCI {
		t.Error("Expected no CI with an empty cell")
	}
	if math.Abs(res.Metrics.PValue-1.0) > 1e-12 {
		t.Errorf("Expected p=1, got %v", res.Metrics.PValue)
	}

	// Both products empty: undefined odds ratio.
	nan := &stats.ContingencyTable{
		RowLabels: []string{"High", "Low"},
		ColLabels: []string{"deceased", "alive"},
		Counts:    [][]int{{0, 5}, {0, 5}},
	}
	res, err = FisherExact(nan)
	if err != nil {
		t.Fatalf("FisherExact: %v", err)
	}
	if !math.IsNaN(res.OddsRatio) {
		t.Errorf("Expected NaN odds ratio, got %v", res.OddsRatio)
	}
	if math.Abs(res.Metrics.PValue-1.0) > 1e-12 {
		t.Errorf("Expected p=1, got %v", res.Metrics.PValue)
	}
}

func TestSelect(t *testing.T) {
	sparse := &stats.ContingencyTable{
		RowLabels: []string{"High", "Low"},
		ColLabels: []string{"alive", "deceased"},
		Counts:    [][]int{{3, 1}, {1, 3}},
	}
	adequate := &stats.ContingencyTable{
		RowLabels: []string{"High", "Low"},
		ColLabels: []string{"alive", "deceased"},
		Counts:    [][]int{{10, 20}, {30, 40}},
	}
	wide := &stats.ContingencyTable{
		RowLabels: []string{"a", "b", "c"},
		ColLabels: []string{"x", "y"},
		Counts:    [][]int{{3, 1}, {1, 3}, {2, 2}},
	}

	tests := []struct {
		name  string
		x, y  cohort.StatisticalType
		table *stats.ContingencyTable
		want  stats.TestType
	}{
		{"numeric_vs_binary", cohort.TypeNumeric, cohort.TypeBinary, nil, stats.TestMannWhitney},
		{"binary_vs_numeric", cohort.TypeBinary, cohort.TypeNumeric, nil, stats.TestMannWhitney},
		{"sparse_2x2", cohort.TypeBinary, cohort.TypeBinary, sparse, stats.TestFisherExact},
		{"adequate_2x2", cohort.TypeBinary, cohort.TypeBinary, adequate, stats.TestChiSquare},
		{"wide_table", cohort.TypeCategorical, cohort.TypeBinary, wide, stats.TestChiSquare},
	}

	for _, tt := range tests {
		got, reason, err := Select(tt.x, tt.y, tt.table)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: expected %s, got %s (%s)", tt.name, tt.want, got, reason)
		}
		if reason == "" {
			t.Errorf("%s: expected a selection reason", tt.name)
		}
	}
}

func TestSelectUnsupportedPairs(t *testing.T) {
	if _, _, err := Select(cohort.TypeNumeric, cohort.TypeNumeric, nil); err == nil {
		t.Error("Expected error for numeric-numeric pair")
	}
	if _, _, err := Select(cohort.TypeCategorical, cohort.TypeBinary, nil); err == nil {
		t.Error("Expected error for categorical pair without a table")
	}
}
