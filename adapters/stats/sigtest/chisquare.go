package sigtest

import (
	"fmt"
	"math"

	"her2lab/domain/core"
	"her2lab/domain/stats"
	"her2lab/internal/analysis"
)

var dist = analysis.NewStatisticalDistributions()

// ChiSquareResult carries the independence test plus the effect measures
// reported next to it.
type ChiSquareResult struct {
	Metrics     stats.TestMetrics
	Uncorrected float64     // statistic without the continuity correction
	CramersV    float64     // always from the uncorrected statistic
	Expected    [][]float64 // expected counts under independence
	MinExpected float64
	Yates       bool // continuity correction applied
}

// ChiSquare runs the chi-square test of independence on an r x c count
// table. With yates set and a single degree of freedom, each cell's
// deviation shrinks toward its expectation by 0.5, floored at zero.
// Cramer's V comes from the uncorrected statistic either way.
func ChiSquare(table *stats.ContingencyTable, yates bool) (*ChiSquareResult, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	n := table.Total()
	if n == 0 {
		return nil, core.ErrEmptyTable
	}

	rows := len(table.RowLabels)
	cols := len(table.ColLabels)
	df := (rows - 1) * (cols - 1)
	if df <= 0 {
		return nil, fmt.Errorf("%w: %dx%d table has no degrees of freedom",
			core.ErrInsufficientData, rows, cols)
	}

	expected := table.Expected()
	for i := range expected {
		for j, e := range expected[i] {
			if e == 0 {
				return nil, fmt.Errorf("%w: expected count is zero at %s/%s",
					core.ErrInsufficientData, table.RowLabels[i], table.ColLabels[j])
			}
		}
	}

	applyYates := yates && df == 1
	raw, corrected := 0.0, 0.0
	for i := range expected {
		for j, e := range expected[i] {
			diff := math.Abs(float64(table.At(i, j)) - e)
			raw += diff * diff / e

			if applyYates {
				diff = math.Max(0, diff-0.5)
			}
			corrected += diff * diff / e
		}
	}

	statistic := raw
	if applyYates {
		statistic = corrected
	}
	v := cramersV(raw, n, rows, cols)

	return &ChiSquareResult{
		Metrics: stats.TestMetrics{
			Statistic:  core.JSONFloat(statistic),
			PValue:     dist.ChiSquarePValue(statistic, df),
			EffectSize: core.JSONFloat(v),
			EffectUnit: "V",
			SampleSize: n,
			DF:         df,
			Test:       stats.TestChiSquare,
		},
		Uncorrected: raw,
		CramersV:    v,
		Expected:    expected,
		MinExpected: table.MinExpected(),
		Yates:       applyYates,
	}, nil
}

// cramersV normalizes the chi-square statistic into [0, 1]
func cramersV(chi2 float64, n, rows, cols int) float64 {
	minDim := rows - 1
	if cols-1 < minDim {
		minDim = cols - 1
	}
	if minDim <= 0 || n == 0 {
		return 0
	}
	v := math.Sqrt(chi2 / (float64(n) * float64(minDim)))
	if v > 1 {
		v = 1
	}
	return v
}
