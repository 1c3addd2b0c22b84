package sigtest

import (
	"fmt"
	"math"

	"her2lab/domain/core"
	"her2lab/domain/stats"
)

// fisherRelTol absorbs float noise when comparing a table's probability
// against the observed table's.
const fisherRelTol = 1e-7

// FisherResult is the exact 2x2 independence test with the sample odds
// ratio and, when every cell is occupied, its 95% confidence interval.
type FisherResult struct {
	Metrics   stats.TestMetrics
	OddsRatio float64 // NaN or +Inf when a cell product vanishes
	CILow     float64
	CIHigh    float64
	HasCI     bool
}

// FisherExact computes the two-sided exact test for a 2x2 table by summing
// the hypergeometric probabilities of every table no more likely than the
// observed one. The odds ratio is the sample (a*d)/(b*c); with the table
// oriented deceased-first it reads as odds of death in High over Low.
func FisherExact(table *stats.ContingencyTable) (*FisherResult, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if !table.Is2x2() {
		return nil, fmt.Errorf("fisher exact test needs a 2x2 table, got %dx%d",
			len(table.RowLabels), len(table.ColLabels))
	}

	a, b := table.At(0, 0), table.At(0, 1)
	c, d := table.At(1, 0), table.At(1, 1)
	n := a + b + c + d
	if n == 0 {
		return nil, core.ErrEmptyTable
	}

	row1 := a + b
	col1 := a + c

	lo := 0
	if row1+col1-n > 0 {
		lo = row1 + col1 - n
	}
	hi := row1
	if col1 < hi {
		hi = col1
	}

	pObs := math.Exp(logHypergeometric(a, row1, col1, n))
	p := 0.0
	for k := lo; k <= hi; k++ {
		pk := math.Exp(logHypergeometric(k, row1, col1, n))
		if pk <= pObs*(1+fisherRelTol) {
			p += pk
		}
	}
	if p > 1 {
		p = 1
	}

	or := oddsRatio(a, b, c, d)

	result := &FisherResult{
		Metrics: stats.TestMetrics{
			Statistic:  core.JSONFloat(or),
			PValue:     p,
			EffectSize: core.JSONFloat(or),
			EffectUnit: "OR",
			SampleSize: n,
			DF:         1,
			Exact:      true,
			Test:       stats.TestFisherExact,
		},
		OddsRatio: or,
	}

	// The Woolf interval needs every cell occupied; otherwise the log odds
	// ratio is unbounded.
	if a > 0 && b > 0 && c > 0 && d > 0 {
		logOR := math.Log(or)
		se := math.Sqrt(1/float64(a) + 1/float64(b) + 1/float64(c) + 1/float64(d))
		z := dist.NormalQuantile(0.975)
		result.CILow = math.Exp(logOR - z*se)
		result.CIHigh = math.Exp(logOR + z*se)
		result.HasCI = true
	}

	return result, nil
}

// oddsRatio follows the usual conventions for empty cells: +Inf when only
// the denominator product vanishes, NaN when both do.
func oddsRatio(a, b, c, d int) float64 {
	ad := float64(a) * float64(d)
	bc := float64(b) * float64(c)
	if bc == 0 {
		if ad == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	return ad / bc
}

// logHypergeometric is the log PMF of seeing k first-row members among the
// first column's draw from a population of n.
func logHypergeometric(k, row1, col1, n int) float64 {
	return logChoose(row1, k) + logChoose(n-row1, col1-k) - logChoose(n, col1)
}

// logChoose is log(n choose k) via the log-gamma function
func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	lgN, _ := math.Lgamma(float64(n + 1))
	lgK, _ := math.Lgamma(float64(k + 1))
	lgNK, _ := math.Lgamma(float64(n - k + 1))
	return lgN - lgK - lgNK
}
