package sigtest

import (
	"errors"
	"fmt"
	"math"

	moremath "github.com/aclements/go-moremath/stats"
	descriptive "github.com/montanaflynn/stats"

	"her2lab/domain/core"
	"her2lab/domain/stats"
)

// MannWhitneyResult bundles the rank test metrics with per-group summaries.
// MedianX and MedianY describe the first and second sample as passed in.
type MannWhitneyResult struct {
	Metrics  stats.TestMetrics
	MedianX  float64
	MedianY  float64
	N1       int
	N2       int
	Warnings []stats.WarningCode
}

// MannWhitney runs the two-sample rank test on independent groups. NaN
// observations are dropped before ranking. The p-value comes from the exact
// U distribution for small samples and from the tie- and continuity-corrected
// normal approximation otherwise. The reported U is the first sample's, so a
// large U means the first group tends to sit above the second.
func MannWhitney(x, y []float64, alt stats.Alternative) (*MannWhitneyResult, error) {
	xs := dropNaN(x)
	ys := dropNaN(y)
	if len(xs) == 0 || len(ys) == 0 {
		return nil, fmt.Errorf("%w: rank test needs observations in both groups (n1=%d, n2=%d)",
			core.ErrInsufficientData, len(xs), len(ys))
	}

	n1, n2 := len(xs), len(ys)
	ties := hasTies(xs, ys)

	var u, p float64
	exact := false

	res, err := moremath.MannWhitneyUTest(xs, ys, altHypothesis(alt))
	switch {
	case err == nil:
		u = res.U
		p = res.P
		exact = usedExactDistribution(n1, n2, ties)
	case errors.Is(err, moremath.ErrSamplesEqual):
		// Every observation identical: no evidence either way.
		u = float64(n1*n2) / 2
		p = 1.0
	default:
		return nil, fmt.Errorf("mann-whitney: %w", err)
	}

	var warnings []stats.WarningCode
	if allEqual(xs, ys) {
		warnings = append(warnings, stats.WarningZeroVariance)
	}

	medX, _ := descriptive.Median(xs)
	medY, _ := descriptive.Median(ys)

	return &MannWhitneyResult{
		Metrics: stats.TestMetrics{
			Statistic:  core.JSONFloat(u),
			PValue:     p,
			EffectSize: core.JSONFloat(rankBiserial(u, n1, n2)),
			EffectUnit: "r_rb",
			SampleSize: n1 + n2,
			Exact:      exact,
			Test:       stats.TestMannWhitney,
		},
		MedianX:  medX,
		MedianY:  medY,
		N1:       n1,
		N2:       n2,
		Warnings: warnings,
	}, nil
}

func altHypothesis(alt stats.Alternative) moremath.LocationHypothesis {
	switch alt {
	case stats.Greater:
		return moremath.LocationGreater
	case stats.Less:
		return moremath.LocationLess
	default:
		return moremath.LocationDiffers
	}
}

// usedExactDistribution mirrors the sample-size cutoffs the U test applies
// when it picks between the exact distribution and the normal approximation.
func usedExactDistribution(n1, n2 int, ties bool) bool {
	limit := moremath.MannWhitneyExactLimit
	if ties {
		limit = moremath.MannWhitneyTiesExactLimit
	}
	return n1 <= limit && n2 <= limit
}

// rankBiserial is the common-language effect for the U statistic. Positive
// values mean the first group tends to rank above the second.
func rankBiserial(u float64, n1, n2 int) float64 {
	pairs := float64(n1) * float64(n2)
	if pairs == 0 {
		return 0
	}
	return 2*u/pairs - 1
}

func allEqual(xs, ys []float64) bool {
	first := xs[0]
	for _, v := range xs {
		if v != first {
			return false
		}
	}
	for _, v := range ys {
		if v != first {
			return false
		}
	}
	return true
}

func hasTies(xs, ys []float64) bool {
	seen := make(map[float64]struct{}, len(xs)+len(ys))
	for _, v := range xs {
		if _, dup := seen[v]; dup {
			return true
		}
		seen[v] = struct{}{}
	}
	for _, v := range ys {
		if _, dup := seen[v]; dup {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}

func dropNaN(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	return clean
}
