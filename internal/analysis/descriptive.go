package analysis

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// ComputationError represents an error during statistical computation
type ComputationError struct {
	Message string
	Cause   error
}

func (e *ComputationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ComputationError) Unwrap() error {
	return e.Cause
}

// Summary holds descriptive statistics for one numeric column
type Summary struct {
	N       int
	Missing int
	Mean    float64
	StdDev  float64
	Min     float64
	Q1      float64
	Median  float64
	Q3      float64
	Max     float64
}

// MissingRate returns the fraction of missing values
func (s Summary) MissingRate() float64 {
	total := s.N + s.Missing
	if total == 0 {
		return 0
	}
	return float64(s.Missing) / float64(total)
}

// Describe computes descriptive statistics over a column, treating NaN
// entries as missing. An all-missing column yields NaN summaries rather
// than an error so profiling never aborts a study.
func Describe(values []float64) (Summary, error) {
	clean := make([]float64, 0, len(values))
	missing := 0
	for _, v := range values {
		if math.IsNaN(v) {
			missing++
			continue
		}
		clean = append(clean, v)
	}

	summary := Summary{N: len(clean), Missing: missing}
	if len(clean) == 0 {
		nan := math.NaN()
		summary.Mean, summary.StdDev = nan, nan
		summary.Min, summary.Q1, summary.Median, summary.Q3, summary.Max = nan, nan, nan, nan, nan
		return summary, nil
	}

	var err error
	if summary.Mean, err = stats.Mean(clean); err != nil {
		return summary, &ComputationError{Message: "mean computation failed", Cause: err}
	}
	if summary.StdDev, err = stats.StandardDeviation(clean); err != nil {
		return summary, &ComputationError{Message: "stddev computation failed", Cause: err}
	}
	if summary.Min, err = stats.Min(clean); err != nil {
		return summary, &ComputationError{Message: "min computation failed", Cause: err}
	}
	if summary.Max, err = stats.Max(clean); err != nil {
		return summary, &ComputationError{Message: "max computation failed", Cause: err}
	}
	if summary.Median, err = stats.Median(clean); err != nil {
		return summary, &ComputationError{Message: "median computation failed", Cause: err}
	}

	// Quartiles need at least a few points to be meaningful
	if len(clean) >= 4 {
		if summary.Q1, err = stats.Percentile(clean, 25); err != nil {
			return summary, &ComputationError{Message: "q1 computation failed", Cause: err}
		}
		if summary.Q3, err = stats.Percentile(clean, 75); err != nil {
			return summary, &ComputationError{Message: "q3 computation failed", Cause: err}
		}
	} else {
		summary.Q1 = summary.Min
		summary.Q3 = summary.Max
	}

	return summary, nil
}

// ZeroVariance reports whether a column has (near) zero variance
func ZeroVariance(values []float64) bool {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) < 2 {
		return true
	}

	variance, err := stats.Variance(clean)
	if err != nil {
		return true
	}
	return variance < 1e-10
}
