package stats

import (
	"math"

	descriptive "github.com/montanaflynn/stats"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
)

// MedianSplit cuts a continuous column into High/Low at its median. Values
// at or above the median are High, mirroring the reference analysis. The
// split is degenerate when one side ends up empty (all values equal).
func MedianSplit(column core.ColumnKey, values []float64) ([]string, MedianSplitResult, error) {
	if len(values) == 0 {
		return nil, MedianSplitResult{}, core.ErrInsufficientData
	}

	median, err := descriptive.Median(values)
	if err != nil {
		return nil, MedianSplitResult{}, err
	}

	labels := make([]string, len(values))
	high, low := 0, 0
	for i, v := range values {
		if v >= median {
			labels[i] = GroupHigh
			high++
		} else {
			labels[i] = GroupLow
			low++
		}
	}

	result := MedianSplitResult{
		Column:     column,
		Median:     median,
		HighCount:  high,
		LowCount:   low,
		Degenerate: high == 0 || low == 0,
		ComputedAt: core.Now(),
	}
	return labels, result, nil
}

// FracBelow computes, for each requested drug, the fraction of viability
// measurements strictly below the threshold. Drugs with no measurements get
// a NaN fraction. Requested names are matched case-insensitively but echoed
// back as given.
func FracBelow(screen *cohort.DrugScreen, drugs []string, threshold float64) []DrugSensitivity {
	out := make([]DrugSensitivity, 0, len(drugs))
	for _, drug := range drugs {
		values := screen.ViabilityForDrug(drug)
		entry := DrugSensitivity{Drug: drug, Measurements: len(values)}
		if len(values) == 0 {
			entry.Fraction = core.JSONFloat(math.NaN())
		} else {
			below := 0
			for _, v := range values {
				if v < threshold {
					below++
				}
			}
			entry.Fraction = core.JSONFloat(below) / core.JSONFloat(len(values))
		}
		out = append(out, entry)
	}
	return out
}
