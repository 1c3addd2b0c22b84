package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticalDistributions provides probability distribution calculations
// for the significance tests.
type StatisticalDistributions struct{}

// NewStatisticalDistributions creates a new distributions calculator
func NewStatisticalDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

// ChiSquarePValue computes the upper-tail p-value for a chi-square statistic
func (sd *StatisticalDistributions) ChiSquarePValue(chiSquare float64, df int) float64 {
	if df <= 0 || chiSquare < 0 {
		return 1.0
	}

	chiDist := distuv.ChiSquared{K: float64(df)}
	pValue := 1 - chiDist.CDF(chiSquare)

	// Clamp to valid range
	return math.Max(0, math.Min(1, pValue))
}

// NormalCDF computes the cumulative distribution function of the standard normal
func (sd *StatisticalDistributions) NormalCDF(x float64) float64 {
	normal := distuv.UnitNormal
	return normal.CDF(x)
}

// NormalQuantile computes the inverse CDF of the standard normal
func (sd *StatisticalDistributions) NormalQuantile(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	normal := distuv.UnitNormal
	return normal.Quantile(p)
}
