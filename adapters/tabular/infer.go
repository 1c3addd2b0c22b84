package tabular

import (
	"math"
	"strconv"
	"strings"

	"her2lab/domain/cohort"
)

const (
	// inferSampleCap bounds how many rows type inference inspects
	inferSampleCap = 500

	// numericParseRate is the fraction of sampled non-missing cells that
	// must parse as floats for a column to count as numeric
	numericParseRate = 0.8
)

// InferColumnType classifies a column as numeric, binary, or categorical
// for profiling. Exactly two distinct values means binary regardless of
// spelling, so 0/1 flags and alive/dead labels land in the same bucket.
func InferColumnType(table *RawTable, column string) cohort.StatisticalType {
	indices := stratifiedSample(table.Len(), inferSampleCap)

	distinct := make(map[string]struct{})
	parsed, valid := 0, 0
	for _, idx := range indices {
		raw := table.Rows[idx][column]
		if cohort.IsMissingCell(raw) {
			continue
		}
		valid++
		distinct[strings.ToLower(raw)] = struct{}{}
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			parsed++
		}
	}

	if valid == 0 {
		return cohort.TypeCategorical
	}
	if len(distinct) == 2 {
		return cohort.TypeBinary
	}
	if float64(parsed)/float64(valid) >= numericParseRate {
		return cohort.TypeNumeric
	}
	return cohort.TypeCategorical
}

// stratifiedSample returns up to limit evenly spaced row indices, so a
// sorted export cannot skew inference toward the values at its head.
func stratifiedSample(total, limit int) []int {
	if total <= limit {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	indices := make([]int, 0, limit)
	step := float64(total) / float64(limit)
	for i := 0; i < limit; i++ {
		idx := int(math.Round(float64(i) * step))
		if idx < total {
			indices = append(indices, idx)
		}
	}
	return indices
}
