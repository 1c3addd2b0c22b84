package tabular

import (
	"math"
	"sort"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
)

// BuildMissingness profiles per-column data quality over a raw table,
// before any cleaning drops rows. Columns are ordered worst first, ties
// broken by name; topN > 0 keeps only the worst N columns.
func BuildMissingness(table *RawTable, topN int) *stats.MissingnessReport {
	total := table.Len()
	rows := make([]stats.MissingnessRow, 0, len(table.Headers))

	for _, col := range table.Headers {
		nulls := 0
		distinct := make(map[string]struct{})
		example := ""
		hasValue := false

		for _, row := range table.Rows {
			raw := row[col]
			if cohort.IsMissingCell(raw) {
				nulls++
				continue
			}
			if !hasValue {
				example = raw
				hasValue = true
			}
			distinct[raw] = struct{}{}
		}

		pct := 0.0
		if total > 0 {
			pct = round3(float64(nulls) / float64(total))
		}
		rows = append(rows, stats.MissingnessRow{
			Column:   col,
			NullPct:  pct,
			NUnique:  len(distinct),
			Example:  example,
			HasValue: hasValue,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].NullPct != rows[j].NullPct {
			return rows[i].NullPct > rows[j].NullPct
		}
		return rows[i].Column < rows[j].Column
	})

	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}

	return &stats.MissingnessReport{
		Rows:       rows,
		TotalRows:  total,
		ComputedAt: core.Now(),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
