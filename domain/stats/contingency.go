package stats

import (
	"fmt"
	"sort"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
)

// Group labels produced by the median split
const (
	GroupHigh = "High"
	GroupLow  = "Low"
)

// Outcome labels for the survival table
const (
	OutcomeAlive    = "alive"
	OutcomeDeceased = "deceased"
)

// ContingencyTable is an r x c count table with named rows and columns
type ContingencyTable struct {
	RowLabels []string `json:"row_labels"`
	ColLabels []string `json:"col_labels"`
	Counts    [][]int  `json:"counts"`
}

// Validate ensures the table shape is consistent and counts are non-negative
func (t *ContingencyTable) Validate() error {
	if len(t.RowLabels) == 0 || len(t.ColLabels) == 0 {
		return core.NewValidationError("contingency_table", "needs at least one row and one column")
	}
	if len(t.Counts) != len(t.RowLabels) {
		return core.NewValidationError("counts", fmt.Sprintf("have %d rows, expected %d", len(t.Counts), len(t.RowLabels)))
	}
	for i, row := range t.Counts {
		if len(row) != len(t.ColLabels) {
			return core.NewValidationError("counts", fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), len(t.ColLabels)))
		}
		for j, v := range row {
			if v < 0 {
				return core.NewValidationError("counts", fmt.Sprintf("negative count at [%d][%d]", i, j))
			}
		}
	}
	return nil
}

// At returns the count at (row, col)
func (t *ContingencyTable) At(row, col int) int {
	return t.Counts[row][col]
}

// Total returns the grand total
func (t *ContingencyTable) Total() int {
	total := 0
	for _, row := range t.Counts {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// RowTotals returns the marginal totals per row
func (t *ContingencyTable) RowTotals() []int {
	totals := make([]int, len(t.Counts))
	for i, row := range t.Counts {
		for _, v := range row {
			totals[i] += v
		}
	}
	return totals
}

// ColTotals returns the marginal totals per column
func (t *ContingencyTable) ColTotals() []int {
	totals := make([]int, len(t.ColLabels))
	for _, row := range t.Counts {
		for j, v := range row {
			totals[j] += v
		}
	}
	return totals
}

// Expected returns the expected counts under independence: row*col/n
func (t *ContingencyTable) Expected() [][]float64 {
	rows := t.RowTotals()
	cols := t.ColTotals()
	n := float64(t.Total())

	expected := make([][]float64, len(rows))
	for i := range rows {
		expected[i] = make([]float64, len(cols))
		for j := range cols {
			if n > 0 {
				expected[i][j] = float64(rows[i]) * float64(cols[j]) / n
			}
		}
	}
	return expected
}

// MinExpected returns the smallest expected cell count
func (t *ContingencyTable) MinExpected() float64 {
	expected := t.Expected()
	min := -1.0
	for _, row := range expected {
		for _, v := range row {
			if min < 0 || v < min {
				min = v
			}
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

// Is2x2 reports whether the table is a 2x2
func (t *ContingencyTable) Is2x2() bool {
	return len(t.RowLabels) == 2 && len(t.ColLabels) == 2
}

// CrossTab builds an r x c table from two parallel label slices, with rows
// and columns in sorted label order.
func CrossTab(xs, ys []string) (*ContingencyTable, error) {
	if len(xs) != len(ys) {
		return nil, core.NewValidationError("crosstab", "label slices have different lengths")
	}
	if len(xs) == 0 {
		return nil, core.ErrEmptyTable
	}

	rowSet := make(map[string]bool)
	colSet := make(map[string]bool)
	for i := range xs {
		rowSet[xs[i]] = true
		colSet[ys[i]] = true
	}

	rows := sortedKeys(rowSet)
	cols := sortedKeys(colSet)
	rowIdx := indexOf(rows)
	colIdx := indexOf(cols)

	counts := make([][]int, len(rows))
	for i := range counts {
		counts[i] = make([]int, len(cols))
	}
	for i := range xs {
		counts[rowIdx[xs[i]]][colIdx[ys[i]]]++
	}

	return &ContingencyTable{RowLabels: rows, ColLabels: cols, Counts: counts}, nil
}

// NewSurvivalTable builds the fixed-orientation 2x2 for the survival
// analysis: rows High, Low; columns alive, deceased. Both outcome columns
// always exist, even when one never occurs in the data.
func NewSurvivalTable(groups []string, vital []int) (*ContingencyTable, error) {
	if len(groups) != len(vital) {
		return nil, core.NewValidationError("survival_table", "group and vital slices have different lengths")
	}
	if len(groups) == 0 {
		return nil, core.ErrEmptyTable
	}

	counts := [][]int{{0, 0}, {0, 0}}
	for i, g := range groups {
		var row int
		switch g {
		case GroupHigh:
			row = 0
		case GroupLow:
			row = 1
		default:
			return nil, core.NewValidationError("survival_table", fmt.Sprintf("unknown group label %q at row %d", g, i))
		}
		switch vital[i] {
		case cohort.VitalAlive:
			counts[row][0]++
		case cohort.VitalDeceased:
			counts[row][1]++
		default:
			return nil, core.NewValidationError("survival_table", fmt.Sprintf("vital code %d at row %d is neither alive nor deceased", vital[i], i))
		}
	}

	return &ContingencyTable{
		RowLabels: []string{GroupHigh, GroupLow},
		ColLabels: []string{OutcomeAlive, OutcomeDeceased},
		Counts:    counts,
	}, nil
}

// DeceasedFirst reorients the survival table for the odds-ratio convention:
// [[High-deceased, High-alive], [Low-deceased, Low-alive]]. The odds ratio
// of this table reads as odds of death in High over Low.
func (t *ContingencyTable) DeceasedFirst() *ContingencyTable {
	return &ContingencyTable{
		RowLabels: []string{GroupHigh, GroupLow},
		ColLabels: []string{OutcomeDeceased, OutcomeAlive},
		Counts: [][]int{
			{t.Counts[0][1], t.Counts[0][0]},
			{t.Counts[1][1], t.Counts[1][0]},
		},
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(labels []string) map[string]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}
