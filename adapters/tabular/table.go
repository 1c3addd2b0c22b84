package tabular

import (
	"math"
	"strconv"

	"her2lab/domain/cohort"
)

// RawRow is one data row keyed by snake_cased column name. Every row in a
// RawTable carries every header key; absent cells hold the empty string.
type RawRow map[string]string

// RawTable is a loaded tabular file before any cleaning. CSV and workbook
// sources both land here, so the cleaning pipeline never cares which
// format the file came in.
type RawTable struct {
	Path    string
	Headers []string
	Rows    []RawRow
}

// Len returns the number of data rows
func (t *RawTable) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether a snake_cased column name is present
func (t *RawTable) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Column returns one column as raw strings, ordered by row
func (t *RawTable) Column(name string) []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[name]
	}
	return out
}

// FloatColumn returns one column coerced to float64. Missing and
// unparseable cells become NaN so row indexes stay aligned with the table.
func (t *RawTable) FloatColumn(name string) []float64 {
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, ok := ParseFloat(row[name])
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// ParseFloat parses one cell as a float. The second return is false for
// missing cells and anything strconv cannot parse.
func ParseFloat(raw string) (float64, bool) {
	if cohort.IsMissingCell(raw) {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
