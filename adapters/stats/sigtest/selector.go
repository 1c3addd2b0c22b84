// Package sigtest implements the significance tests behind the study
// stages: the two-sample rank test, the chi-square test of independence,
// and the exact 2x2 test, plus the rule that picks between them for a
// given pair of variable types.
package sigtest

import (
	"fmt"

	"her2lab/domain/cohort"
	"her2lab/domain/stats"
)

// smallExpectedCutoff is the classic rule of thumb below which the
// chi-square approximation gets shaky on a 2x2 table.
const smallExpectedCutoff = 5.0

// Select picks the appropriate test for a pair of variable types. Numeric
// against binary goes to the rank test. Categorical pairs get the
// chi-square test, escalating to the exact test when the table is 2x2 and
// any expected cell count falls below five. The returned string explains
// the choice for the report.
func Select(x, y cohort.StatisticalType, table *stats.ContingencyTable) (stats.TestType, string, error) {
	if rankTestPair(x, y) {
		return stats.TestMannWhitney, "numeric signal across two groups", nil
	}

	if categorical(x) && categorical(y) {
		if table == nil {
			return "", "", fmt.Errorf("categorical pair %s vs %s needs a contingency table", x, y)
		}
		if err := table.Validate(); err != nil {
			return "", "", err
		}

		rows, cols := len(table.RowLabels), len(table.ColLabels)
		if !table.Is2x2() {
			return stats.TestChiSquare,
				fmt.Sprintf("%dx%d table, chi-square test of independence", rows, cols), nil
		}

		minExp := table.MinExpected()
		if minExp < smallExpectedCutoff {
			return stats.TestFisherExact,
				fmt.Sprintf("2x2 table with minimum expected count %.1f below %.0f, exact test",
					minExp, smallExpectedCutoff), nil
		}
		return stats.TestChiSquare,
			fmt.Sprintf("2x2 table with adequate expected counts (minimum %.1f)", minExp), nil
	}

	return "", "", fmt.Errorf("no test configured for %s vs %s", x, y)
}

// rankTestPair accepts numeric-vs-binary in either order
func rankTestPair(x, y cohort.StatisticalType) bool {
	return (x == cohort.TypeNumeric && y == cohort.TypeBinary) ||
		(x == cohort.TypeBinary && y == cohort.TypeNumeric)
}

// categorical treats binary as a two-level categorical
func categorical(t cohort.StatisticalType) bool {
	return t == cohort.TypeCategorical || t == cohort.TypeBinary
}
