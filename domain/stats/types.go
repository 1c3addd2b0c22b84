package stats

import (
	"fmt"
	"math"

	"her2lab/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// TestType identifies which significance test produced a result
type TestType string

const (
	TestMannWhitney TestType = "mann_whitney"
	TestChiSquare   TestType = "chisquare"
	TestFisherExact TestType = "fisher_exact"
)

// Alternative is the alternative hypothesis of a rank test
type Alternative string

const (
	TwoSided Alternative = "two_sided"
	Greater  Alternative = "greater"
	Less     Alternative = "less"
)

// ParseAlternative accepts the common spellings of the three alternatives
func ParseAlternative(s string) (Alternative, error) {
	switch s {
	case "two_sided", "two-sided", "twosided", "":
		return TwoSided, nil
	case "greater":
		return Greater, nil
	case "less":
		return Less, nil
	}
	return "", fmt.Errorf("unknown alternative %q", s)
}

// TestMetrics contains the statistical results that are always comparable.
// INVARIANTS:
// - SampleSize (N) always present and > 0
// - PValue always present (0.0 to 1.0)
// - EffectSize standardized or EffectUnit declared
type TestMetrics struct {
	Statistic  core.JSONFloat `json:"statistic"`             // U, chi-square, odds ratio
	PValue     float64        `json:"p_value"`               // Uncorrected p-value (0.0 to 1.0)
	EffectSize core.JSONFloat `json:"effect_size"`           // Standardized effect
	EffectUnit string         `json:"effect_unit,omitempty"` // e.g., "V", "OR", "r_rb"
	SampleSize int            `json:"sample_size"`           // N used in the test (> 0)
	DF         int            `json:"df,omitempty"`          // Degrees of freedom where defined
	Exact      bool           `json:"exact"`                 // Exact p-value vs. approximation
	Test       TestType       `json:"test"`
}

// Validate checks the canonical invariants
func (m *TestMetrics) Validate() error {
	if m.SampleSize <= 0 {
		return core.NewValidationError("sample_size", "must be positive")
	}
	if math.IsNaN(m.PValue) || m.PValue < 0 || m.PValue > 1 {
		return core.NewValidationError("p_value", fmt.Sprintf("outside [0,1]: %v", m.PValue))
	}
	if m.Test == "" {
		return core.NewValidationError("test", "cannot be empty")
	}
	return nil
}

// WarningCode represents structured warning types
type WarningCode string

const (
	WarningLowN            WarningCode = "LOW_N"                 // Tested group size < 30
	WarningHighMissing     WarningCode = "HIGH_MISSING"          // >30% missing in a column
	WarningZeroVariance    WarningCode = "ZERO_VARIANCE"         // Near-zero variance detected
	WarningSmallExpected   WarningCode = "SMALL_EXPECTED_COUNTS" // Expected cell count < 5
	WarningDegenerateSplit WarningCode = "DEGENERATE_SPLIT"      // Median cut left one side empty
	WarningEmptyGroup      WarningCode = "EMPTY_GROUP"           // A comparison arm has no values
)

// ============================================================================
// STAGE ARTIFACT PAYLOADS
// ============================================================================

// MedianSplitResult records the High/Low cut applied to the signal
type MedianSplitResult struct {
	Column     core.ColumnKey `json:"column"`
	Median     float64        `json:"median"`
	HighCount  int            `json:"high_count"`
	LowCount   int            `json:"low_count"`
	Degenerate bool           `json:"degenerate"`
	ComputedAt core.Timestamp `json:"computed_at"`
}

// ToArtifact wraps the result for the ledger
func (r MedianSplitResult) ToArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactMedianSplit,
		Payload:   r,
		CreatedAt: core.Now(),
	}
}

// SurvivalAssociation carries the contingency table plus both association
// tests over the High/Low signal group and vital status.
type SurvivalAssociation struct {
	Table      ContingencyTable  `json:"table"` // rows High/Low, cols alive/deceased
	Split      MedianSplitResult `json:"split"`
	ChiSquare  TestMetrics       `json:"chi_square"`
	Fisher     TestMetrics       `json:"fisher"`
	OddsRatio  core.JSONFloat    `json:"odds_ratio"` // odds of death, High over Low
	ORLow      float64           `json:"or_ci_low,omitempty"`
	ORHigh     float64           `json:"or_ci_high,omitempty"`
	HasORCI    bool              `json:"has_or_ci"`
	CramersV   float64           `json:"cramers_v"`
	ChosenTest TestType          `json:"chosen_test"`
	ChoiceWhy  string            `json:"choice_why"`
	Warnings   []WarningCode     `json:"warnings,omitempty"`
	ComputedAt core.Timestamp    `json:"computed_at"`
}

// ToArtifact wraps the association for the ledger
func (a SurvivalAssociation) ToArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactSurvivalAssociation,
		Payload:   a,
		CreatedAt: core.Now(),
	}
}

// PathwayComparison carries the Positive-vs-Negative signal rank test
type PathwayComparison struct {
	Metrics        TestMetrics    `json:"metrics"`
	Alternative    Alternative    `json:"alternative"`
	MedianPositive float64        `json:"median_positive"`
	MedianNegative float64        `json:"median_negative"`
	NPositive      int            `json:"n_positive"`
	NNegative      int            `json:"n_negative"`
	Warnings       []WarningCode  `json:"warnings,omitempty"`
	ComputedAt     core.Timestamp `json:"computed_at"`
}

// ToArtifact wraps the comparison for the ledger
func (p PathwayComparison) ToArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactPathwayComparison,
		Payload:   p,
		CreatedAt: core.Now(),
	}
}

// DrugSensitivity is one drug's sensitive fraction (viability < threshold)
type DrugSensitivity struct {
	Drug         string         `json:"drug"`
	Fraction     core.JSONFloat `json:"fraction"` // NaN when the drug has no measurements
	Measurements int            `json:"measurements"`
}

// DrugResponse carries sensitive fractions and the targeted-vs-comparator
// viability rank test.
type DrugResponse struct {
	Threshold   float64           `json:"threshold"`
	Fractions   []DrugSensitivity `json:"fractions"`
	Targeted    []string          `json:"targeted"`
	Comparators []string          `json:"comparators"`
	Metrics     TestMetrics       `json:"metrics"`
	Alternative Alternative       `json:"alternative"`
	NTargeted   int               `json:"n_targeted"`
	NComparator int               `json:"n_comparator"`
	Warnings    []WarningCode     `json:"warnings,omitempty"`
	ComputedAt  core.Timestamp    `json:"computed_at"`
}

// ToArtifact wraps the response analysis for the ledger
func (d DrugResponse) ToArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactDrugResponse,
		Payload:   d,
		CreatedAt: core.Now(),
	}
}

// ColumnProfile is one column's descriptive summary
type ColumnProfile struct {
	Column      core.ColumnKey `json:"column"`
	Type        string         `json:"type"` // numeric, categorical, binary
	N           int            `json:"n"`
	Missing     int            `json:"missing"`
	MissingRate float64        `json:"missing_rate"`

	// Numeric summaries (NaN when not applicable, encoded as null)
	Mean   core.JSONFloat `json:"mean"`
	StdDev core.JSONFloat `json:"std_dev"`
	Min    core.JSONFloat `json:"min"`
	Q1     core.JSONFloat `json:"q1"`
	Median core.JSONFloat `json:"median"`
	Q3     core.JSONFloat `json:"q3"`
	Max    core.JSONFloat `json:"max"`

	// Categorical summaries
	Levels map[string]int `json:"levels,omitempty"`

	Warnings []WarningCode `json:"warnings,omitempty"`
}

// ToArtifact wraps the profile for the ledger
func (p ColumnProfile) ToArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactColumnProfile,
		Payload:   p,
		CreatedAt: core.Now(),
	}
}

// MissingnessRow is one column's entry in the data-quality report
type MissingnessRow struct {
	Column   string  `json:"column"`
	NullPct  float64 `json:"null_pct"` // fraction in [0,1], rounded to 3 decimals
	NUnique  int     `json:"n_unique"`
	Example  string  `json:"example,omitempty"`
	HasValue bool    `json:"has_value"` // false when the column is entirely missing
}

// MissingnessReport is the per-column data-quality table, worst first
type MissingnessReport struct {
	Rows       []MissingnessRow `json:"rows"`
	TotalRows  int              `json:"total_rows"`
	ComputedAt core.Timestamp   `json:"computed_at"`
}

// ToArtifact wraps the report for the ledger
func (m MissingnessReport) ToArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactMissingness,
		Payload:   m,
		CreatedAt: core.Now(),
	}
}
