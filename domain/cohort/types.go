package cohort

import (
	"fmt"
	"math"
	"sort"

	"her2lab/domain/core"
)

// HER2Status is the cleaned IHC status label. After cleaning only the two
// canonical labels survive; everything else is dropped at build time.
type HER2Status string

const (
	StatusPositive HER2Status = "Positive"
	StatusNegative HER2Status = "Negative"
)

// StatisticalType defines column types for profiling
type StatisticalType string

const (
	TypeNumeric     StatisticalType = "numeric"
	TypeCategorical StatisticalType = "categorical"
	TypeBinary      StatisticalType = "binary"
)

// Vital status codes after encoding. VitalUnknown marks rows whose cell
// was missing in the source.
const (
	VitalAlive    = 0
	VitalDeceased = 1
	VitalUnknown  = -1
)

// Cohort is the cleaned clinical table: one row per tumor, columns stored as
// parallel slices. It is the single input to the survival and pathway stages.
type Cohort struct {
	// SignalColumn is the resolved pathway signal column key
	SignalColumn core.ColumnKey

	// Required columns (always populated)
	HER2   []HER2Status
	Signal []float64
	H      []int // 1 for HER2-positive tumors, 0 otherwise

	// Optional clinical columns (populated only when present in the source)
	ERStatus    []string
	PRStatus    []string
	VitalStatus []int
	Histology   []string

	HasER        bool
	HasPR        bool
	HasVital     bool
	HasHistology bool
}

// Len returns the number of tumors
func (c *Cohort) Len() int {
	return len(c.HER2)
}

// Validate ensures the cohort is internally consistent
func (c *Cohort) Validate() error {
	n := c.Len()
	if n == 0 {
		return core.ErrInsufficientData
	}
	if c.SignalColumn.String() == "" {
		return core.NewValidationError("signal_column", "cannot be empty")
	}
	if len(c.Signal) != n {
		return core.NewValidationError("signal", lengthMismatch(len(c.Signal), n))
	}
	if len(c.H) != n {
		return core.NewValidationError("h_indicator", lengthMismatch(len(c.H), n))
	}
	for i, v := range c.Signal {
		if math.IsNaN(v) {
			return core.NewValidationError("signal", fmt.Sprintf("row %d is NaN after cleaning", i))
		}
	}

	optional := []struct {
		name    string
		present bool
		length  int
	}{
		{"er_status", c.HasER, len(c.ERStatus)},
		{"pr_status", c.HasPR, len(c.PRStatus)},
		{"vital_status", c.HasVital, len(c.VitalStatus)},
		{"histological_type", c.HasHistology, len(c.Histology)},
	}
	for _, col := range optional {
		if col.present && col.length != n {
			return core.NewValidationError(col.name, lengthMismatch(col.length, n))
		}
	}
	return nil
}

func lengthMismatch(got, want int) string {
	return fmt.Sprintf("length %d does not match row count %d", got, want)
}

// SurvivalRows returns the signal and encoded vital status of rows with a
// known vital status. Returns empty slices when the column is absent.
func (c *Cohort) SurvivalRows() (signal []float64, vital []int) {
	if !c.HasVital {
		return nil, nil
	}
	for i, v := range c.VitalStatus {
		if v == VitalUnknown {
			continue
		}
		signal = append(signal, c.Signal[i])
		vital = append(vital, v)
	}
	return signal, vital
}

// SignalByStatus returns the signal values for one IHC status arm
func (c *Cohort) SignalByStatus(status HER2Status) []float64 {
	var out []float64
	for i, s := range c.HER2 {
		if s == status {
			out = append(out, c.Signal[i])
		}
	}
	return out
}

// ColumnKeys lists the cohort's materialized columns for fingerprinting
func (c *Cohort) ColumnKeys() []core.ColumnKey {
	keys := []core.ColumnKey{"her2_final_status", c.SignalColumn, "h"}
	if c.HasER {
		keys = append(keys, "er_status")
	}
	if c.HasPR {
		keys = append(keys, "pr_status")
	}
	if c.HasVital {
		keys = append(keys, "vital_status")
	}
	if c.HasHistology {
		keys = append(keys, "histological_type")
	}
	return keys
}

// Fingerprint hashes the cohort shape for run manifests
func (c *Cohort) Fingerprint() core.CohortHash {
	return core.ComputeCohortHash(c.ColumnKeys(), c.Len(), c.SignalColumn)
}

// CountByStatus returns the number of tumors per IHC status
func (c *Cohort) CountByStatus() map[HER2Status]int {
	counts := make(map[HER2Status]int, 2)
	for _, s := range c.HER2 {
		counts[s]++
	}
	return counts
}

// DrugScreen is the cleaned drug-sensitivity table: one row per measurement.
// Drug names are lowercased at build time so lookups are case-insensitive.
type DrugScreen struct {
	Drug      []string
	Viability []float64

	// Optional columns
	CosmicID []string
	Dose     []float64

	HasCosmic bool
	HasDose   bool
}

// Len returns the number of measurements
func (s *DrugScreen) Len() int {
	return len(s.Drug)
}

// Validate ensures the screen is internally consistent
func (s *DrugScreen) Validate() error {
	n := s.Len()
	if n == 0 {
		return core.ErrInsufficientData
	}
	if len(s.Viability) != n {
		return core.NewValidationError("viability", lengthMismatch(len(s.Viability), n))
	}
	if s.HasCosmic && len(s.CosmicID) != n {
		return core.NewValidationError("cosmic_id", lengthMismatch(len(s.CosmicID), n))
	}
	if s.HasDose && len(s.Dose) != n {
		return core.NewValidationError("dose", lengthMismatch(len(s.Dose), n))
	}
	for i, v := range s.Viability {
		if v < 0 || v > 200 {
			return core.NewValidationError("viability", fmt.Sprintf("row %d outside [0,200]: %v", i, v))
		}
	}
	return nil
}

// Drugs returns the distinct drug names, sorted
func (s *DrugScreen) Drugs() []string {
	seen := make(map[string]bool)
	for _, d := range s.Drug {
		seen[d] = true
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ViabilityForDrug returns all viability measurements for one drug.
// The name is matched case-insensitively against the normalized names.
func (s *DrugScreen) ViabilityForDrug(name string) []float64 {
	name = NormalizeDrugName(name)
	var out []float64
	for i, d := range s.Drug {
		if d == name {
			out = append(out, s.Viability[i])
		}
	}
	return out
}

// MeasurementsForDrug returns paired (dose, viability) values for one drug.
// Returns nil doses when the screen carries no dose column.
func (s *DrugScreen) MeasurementsForDrug(name string) (doses, viability []float64) {
	name = NormalizeDrugName(name)
	for i, d := range s.Drug {
		if d != name {
			continue
		}
		viability = append(viability, s.Viability[i])
		if s.HasDose {
			doses = append(doses, s.Dose[i])
		}
	}
	return doses, viability
}

// MeasurementCounts returns the number of measurements per drug
func (s *DrugScreen) MeasurementCounts() map[string]int {
	counts := make(map[string]int)
	for _, d := range s.Drug {
		counts[d]++
	}
	return counts
}
