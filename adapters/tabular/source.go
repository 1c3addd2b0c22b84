// Package tabular loads the study's data files. CSV and Excel sources are
// normalized into one raw table shape, then the cohort cleaning pipeline
// turns raw rows into the typed clinical cohort and drug screen the stages
// consume.
package tabular

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
)

// Data file base names resolved inside the data directory, tried with
// .csv first, then .xlsx.
const (
	mutationsBase = "mutations"
	screenBase    = "drug-sensitivity"
)

// SourceConfig tunes the cleaning pipeline applied on load
type SourceConfig struct {
	// SignalPreference is the ordered signal column preference.
	// Empty falls back to the package default.
	SignalPreference []string

	// MinDose drops screen rows dosed below it. KeepZeroDose decides
	// whether rows dosed exactly at MinDose survive.
	MinDose      float64
	KeepZeroDose bool
}

// DefaultSourceConfig returns the reference pipeline defaults
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		SignalPreference: cohort.DefaultSignalPreference,
		MinDose:          0,
		KeepZeroDose:     true,
	}
}

// FileCohortSource loads and cleans the clinical cohort and drug screen
// from a data directory. The raw clinical table is read once and shared
// between the cohort build and the missingness report.
type FileCohortSource struct {
	dataDir string
	config  SourceConfig

	mu        sync.Mutex
	mutations *RawTable
}

// NewFileCohortSource creates a source over one data directory
func NewFileCohortSource(dataDir string, config SourceConfig) *FileCohortSource {
	return &FileCohortSource{dataDir: dataDir, config: config}
}

// resolveTable finds base.csv or base.xlsx under the data directory
func (s *FileCohortSource) resolveTable(base string) (string, error) {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(s.dataDir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s.csv or %s.xlsx under %s", base, base, s.dataDir)
}

func (s *FileCohortSource) loadMutations() (*RawTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutations != nil {
		return s.mutations, nil
	}

	path, err := s.resolveTable(mutationsBase)
	if err != nil {
		return nil, err
	}
	table, err := NewTableReader(path).Read()
	if err != nil {
		return nil, err
	}
	s.mutations = table
	return table, nil
}

// LoadCohort reads and cleans the clinical table
func (s *FileCohortSource) LoadCohort(ctx context.Context) (*cohort.Cohort, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := s.loadMutations()
	if err != nil {
		return nil, err
	}
	return BuildCohort(table, s.config.SignalPreference)
}

// LoadDrugScreen reads and cleans the drug sensitivity table. A missing
// screen file is not an error; EDA over the clinical table alone is still
// a valid study.
func (s *FileCohortSource) LoadDrugScreen(ctx context.Context) (*cohort.DrugScreen, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolveTable(screenBase)
	if err != nil {
		log.Printf("[CohortSource] No drug screen under %s, response analysis will be skipped", s.dataDir)
		return nil, nil
	}
	table, err := NewTableReader(path).Read()
	if err != nil {
		return nil, err
	}
	return BuildDrugScreen(table, s.config.MinDose, s.config.KeepZeroDose)
}

// Missingness reports per-column data quality over the raw clinical table
func (s *FileCohortSource) Missingness(ctx context.Context) (*stats.MissingnessReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := s.loadMutations()
	if err != nil {
		return nil, err
	}
	return BuildMissingness(table, 0), nil
}

// BuildCohort runs the clinical cleaning pipeline over a raw table.
// Column resolution and vital encoding happen before row filtering, so
// errors report positions in the source file rather than in the filtered
// view.
func BuildCohort(table *RawTable, preference []string) (*cohort.Cohort, error) {
	signalCol, err := cohort.ResolveSignalColumn(table.Headers, preference)
	if err != nil {
		return nil, err
	}
	her2Col, err := cohort.ResolveHER2Column(table.Headers)
	if err != nil {
		return nil, err
	}

	c := &cohort.Cohort{
		SignalColumn: signalCol,
		HasER:        table.HasColumn("er_status"),
		HasPR:        table.HasColumn("pr_status"),
		HasVital:     table.HasColumn("vital_status"),
		HasHistology: table.HasColumn("histological_type"),
	}

	var vital []int
	if c.HasVital {
		vital, err = cohort.EncodeVitalColumn(table.Column("vital_status"))
		if err != nil {
			return nil, err
		}
	}
	signal := table.FloatColumn(signalCol.String())

	dropped := 0
	for i, row := range table.Rows {
		rawStatus := row[her2Col]
		status := cohort.NormalizeStatus(rawStatus)
		if !cohort.IsCanonicalStatus(status) || math.IsNaN(signal[i]) {
			dropped++
			continue
		}

		c.HER2 = append(c.HER2, cohort.HER2Status(status))
		c.Signal = append(c.Signal, signal[i])
		c.H = append(c.H, cohort.HER2Indicator(rawStatus))
		if c.HasER {
			c.ERStatus = append(c.ERStatus, cohort.NormalizeStatus(row["er_status"]))
		}
		if c.HasPR {
			c.PRStatus = append(c.PRStatus, cohort.NormalizeStatus(row["pr_status"]))
		}
		if c.HasVital {
			c.VitalStatus = append(c.VitalStatus, vital[i])
		}
		if c.HasHistology {
			c.Histology = append(c.Histology, row["histological_type"])
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	log.Printf("[CohortSource] Cohort built: %d rows kept, %d dropped (signal column %s)",
		c.Len(), dropped, signalCol)
	return c, nil
}

// BuildDrugScreen runs the screen cleaning pipeline: normalized drug
// names, viability clipped into the assay range, under-dosed rows
// filtered out.
func BuildDrugScreen(table *RawTable, minDose float64, keepZeroDose bool) (*cohort.DrugScreen, error) {
	if !table.HasColumn("drug_name") || !table.HasColumn("viability") {
		return nil, core.NewColumnMissingError([]string{"drug_name", "viability"}, table.Headers)
	}

	screen := &cohort.DrugScreen{
		HasCosmic: table.HasColumn("cosmic_id"),
		HasDose:   table.HasColumn("dose"),
	}

	dropped := 0
	for _, row := range table.Rows {
		drug := cohort.NormalizeDrugName(row["drug_name"])
		if drug == "" || cohort.IsMissingCell(drug) {
			dropped++
			continue
		}
		viability, ok := ParseFloat(row["viability"])
		if !ok {
			dropped++
			continue
		}

		dose := math.NaN()
		if screen.HasDose {
			// missing and unparseable doses encode as -1
			d, ok := ParseFloat(row["dose"])
			if !ok {
				d = -1
			}
			if d < minDose || (!keepZeroDose && d == minDose) {
				dropped++
				continue
			}
			dose = d
		}

		screen.Drug = append(screen.Drug, drug)
		screen.Viability = append(screen.Viability, cohort.ClipViability(viability))
		if screen.HasDose {
			screen.Dose = append(screen.Dose, dose)
		}
		if screen.HasCosmic {
			screen.CosmicID = append(screen.CosmicID, row["cosmic_id"])
		}
	}

	if err := screen.Validate(); err != nil {
		return nil, err
	}
	log.Printf("[CohortSource] Drug screen built: %d measurements kept, %d dropped (%d drugs)",
		screen.Len(), dropped, len(screen.MeasurementCounts()))
	return screen, nil
}
