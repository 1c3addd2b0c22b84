package testkit

import (
	"encoding/csv"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

// GeneratorConfig shapes the synthetic dataset. Defaults mirror the real
// cohort: HER2-positive tumors carry the higher phospho-signal, mortality
// rises with the signal, and the targeted agent suppresses viability.
type GeneratorConfig struct {
	Patients           int     `json:"patients"`
	PositiveRate       float64 `json:"positive_rate"`
	PositiveSignalMean float64 `json:"positive_signal_mean"`
	NegativeSignalMean float64 `json:"negative_signal_mean"`
	SignalStdDev       float64 `json:"signal_std_dev"`
	BaseDeathRate      float64 `json:"base_death_rate"`
	SignalDeathBoost   float64 `json:"signal_death_boost"`
	MissingVitalRate   float64 `json:"missing_vital_rate"`
	EquivocalRate      float64 `json:"equivocal_rate"`
	MissingSignalRate  float64 `json:"missing_signal_rate"`

	Drugs               []string  `json:"drugs"`
	TargetedDrug        string    `json:"targeted_drug"`
	TargetedViability   float64   `json:"targeted_viability"`
	ComparatorViability float64   `json:"comparator_viability"`
	ViabilityStdDev     float64   `json:"viability_std_dev"`
	DoseSlope           float64   `json:"dose_slope"`
	Doses               []float64 `json:"doses"`
	MeasurementsPerDose int       `json:"measurements_per_dose"`

	Seed int64 `json:"seed"`
}

// DefaultGeneratorConfig returns a cohort large enough for every stage to
// run without LOW_N noise dominating
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Patients:           120,
		PositiveRate:       0.35,
		PositiveSignalMean: 1.1,
		NegativeSignalMean: -0.2,
		SignalStdDev:       0.55,
		BaseDeathRate:      0.18,
		SignalDeathBoost:   0.22,
		MissingVitalRate:   0.05,
		EquivocalRate:      0.03,
		MissingSignalRate:  0.03,

		Drugs:               []string{"Lapatinib", "Erlotinib", "Gefitinib", "Sunitinib", "Paclitaxel"},
		TargetedDrug:        "Lapatinib",
		TargetedViability:   48,
		ComparatorViability: 82,
		ViabilityStdDev:     14,
		DoseSlope:           6,
		Doses:               []float64{0.5, 1, 2},
		MeasurementsPerDose: 8,

		Seed: 42,
	}
}

// CohortGenerator produces raw CSV tables in the shape of the real dataset
// exports, so the fixtures run through the same cleaning pipeline as real
// data. Each table derives its own stream from the seed, so the order of
// generation calls does not matter.
type CohortGenerator struct {
	config GeneratorConfig
}

// NewCohortGenerator creates a generator over a config
func NewCohortGenerator(config GeneratorConfig) *CohortGenerator {
	return &CohortGenerator{config: config}
}

// MutationRows generates the clinical table, header row first. A small
// share of rows carries an Equivocal status, a missing signal, or a blank
// vital status to exercise the cleaning path.
func (g *CohortGenerator) MutationRows() [][]string {
	rng := rand.New(rand.NewSource(g.config.Seed))

	rows := [][]string{{
		"Tumor ID", "HER2 Final Status", "PP.HER2",
		"ER Status", "PR Status", "Vital Status", "Histological Type",
	}}

	for i := 0; i < g.config.Patients; i++ {
		id := fmt.Sprintf("T-%04d", i+1)

		status := "Negative"
		mean := g.config.NegativeSignalMean
		if rng.Float64() < g.config.PositiveRate {
			status = "Positive"
			mean = g.config.PositiveSignalMean
		}
		signalValue := mean + rng.NormFloat64()*g.config.SignalStdDev
		signal := strconv.FormatFloat(signalValue, 'f', 4, 64)

		if rng.Float64() < g.config.EquivocalRate {
			status = "Equivocal"
		}
		if rng.Float64() < g.config.MissingSignalRate {
			signal = "NA"
		}

		// Mortality tracks the signal, not the IHC label, so the median
		// split has an association to find
		deathRate := g.config.BaseDeathRate
		if signalValue >= (g.config.PositiveSignalMean+g.config.NegativeSignalMean)/2 {
			deathRate += g.config.SignalDeathBoost
		}
		vital := "Alive"
		if rng.Float64() < deathRate {
			vital = "DECEASED"
		}
		if rng.Float64() < g.config.MissingVitalRate {
			vital = ""
		}

		er := "Negative"
		if rng.Float64() < 0.6 {
			er = "Positive"
		}
		pr := "Negative"
		prPositiveRate := 0.3
		if er == "Positive" {
			prPositiveRate = 0.7
		}
		if rng.Float64() < prPositiveRate {
			pr = "Positive"
		}

		histology := "Infiltrating Ductal Carcinoma"
		if rng.Float64() < 0.15 {
			histology = "Infiltrating Lobular Carcinoma"
		}

		rows = append(rows, []string{id, status, signal, er, pr, vital, histology})
	}
	return rows
}

// ScreenRows generates the drug sensitivity table, header row first.
// The targeted agent sits well below the comparators and responds to dose.
func (g *CohortGenerator) ScreenRows() [][]string {
	rng := rand.New(rand.NewSource(g.config.Seed + 1))

	rows := [][]string{{"Drug name", "Cosmic ID", "Dose", "Viability"}}

	for d, drug := range g.config.Drugs {
		base := g.config.ComparatorViability
		slope := g.config.DoseSlope
		if drug == g.config.TargetedDrug {
			base = g.config.TargetedViability
			slope = g.config.DoseSlope * 2
		}
		for _, dose := range g.config.Doses {
			for m := 0; m < g.config.MeasurementsPerDose; m++ {
				viability := base - slope*dose + rng.NormFloat64()*g.config.ViabilityStdDev
				if viability < 0 {
					viability = 0
				}
				cosmic := strconv.Itoa(900000 + d*1000 + m)
				rows = append(rows, []string{
					drug,
					cosmic,
					strconv.FormatFloat(dose, 'f', 2, 64),
					strconv.FormatFloat(viability, 'f', 2, 64),
				})
			}
		}
	}
	return rows
}

// WriteFixtures writes mutations.csv and drug-sensitivity.csv under dir,
// creating it if needed
func (g *CohortGenerator) WriteFixtures(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create fixture dir: %w", err)
	}

	mutations := g.MutationRows()
	if err := writeCSV(filepath.Join(dir, "mutations.csv"), mutations); err != nil {
		return err
	}
	screen := g.ScreenRows()
	if err := writeCSV(filepath.Join(dir, "drug-sensitivity.csv"), screen); err != nil {
		return err
	}

	log.Printf("[CohortGenerator] Wrote %d patients and %d screen rows under %s",
		len(mutations)-1, len(screen)-1, dir)
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
