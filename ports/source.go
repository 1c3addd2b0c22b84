package ports

import (
	"context"

	"her2lab/domain/cohort"
	"her2lab/domain/stats"
)

// CohortSourcePort loads the curated clinical cohort and its companion
// drug screen from whatever backs them (CSV, workbook, generated fixtures).
// Implementations perform the full cleaning pipeline, so callers only ever
// see canonical column keys and encoded statuses.
type CohortSourcePort interface {
	// LoadCohort reads and cleans the clinical table
	LoadCohort(ctx context.Context) (*cohort.Cohort, error)

	// LoadDrugScreen reads and cleans the drug sensitivity table.
	// Returns nil without error when no screen is configured.
	LoadDrugScreen(ctx context.Context) (*cohort.DrugScreen, error)

	// Missingness reports per-column data quality over the raw clinical
	// table, before any cleaning drops rows.
	Missingness(ctx context.Context) (*stats.MissingnessReport, error)
}
