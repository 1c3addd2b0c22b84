package study

import (
	"context"
	"fmt"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
)

// Input is the shared view of the loaded data each stage consumes.
// CONTRACT: every stage consumes an Input and produces an Output; stages
// never mutate the cohort or reach back into the source.
type Input struct {
	RunID   core.RunID
	Cohort  *cohort.Cohort
	Screen  *cohort.DrugScreen       // nil when the drug screen is absent
	Missing *stats.MissingnessReport // computed by the source during load
	Params  Params
}

// Output is what a stage hands back: ledger artifacts plus the typed
// payloads the report consumes directly. A stage fills only its own fields.
type Output struct {
	Artifacts []core.Artifact
	Skips     map[string]int
	Warnings  []string

	Missingness *stats.MissingnessReport
	Profiles    []stats.ColumnProfile
	Survival    *stats.SurvivalAssociation
	Pathway     *stats.PathwayComparison
	Drugs       *stats.DrugResponse
}

// Skip counts one skipped unit of work under a reason key
func (o *Output) Skip(reason string) {
	if o.Skips == nil {
		o.Skips = make(map[string]int)
	}
	o.Skips[reason]++
}

// Warn appends a stage-level warning
func (o *Output) Warn(format string, args ...interface{}) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

// Stage is one unit of the study pipeline
type Stage interface {
	Name() StageName
	Run(ctx context.Context, in *Input) (*Output, error)
}
