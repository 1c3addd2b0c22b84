package stages

import (
	"context"

	"her2lab/adapters/stats/sigtest"
	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
	"her2lab/domain/study"
)

// SurvivalStage tests whether a High pathway signal associates with vital
// status. The signal is cut at its median over the rows with a known
// status, then the High/Low group is crossed against alive/deceased.
type SurvivalStage struct{}

// NewSurvivalStage creates a new survival stage
func NewSurvivalStage() *SurvivalStage {
	return &SurvivalStage{}
}

// Name implements study.Stage
func (s *SurvivalStage) Name() study.StageName {
	return study.StageSurvival
}

// Run builds the 2x2 table and computes both association tests on it: the
// chi-square with the configured continuity correction, and Fisher's exact
// on the deceased-first orientation so the odds ratio reads as odds of
// death in High over Low. The selector's verdict records which test the
// table's expected counts support.
func (s *SurvivalStage) Run(ctx context.Context, in *study.Input) (*study.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &study.Output{}

	signal, vital := in.Cohort.SurvivalRows()
	if len(signal) == 0 {
		out.Skip("no_vital_status")
		out.Warn("survival analysis needs an encoded vital_status column")
		return out, nil
	}

	labels, split, err := stats.MedianSplit(in.Cohort.SignalColumn, signal)
	if err != nil {
		return nil, err
	}
	out.Artifacts = append(out.Artifacts, split.ToArtifact())

	if split.Degenerate {
		out.Skip("degenerate_split")
		out.Warn("%s: median split left one side empty, association tests skipped", in.Cohort.SignalColumn)
		return out, nil
	}

	table, err := stats.NewSurvivalTable(labels, vital)
	if err != nil {
		return nil, err
	}
	for _, total := range table.ColTotals() {
		if total == 0 {
			out.Skip("zero_variance")
			out.Warn("every patient shares one vital status, association tests skipped")
			return out, nil
		}
	}

	chi, err := sigtest.ChiSquare(table, in.Params.SurvivalYates)
	if err != nil {
		return nil, err
	}
	fisher, err := sigtest.FisherExact(table.DeceasedFirst())
	if err != nil {
		return nil, err
	}
	chosen, why, err := sigtest.Select(cohort.TypeBinary, cohort.TypeBinary, table)
	if err != nil {
		return nil, err
	}

	assoc := &stats.SurvivalAssociation{
		Table:      *table,
		Split:      split,
		ChiSquare:  chi.Metrics,
		Fisher:     fisher.Metrics,
		OddsRatio:  core.JSONFloat(fisher.OddsRatio),
		CramersV:   chi.CramersV,
		ChosenTest: chosen,
		ChoiceWhy:  why,
		ComputedAt: core.Now(),
	}
	if fisher.HasCI {
		assoc.ORLow = fisher.CILow
		assoc.ORHigh = fisher.CIHigh
		assoc.HasORCI = true
	}

	if split.HighCount < lowSampleSize || split.LowCount < lowSampleSize {
		assoc.Warnings = append(assoc.Warnings, stats.WarningLowN)
		out.Warn("signal groups are small (High n=%d, Low n=%d)", split.HighCount, split.LowCount)
	}
	if chi.MinExpected < 5 {
		assoc.Warnings = append(assoc.Warnings, stats.WarningSmallExpected)
		out.Warn("minimum expected cell count %.2f is below 5, the exact test is more reliable", chi.MinExpected)
	}

	out.Survival = assoc
	out.Artifacts = append(out.Artifacts, assoc.ToArtifact())
	return out, nil
}
