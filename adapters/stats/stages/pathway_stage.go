package stages

import (
	"context"

	"her2lab/adapters/stats/sigtest"
	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
	"her2lab/domain/study"
	"her2lab/internal/analysis"
)

// PathwayStage compares the pathway signal between IHC-positive and
// IHC-negative tumors with the two-sample rank test. The default
// alternative is one-sided: positive tumors carry the higher signal.
type PathwayStage struct{}

// NewPathwayStage creates a new pathway stage
func NewPathwayStage() *PathwayStage {
	return &PathwayStage{}
}

// Name implements study.Stage
func (s *PathwayStage) Name() study.StageName {
	return study.StagePathway
}

// Run implements study.Stage
func (s *PathwayStage) Run(ctx context.Context, in *study.Input) (*study.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &study.Output{}

	pos := in.Cohort.SignalByStatus(cohort.StatusPositive)
	neg := in.Cohort.SignalByStatus(cohort.StatusNegative)
	if len(pos) == 0 || len(neg) == 0 {
		out.Skip("empty_group")
		out.Warn("pathway comparison needs both status arms (Positive n=%d, Negative n=%d)",
			len(pos), len(neg))
		return out, nil
	}

	combined := make([]float64, 0, len(pos)+len(neg))
	combined = append(combined, pos...)
	combined = append(combined, neg...)
	if analysis.ZeroVariance(combined) {
		out.Skip("zero_variance")
		out.Warn("signal column has no variance, rank test skipped")
		return out, nil
	}

	res, err := sigtest.MannWhitney(pos, neg, in.Params.PathwayAlternative)
	if err != nil {
		return nil, err
	}

	comparison := &stats.PathwayComparison{
		Metrics:        res.Metrics,
		Alternative:    in.Params.PathwayAlternative,
		MedianPositive: res.MedianX,
		MedianNegative: res.MedianY,
		NPositive:      res.N1,
		NNegative:      res.N2,
		Warnings:       res.Warnings,
		ComputedAt:     core.Now(),
	}
	if res.N1 < lowSampleSize || res.N2 < lowSampleSize {
		comparison.Warnings = append(comparison.Warnings, stats.WarningLowN)
		out.Warn("status arms are small (Positive n=%d, Negative n=%d)", res.N1, res.N2)
	}

	out.Pathway = comparison
	out.Artifacts = append(out.Artifacts, comparison.ToArtifact())
	return out, nil
}
