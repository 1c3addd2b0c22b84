package stages

import (
	"context"
	"strings"

	"her2lab/adapters/stats/sigtest"
	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
	"her2lab/domain/study"
	"her2lab/internal/analysis"
)

// ResponseStage summarizes drug sensitivity over the screen and compares
// viability under the targeted agents against the comparator set.
type ResponseStage struct{}

// NewResponseStage creates a new response stage
func NewResponseStage() *ResponseStage {
	return &ResponseStage{}
}

// Name implements study.Stage
func (s *ResponseStage) Name() study.StageName {
	return study.StageResponse
}

// Run computes each drug's sensitive fraction at the viability threshold,
// then runs the two-sided rank test of targeted against comparator
// viability. The fractions artifact is produced even when one comparison
// arm turns out empty; only the rank test is skipped then.
func (s *ResponseStage) Run(ctx context.Context, in *study.Input) (*study.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &study.Output{}

	screen := in.Screen
	if screen == nil || screen.Len() == 0 {
		out.Skip("no_drug_screen")
		out.Warn("no drug screen loaded, response analysis skipped")
		return out, nil
	}

	targeted := normalizeDrugList(in.Params.TargetedDrugs)
	comparators := comparatorSet(screen, targeted, in.Params.Comparators)

	response := &stats.DrugResponse{
		Threshold:   in.Params.DrugThreshold,
		Fractions:   stats.FracBelow(screen, screen.Drugs(), in.Params.DrugThreshold),
		Targeted:    targeted,
		Comparators: comparators,
		Alternative: stats.TwoSided,
		ComputedAt:  core.Now(),
	}
	emit := func() (*study.Output, error) {
		out.Drugs = response
		out.Artifacts = append(out.Artifacts, response.ToArtifact())
		return out, nil
	}

	targetedViability := viabilityForDrugs(screen, targeted)
	comparatorViability := viabilityForDrugs(screen, comparators)
	response.NTargeted = len(targetedViability)
	response.NComparator = len(comparatorViability)

	if len(targetedViability) == 0 || len(comparatorViability) == 0 {
		response.Warnings = append(response.Warnings, stats.WarningEmptyGroup)
		out.Skip("empty_group")
		out.Warn("viability comparison needs both arms (targeted %s n=%d, comparators n=%d)",
			strings.Join(targeted, "+"), len(targetedViability), len(comparatorViability))
		return emit()
	}

	combined := make([]float64, 0, len(targetedViability)+len(comparatorViability))
	combined = append(combined, targetedViability...)
	combined = append(combined, comparatorViability...)
	if analysis.ZeroVariance(combined) {
		response.Warnings = append(response.Warnings, stats.WarningZeroVariance)
		out.Skip("zero_variance")
		out.Warn("viability has no variance across arms, rank test skipped")
		return emit()
	}

	res, err := sigtest.MannWhitney(targetedViability, comparatorViability, stats.TwoSided)
	if err != nil {
		return nil, err
	}
	response.Metrics = res.Metrics
	response.Warnings = append(response.Warnings, res.Warnings...)

	if res.N1 < lowSampleSize || res.N2 < lowSampleSize {
		response.Warnings = append(response.Warnings, stats.WarningLowN)
		out.Warn("comparison arms are small (targeted n=%d, comparators n=%d)", res.N1, res.N2)
	}

	return emit()
}

// normalizeDrugList lowercases and trims a drug list, dropping blanks
func normalizeDrugList(drugs []string) []string {
	out := make([]string, 0, len(drugs))
	for _, d := range drugs {
		name := cohort.NormalizeDrugName(d)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// comparatorSet resolves the comparator drugs. An explicit list is
// normalized and kept minus any targeted agent; otherwise every
// non-targeted drug in the screen serves as comparator.
func comparatorSet(screen *cohort.DrugScreen, targeted []string, explicit []string) []string {
	isTargeted := make(map[string]bool, len(targeted))
	for _, d := range targeted {
		isTargeted[d] = true
	}

	candidates := screen.Drugs()
	if len(explicit) > 0 {
		candidates = normalizeDrugList(explicit)
	}

	var out []string
	for _, d := range candidates {
		if !isTargeted[d] {
			out = append(out, d)
		}
	}
	return out
}

func viabilityForDrugs(screen *cohort.DrugScreen, drugs []string) []float64 {
	var out []float64
	for _, d := range drugs {
		out = append(out, screen.ViabilityForDrug(d)...)
	}
	return out
}
