// Package stages implements the four analyses of the curated study as
// pipeline stages: column profiling, the survival association, the pathway
// comparison, and the drug response screen. Stages consume the shared
// study input and hand back artifacts plus skip and warning accounting;
// the runner owns ordering, timing, and storage.
package stages

import (
	"context"
	"math"
	"strconv"

	"her2lab/domain/cohort"
	"her2lab/domain/core"
	"her2lab/domain/stats"
	"her2lab/domain/study"
	"her2lab/internal/analysis"
)

// highMissingRate is the missing fraction above which a profiled column
// gets a HIGH_MISSING warning
const highMissingRate = 0.30

// lowSampleSize is the group size below which tested groups get a LOW_N
// warning
const lowSampleSize = 30

// ProfileStage summarizes every cohort and screen column: descriptive
// statistics for numerics, level counts for categoricals, plus the
// missingness report over the raw clinical table.
type ProfileStage struct{}

// NewProfileStage creates a new profile stage
func NewProfileStage() *ProfileStage {
	return &ProfileStage{}
}

// Name implements study.Stage
func (s *ProfileStage) Name() study.StageName {
	return study.StageProfile
}

// Run profiles the cleaned columns and trims the missingness report to the
// configured width. Profiles never fail a study on a degenerate column;
// the warnings carry that signal instead.
func (s *ProfileStage) Run(ctx context.Context, in *study.Input) (*study.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &study.Output{}

	c := in.Cohort
	profiles := make([]stats.ColumnProfile, 0, 12)

	signal, err := numericProfile(c.SignalColumn, c.Signal)
	if err != nil {
		return nil, err
	}
	profiles = append(profiles, signal)
	profiles = append(profiles, labelProfile("her2_status", statusLabels(c.HER2)))
	profiles = append(profiles, labelProfile("h", intLabels(c.H)))

	if c.HasER {
		profiles = append(profiles, labelProfile("er_status", c.ERStatus))
	}
	if c.HasPR {
		profiles = append(profiles, labelProfile("pr_status", c.PRStatus))
	}
	if c.HasVital {
		profiles = append(profiles, labelProfile("vital_status", vitalLabels(c.VitalStatus)))
	}
	if c.HasHistology {
		profiles = append(profiles, labelProfile("histological_type", c.Histology))
	}

	if in.Screen != nil {
		profiles = append(profiles, labelProfile("drug_name", in.Screen.Drug))
		viability, err := numericProfile("viability", in.Screen.Viability)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, viability)
		if in.Screen.HasDose {
			dose, err := numericProfile("dose", in.Screen.Dose)
			if err != nil {
				return nil, err
			}
			profiles = append(profiles, dose)
		}
	}

	for i := range profiles {
		p := &profiles[i]
		if p.MissingRate > highMissingRate {
			p.Warnings = append(p.Warnings, stats.WarningHighMissing)
			out.Warn("%s: %.0f%% missing", p.Column, p.MissingRate*100)
		}
		out.Artifacts = append(out.Artifacts, p.ToArtifact())
	}
	out.Profiles = profiles

	if in.Missing != nil {
		report := trimMissingness(in.Missing, in.Params.TopMissing)
		out.Missingness = report
		out.Artifacts = append(out.Artifacts, report.ToArtifact())
	}

	return out, nil
}

// numericProfile summarizes a float column via the descriptive toolkit
func numericProfile(column core.ColumnKey, values []float64) (stats.ColumnProfile, error) {
	summary, err := analysis.Describe(values)
	if err != nil {
		return stats.ColumnProfile{}, err
	}

	profile := stats.ColumnProfile{
		Column:      column,
		Type:        string(cohort.TypeNumeric),
		N:           summary.N,
		Missing:     summary.Missing,
		MissingRate: summary.MissingRate(),
		Mean:        core.JSONFloat(summary.Mean),
		StdDev:      core.JSONFloat(summary.StdDev),
		Min:         core.JSONFloat(summary.Min),
		Q1:          core.JSONFloat(summary.Q1),
		Median:      core.JSONFloat(summary.Median),
		Q3:          core.JSONFloat(summary.Q3),
		Max:         core.JSONFloat(summary.Max),
	}
	if analysis.ZeroVariance(values) {
		profile.Warnings = append(profile.Warnings, stats.WarningZeroVariance)
	}
	return profile, nil
}

// labelProfile summarizes a string column by its level counts. Two
// observed levels classify the column as binary.
func labelProfile(column core.ColumnKey, labels []string) stats.ColumnProfile {
	levels := make(map[string]int)
	missing := 0
	for _, l := range labels {
		if cohort.IsMissingCell(l) {
			missing++
			continue
		}
		levels[l]++
	}

	colType := cohort.TypeCategorical
	if len(levels) == 2 {
		colType = cohort.TypeBinary
	}
	rate := 0.0
	if len(labels) > 0 {
		rate = float64(missing) / float64(len(labels))
	}

	nan := core.JSONFloat(math.NaN())
	return stats.ColumnProfile{
		Column:      column,
		Type:        string(colType),
		N:           len(labels) - missing,
		Missing:     missing,
		MissingRate: rate,
		Mean:        nan,
		StdDev:      nan,
		Min:         nan,
		Q1:          nan,
		Median:      nan,
		Q3:          nan,
		Max:         nan,
		Levels:      levels,
	}
}

func statusLabels(statuses []cohort.HER2Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func intLabels(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}

// vitalLabels renders encoded vital codes as level names. Unknown rows
// come back empty and count as missing in the profile.
func vitalLabels(vital []int) []string {
	out := make([]string, len(vital))
	for i, v := range vital {
		switch v {
		case cohort.VitalAlive:
			out[i] = stats.OutcomeAlive
		case cohort.VitalDeceased:
			out[i] = stats.OutcomeDeceased
		default:
			out[i] = ""
		}
	}
	return out
}

func trimMissingness(report *stats.MissingnessReport, topN int) *stats.MissingnessReport {
	if topN <= 0 || len(report.Rows) <= topN {
		return report
	}
	trimmed := *report
	trimmed.Rows = report.Rows[:topN]
	return &trimmed
}
