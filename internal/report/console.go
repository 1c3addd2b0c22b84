package report

import (
	"fmt"
	"strings"

	"her2lab/domain/cohort"
	"her2lab/domain/stats"
	"her2lab/domain/study"
)

// renderConsole prints the same numbers as the markdown report in a
// terminal-friendly layout.
func (r *Renderer) renderConsole(result *study.StudyResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== HER2 STUDY ===\n")
	fmt.Fprintf(&b, "Run: %s\n", result.RunID)
	if result.Fingerprint != "" {
		fmt.Fprintf(&b, "Fingerprint: %s\n", result.Fingerprint.Short())
	}
	if result.CohortHash != "" {
		fmt.Fprintf(&b, "Cohort hash: %s\n", result.CohortHash.Short())
	}

	r.consoleCohort(&b, result)
	r.consoleMissingness(&b, result)
	r.consoleSurvival(&b, result)
	r.consolePathway(&b, result)
	r.consoleDrugs(&b, result)
	r.consoleWarnings(&b, result)
	r.consoleSummary(&b, result)

	return []byte(b.String())
}

func (r *Renderer) consoleCohort(b *strings.Builder, result *study.StudyResult) {
	if len(result.Profiles) == 0 {
		return
	}
	fmt.Fprintf(b, "\n=== COHORT ===\n")
	if result.Missingness != nil {
		fmt.Fprintf(b, "Rows: %d\n", result.Missingness.TotalRows)
	}
	if her2 := findProfile(result, "her2_status"); her2 != nil {
		fmt.Fprintf(b, "HER2 status: %d Positive / %d Negative\n",
			her2.Levels[string(cohort.StatusPositive)], her2.Levels[string(cohort.StatusNegative)])
	}
	if signal := signalProfile(result); signal != nil {
		fmt.Fprintf(b, "Signal %s: mean %s | median %s | range %s to %s\n",
			signal.Column,
			floatCell(float64(signal.Mean)), floatCell(float64(signal.Median)),
			floatCell(float64(signal.Min)), floatCell(float64(signal.Max)))
	}
}

func (r *Renderer) consoleMissingness(b *strings.Builder, result *study.StudyResult) {
	m := result.Missingness
	if m == nil || len(m.Rows) == 0 {
		return
	}
	fmt.Fprintf(b, "\n=== DATA QUALITY ===\n")
	for _, row := range m.Rows {
		fmt.Fprintf(b, "%-22s %5.1f%% missing | %d unique\n", row.Column, row.NullPct*100, row.NUnique)
	}
}

func (r *Renderer) consoleSurvival(b *strings.Builder, result *study.StudyResult) {
	s := result.Survival
	if s == nil {
		return
	}
	fmt.Fprintf(b, "\n=== SURVIVAL ASSOCIATION ===\n")
	fmt.Fprintf(b, "Median split on %s at %.4f: High n=%d, Low n=%d\n",
		s.Split.Column, s.Split.Median, s.Split.HighCount, s.Split.LowCount)

	rowTotals := s.Table.RowTotals()
	fmt.Fprintf(b, "%-8s", "")
	for _, col := range s.Table.ColLabels {
		fmt.Fprintf(b, "%10s", col)
	}
	fmt.Fprintf(b, "%10s\n", "total")
	for i, row := range s.Table.RowLabels {
		fmt.Fprintf(b, "%-8s", row)
		for j := range s.Table.ColLabels {
			fmt.Fprintf(b, "%10d", s.Table.At(i, j))
		}
		fmt.Fprintf(b, "%10d\n", rowTotals[i])
	}

	fmt.Fprintf(b, "χ²: %s | P: %s | Cramér's V: %s\n",
		floatCell(float64(s.ChiSquare.Statistic)), pvalue(s.ChiSquare.PValue), floatCell(s.CramersV))
	orCI := ""
	if s.HasORCI {
		orCI = fmt.Sprintf(" (95%% CI %s to %s)", floatCell(s.ORLow), floatCell(s.ORHigh))
	}
	fmt.Fprintf(b, "Fisher: P: %s | OR: %s%s\n", pvalue(s.Fisher.PValue), floatCell(float64(s.OddsRatio)), orCI)
	fmt.Fprintf(b, "Selected: %s (%s)\n", s.ChosenTest, s.ChoiceWhy)

	p := s.ChiSquare.PValue
	if s.ChosenTest == stats.TestFisherExact {
		p = s.Fisher.PValue
	}
	if p < 0.05 {
		fmt.Fprintf(b, "✓ Association is %s\n", significance(p))
	} else {
		fmt.Fprintf(b, "Association is %s\n", significance(p))
	}
}

func (r *Renderer) consolePathway(b *strings.Builder, result *study.StudyResult) {
	p := result.Pathway
	if p == nil {
		return
	}
	fmt.Fprintf(b, "\n=== PATHWAY SIGNAL ===\n")
	fmt.Fprintf(b, "Mann-Whitney U: %s | P: %s%s | r_rb: %s\n",
		floatCell(float64(p.Metrics.Statistic)), pvalue(p.Metrics.PValue), exactMark(p.Metrics.Exact),
		floatCell(float64(p.Metrics.EffectSize)))
	fmt.Fprintf(b, "Medians: Positive %s (n=%d) vs Negative %s (n=%d) | alternative: %s\n",
		floatCell(p.MedianPositive), p.NPositive, floatCell(p.MedianNegative), p.NNegative, p.Alternative)
	if p.Metrics.PValue < 0.05 {
		fmt.Fprintf(b, "✓ Arm difference is %s\n", significance(p.Metrics.PValue))
	} else {
		fmt.Fprintf(b, "Arm difference is %s\n", significance(p.Metrics.PValue))
	}
}

func (r *Renderer) consoleDrugs(b *strings.Builder, result *study.StudyResult) {
	d := result.Drugs
	if d == nil {
		return
	}
	fmt.Fprintf(b, "\n=== DRUG RESPONSE ===\n")
	fmt.Fprintf(b, "Sensitive fraction below viability %.1f:\n", d.Threshold)
	for _, f := range d.Fractions {
		fmt.Fprintf(b, "%-16s %s sensitive (%d measurements)\n", f.Drug, floatCell(float64(f.Fraction)), f.Measurements)
	}
	if d.Metrics.SampleSize > 0 {
		fmt.Fprintf(b, "Targeted vs comparators: U: %s | P: %s%s | r_rb: %s\n",
			floatCell(float64(d.Metrics.Statistic)), pvalue(d.Metrics.PValue), exactMark(d.Metrics.Exact),
			floatCell(float64(d.Metrics.EffectSize)))
	} else {
		fmt.Fprintf(b, "No targeted-vs-comparator test was possible.\n")
	}
}

func (r *Renderer) consoleWarnings(b *strings.Builder, result *study.StudyResult) {
	var lines []string
	for _, st := range result.Stages {
		for _, w := range st.Warnings {
			lines = append(lines, fmt.Sprintf("⚠️  %s: %s", st.Name, w))
		}
	}
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n=== WARNINGS ===\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
}

func (r *Renderer) consoleSummary(b *strings.Builder, result *study.StudyResult) {
	if len(result.Stages) == 0 {
		return
	}
	summary := result.Summary()
	fmt.Fprintf(b, "\n=== SUMMARY ===\n")
	fmt.Fprintf(b, "%s\n", summary.String())
	if result.Succeeded() {
		fmt.Fprintf(b, "✅ STUDY COMPLETED\n")
	} else {
		fmt.Fprintf(b, "❌ %d STAGE(S) FAILED\n", summary.Failed)
	}
}
