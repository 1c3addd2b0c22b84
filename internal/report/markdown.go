// Package report renders a completed study into a document. Markdown is
// the canonical form; HTML is the same document converted through
// gomarkdown, and the console form prints the same numbers with terminal
// headers for the CLI.
package report

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"her2lab/domain/cohort"
	"her2lab/domain/stats"
	"her2lab/domain/study"
	"her2lab/internal/errors"
	"her2lab/ports"
)

// Renderer implements ports.ReportPort. Chart paths, when provided, are
// linked from the charts section relative to the report location.
type Renderer struct {
	chartPaths []string
}

// NewRenderer creates a report renderer. chartPaths may be nil when no
// charts were drawn.
func NewRenderer(chartPaths []string) ports.ReportPort {
	return &Renderer{chartPaths: chartPaths}
}

// Render implements ports.ReportPort
func (r *Renderer) Render(ctx context.Context, result *study.StudyResult, format ports.ReportFormat) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.RenderError("no study result to render", nil)
	}

	switch format {
	case ports.FormatMarkdown:
		return r.renderMarkdown(result), nil
	case ports.FormatHTML:
		return r.renderHTML(result)
	case ports.FormatConsole:
		return r.renderConsole(result), nil
	}
	return nil, errors.RenderError(fmt.Sprintf("unknown report format %q", format), nil)
}

func (r *Renderer) renderMarkdown(result *study.StudyResult) []byte {
	var b strings.Builder
	r.writeHeader(&b, result)
	r.writeCohortSection(&b, result)
	r.writeMissingnessSection(&b, result)
	r.writeSurvivalSection(&b, result)
	r.writePathwaySection(&b, result)
	r.writeDrugSection(&b, result)
	r.writeChartsSection(&b)
	r.writeWarningsSection(&b, result)
	r.writeStagesSection(&b, result)
	return []byte(b.String())
}

func (r *Renderer) writeHeader(b *strings.Builder, result *study.StudyResult) {
	b.WriteString("# HER2 Study Report\n\n")
	fmt.Fprintf(b, "- Run: `%s`\n", result.RunID)
	if result.Fingerprint != "" {
		fmt.Fprintf(b, "- Fingerprint: `%s`\n", result.Fingerprint)
	}
	if result.CohortHash != "" {
		fmt.Fprintf(b, "- Cohort hash: `%s`\n", result.CohortHash)
	}
	if !result.StartedAt.IsZero() {
		fmt.Fprintf(b, "- Started: %s\n", result.StartedAt)
	}
	if !result.CompletedAt.IsZero() {
		fmt.Fprintf(b, "- Completed: %s\n", result.CompletedAt)
	}
	b.WriteString("\n")
}

func (r *Renderer) writeCohortSection(b *strings.Builder, result *study.StudyResult) {
	if len(result.Profiles) == 0 {
		return
	}
	b.WriteString("## Cohort\n\n")

	rows := 0
	if result.Missingness != nil {
		rows = result.Missingness.TotalRows
	}
	if her2 := findProfile(result, "her2_status"); her2 != nil {
		if rows == 0 {
			rows = her2.N + her2.Missing
		}
		pos := her2.Levels[string(cohort.StatusPositive)]
		neg := her2.Levels[string(cohort.StatusNegative)]
		fmt.Fprintf(b, "- Rows analyzed: %d\n", rows)
		fmt.Fprintf(b, "- HER2 status: %d Positive / %d Negative\n", pos, neg)
	} else if rows > 0 {
		fmt.Fprintf(b, "- Rows analyzed: %d\n", rows)
	}
	fmt.Fprintf(b, "- Columns profiled: %d\n", len(result.Profiles))

	if signal := signalProfile(result); signal != nil {
		fmt.Fprintf(b, "- Signal `%s`: mean %s, median %s, range %s to %s\n",
			signal.Column,
			floatCell(float64(signal.Mean)), floatCell(float64(signal.Median)),
			floatCell(float64(signal.Min)), floatCell(float64(signal.Max)))
	}
	b.WriteString("\n")
}

func (r *Renderer) writeMissingnessSection(b *strings.Builder, result *study.StudyResult) {
	m := result.Missingness
	if m == nil || len(m.Rows) == 0 {
		return
	}
	b.WriteString("## Data quality\n\n")
	fmt.Fprintf(b, "Missingness over %d rows, worst first.\n\n", m.TotalRows)
	b.WriteString("| Column | Missing | Unique | Example |\n")
	b.WriteString("|---|---:|---:|---|\n")
	for _, row := range m.Rows {
		example := row.Example
		if !row.HasValue {
			example = "(all missing)"
		}
		fmt.Fprintf(b, "| %s | %.1f%% | %d | %s |\n", row.Column, row.NullPct*100, row.NUnique, example)
	}
	b.WriteString("\n")
}

func (r *Renderer) writeSurvivalSection(b *strings.Builder, result *study.StudyResult) {
	s := result.Survival
	if s == nil {
		return
	}
	b.WriteString("## Survival association\n\n")
	fmt.Fprintf(b, "Median split on `%s` at %.4f (High n=%d, Low n=%d).\n\n",
		s.Split.Column, s.Split.Median, s.Split.HighCount, s.Split.LowCount)

	writeContingency(b, &s.Table)

	chiLabel := "Chi-square"
	if result.Params.SurvivalYates {
		chiLabel = "Chi-square (Yates)"
	}
	fmt.Fprintf(b, "- %s: χ² = %s, df %d, p = %s\n",
		chiLabel, floatCell(float64(s.ChiSquare.Statistic)), s.ChiSquare.DF, pvalue(s.ChiSquare.PValue))
	fmt.Fprintf(b, "- Fisher's exact: p = %s\n", pvalue(s.Fisher.PValue))

	orLine := fmt.Sprintf("- Odds ratio (death, High over Low): %s", floatCell(float64(s.OddsRatio)))
	if s.HasORCI {
		orLine += fmt.Sprintf(", 95%% CI %s to %s", floatCell(s.ORLow), floatCell(s.ORHigh))
	}
	b.WriteString(orLine + "\n")
	fmt.Fprintf(b, "- Cramér's V: %s\n", floatCell(s.CramersV))
	fmt.Fprintf(b, "- Selected test: %s (%s)\n", s.ChosenTest, s.ChoiceWhy)

	p := s.ChiSquare.PValue
	if s.ChosenTest == stats.TestFisherExact {
		p = s.Fisher.PValue
	}
	fmt.Fprintf(b, "\nThe association between signal group and vital status is %s.\n\n", significance(p))
}

func (r *Renderer) writePathwaySection(b *strings.Builder, result *study.StudyResult) {
	p := result.Pathway
	if p == nil {
		return
	}
	b.WriteString("## Pathway signal\n\n")
	fmt.Fprintf(b, "HER2 Positive vs Negative signal comparison (alternative: %s).\n\n", p.Alternative)
	fmt.Fprintf(b, "- Mann-Whitney U = %s, p = %s%s\n",
		floatCell(float64(p.Metrics.Statistic)), pvalue(p.Metrics.PValue), exactMark(p.Metrics.Exact))
	fmt.Fprintf(b, "- Median signal: Positive %s (n=%d), Negative %s (n=%d)\n",
		floatCell(p.MedianPositive), p.NPositive, floatCell(p.MedianNegative), p.NNegative)
	fmt.Fprintf(b, "- Rank-biserial r = %s\n", floatCell(float64(p.Metrics.EffectSize)))
	fmt.Fprintf(b, "\nThe arm difference is %s.\n\n", significance(p.Metrics.PValue))
}

func (r *Renderer) writeDrugSection(b *strings.Builder, result *study.StudyResult) {
	d := result.Drugs
	if d == nil {
		return
	}
	b.WriteString("## Drug response\n\n")
	fmt.Fprintf(b, "Sensitive fraction = share of measurements with viability below %.1f.\n\n", d.Threshold)
	b.WriteString("| Drug | Sensitive fraction | Measurements |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, f := range d.Fractions {
		fmt.Fprintf(b, "| %s | %s | %d |\n", f.Drug, floatCell(float64(f.Fraction)), f.Measurements)
	}
	b.WriteString("\n")

	if d.Metrics.SampleSize > 0 {
		fmt.Fprintf(b, "Targeted (%s) vs comparators (%s):\n\n",
			strings.Join(d.Targeted, ", "), strings.Join(d.Comparators, ", "))
		fmt.Fprintf(b, "- Mann-Whitney U = %s, p = %s%s (alternative: %s)\n",
			floatCell(float64(d.Metrics.Statistic)), pvalue(d.Metrics.PValue), exactMark(d.Metrics.Exact), d.Alternative)
		fmt.Fprintf(b, "- Rank-biserial r = %s (n = %d targeted, %d comparator)\n",
			floatCell(float64(d.Metrics.EffectSize)), d.NTargeted, d.NComparator)
		fmt.Fprintf(b, "\nThe viability difference is %s.\n\n", significance(d.Metrics.PValue))
	} else {
		b.WriteString("No targeted-vs-comparator test was possible.\n\n")
	}
}

func (r *Renderer) writeChartsSection(b *strings.Builder) {
	if len(r.chartPaths) == 0 {
		return
	}
	b.WriteString("## Charts\n\n")
	for _, path := range r.chartPaths {
		fmt.Fprintf(b, "![%s](%s)\n\n", chartTitle(path), path)
	}
}

func (r *Renderer) writeWarningsSection(b *strings.Builder, result *study.StudyResult) {
	var lines []string
	for _, st := range result.Stages {
		for _, w := range st.Warnings {
			lines = append(lines, fmt.Sprintf("- %s: %s", st.Name, w))
		}
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString("## Warnings\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
}

func (r *Renderer) writeStagesSection(b *strings.Builder, result *study.StudyResult) {
	if len(result.Stages) == 0 {
		return
	}
	b.WriteString("## Stages\n\n")
	b.WriteString("| Stage | Status | Artifacts | Skips | Duration |\n")
	b.WriteString("|---|---|---:|---:|---:|\n")
	var failures []string
	for _, st := range result.Stages {
		status := "ok"
		if !st.Success {
			status = "failed"
			failures = append(failures, fmt.Sprintf("- %s: %s", st.Name, st.Error))
		}
		skips := 0
		for _, n := range st.Skips {
			skips += n
		}
		fmt.Fprintf(b, "| %s | %s | %d | %d | %dms |\n", st.Name, status, len(st.Artifacts), skips, st.Duration)
	}
	b.WriteString("\n")
	if len(failures) > 0 {
		b.WriteString(strings.Join(failures, "\n"))
		b.WriteString("\n\n")
	}
}

// writeContingency renders the 2x2 with marginal totals
func writeContingency(b *strings.Builder, t *stats.ContingencyTable) {
	b.WriteString("| |")
	for _, col := range t.ColLabels {
		fmt.Fprintf(b, " %s |", col)
	}
	b.WriteString(" total |\n|---|")
	for range t.ColLabels {
		b.WriteString("---:|")
	}
	b.WriteString("---:|\n")

	rowTotals := t.RowTotals()
	for i, row := range t.RowLabels {
		fmt.Fprintf(b, "| %s |", row)
		for j := range t.ColLabels {
			fmt.Fprintf(b, " %d |", t.At(i, j))
		}
		fmt.Fprintf(b, " %d |\n", rowTotals[i])
	}

	b.WriteString("| total |")
	for _, total := range t.ColTotals() {
		fmt.Fprintf(b, " %d |", total)
	}
	fmt.Fprintf(b, " %d |\n\n", t.Total())
}

// findProfile returns the profile for a column key, or nil
func findProfile(result *study.StudyResult, column string) *stats.ColumnProfile {
	for i := range result.Profiles {
		if string(result.Profiles[i].Column) == column {
			return &result.Profiles[i]
		}
	}
	return nil
}

// signalProfile locates the pathway signal column: the split column when
// the survival stage ran, otherwise the first numeric profile.
func signalProfile(result *study.StudyResult) *stats.ColumnProfile {
	if result.Survival != nil {
		if p := findProfile(result, string(result.Survival.Split.Column)); p != nil {
			return p
		}
	}
	for i := range result.Profiles {
		if result.Profiles[i].Type == string(cohort.TypeNumeric) {
			return &result.Profiles[i]
		}
	}
	return nil
}

// floatCell formats a statistic, with non-finite values rendered as N/A
func floatCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", v)
}

// pvalue keeps small p-values readable instead of rounding them to zero
func pvalue(p float64) string {
	if math.IsNaN(p) {
		return "N/A"
	}
	if p > 0 && p < 0.0001 {
		return fmt.Sprintf("%.2e", p)
	}
	return fmt.Sprintf("%.4f", p)
}

func significance(p float64) string {
	if p < 0.05 {
		return "statistically significant (p < 0.05)"
	}
	return "not statistically significant (p >= 0.05)"
}

func exactMark(exact bool) string {
	if exact {
		return " (exact)"
	}
	return ""
}

// chartTitle turns a chart filename into a readable link title
func chartTitle(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ReplaceAll(name, "_", " ")
}
