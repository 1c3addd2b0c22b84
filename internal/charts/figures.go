package charts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"her2lab/domain/cohort"
	"her2lab/internal/errors"
)

// Group is one labeled set of values for the grouped box plot
type Group struct {
	Name   string
	Values []float64
}

// CountBars draws value counts of a categorical column as a bar chart,
// largest first. Empty values are bucketed as "(missing)".
func CountBars(title string, values []string, path string) (string, error) {
	if len(values) == 0 {
		return "", errors.RenderError("no values to count", nil)
	}

	counts := make(map[string]int)
	for _, v := range values {
		if v == "" {
			v = "(missing)"
		}
		counts[v]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	heights := make(plotter.Values, len(labels))
	for i, label := range labels {
		heights[i] = float64(counts[label])
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Count"

	bars, err := plotter.NewBarChart(heights, vg.Points(30))
	if err != nil {
		return "", errors.RenderError("failed to build bar chart", err)
	}
	bars.LineStyle.Width = 0
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(labels...)

	if err := save(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// GroupBox draws one box plot per group with "name (n=k)" axis labels.
// Outlier points are hidden; empty groups are skipped.
func GroupBox(title, yLabel string, groups []Group, path string) (string, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	var labels []string
	for _, g := range groups {
		if len(g.Values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(40), float64(len(labels)), plotter.Values(g.Values))
		if err != nil {
			return "", errors.RenderError(fmt.Sprintf("failed to build box plot for %s", g.Name), err)
		}
		box.Outside = nil // hide outlier glyphs
		p.Add(box)
		labels = append(labels, fmt.Sprintf("%s (n=%d)", g.Name, len(g.Values)))
	}
	if len(labels) == 0 {
		return "", errors.RenderError("no groups with values to plot", nil)
	}
	p.NominalX(labels...)

	if err := save(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// DensityHist draws a histogram of a numeric column, normalized to density
func DensityHist(title, xLabel string, values []float64, path string) (string, error) {
	if len(values) < 2 {
		return "", errors.RenderError("not enough values for a histogram", nil)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Density"

	h, err := plotter.NewHist(plotter.Values(values), histBins)
	if err != nil {
		return "", errors.RenderError("failed to build histogram", err)
	}
	h.Normalize(1)
	h.FillColor = plotutil.Color(0)
	p.Add(h)

	if err := save(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// TopDrugsBar draws the drugs with the most measurements, up to topN
func TopDrugsBar(screen *cohort.DrugScreen, topN int, path string) (string, error) {
	if screen == nil || screen.Len() == 0 {
		return "", errors.RenderError("no drug screen to plot", nil)
	}
	if topN <= 0 {
		topN = defaultTopDrugs
	}

	counts := screen.MeasurementCounts()
	drugs := make([]string, 0, len(counts))
	for d := range counts {
		drugs = append(drugs, d)
	}
	sort.Slice(drugs, func(i, j int) bool {
		if counts[drugs[i]] != counts[drugs[j]] {
			return counts[drugs[i]] > counts[drugs[j]]
		}
		return drugs[i] < drugs[j]
	})
	if len(drugs) > topN {
		drugs = drugs[:topN]
	}

	heights := make(plotter.Values, len(drugs))
	labels := make([]string, len(drugs))
	for i, d := range drugs {
		heights[i] = float64(counts[d])
		labels[i] = titleCase(d)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d drugs by measurements", len(drugs))
	p.Y.Label.Text = "Measurements"

	bars, err := plotter.NewBarChart(heights, vg.Points(18))
	if err != nil {
		return "", errors.RenderError("failed to build bar chart", err)
	}
	bars.LineStyle.Width = 0
	bars.Color = plotutil.Color(2)
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	if err := save(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// titleCase capitalizes each word for legends and axis labels
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
