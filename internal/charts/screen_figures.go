package charts

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"

	moremath "github.com/aclements/go-moremath/stats"
	descriptive "github.com/montanaflynn/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"her2lab/domain/cohort"
	"her2lab/internal/errors"
)

// DoseResponse draws median viability at each dose level against
// log10(dose), one line+points series per drug. Non-positive doses are
// skipped; the x axis gets integer tick marks across the log-dose range.
func DoseResponse(screen *cohort.DrugScreen, drugs []string, path string) (string, error) {
	if screen == nil || !screen.HasDose {
		return "", errors.RenderError("drug screen has no dose column", nil)
	}

	p := plot.New()
	p.Title.Text = "Dose response"
	p.X.Label.Text = "log10(dose)"
	p.Y.Label.Text = "Median viability"

	minX, maxX := math.Inf(1), math.Inf(-1)
	var args []interface{}
	for _, drug := range drugs {
		doses, viability := screen.MeasurementsForDrug(drug)
		byDose := make(map[float64][]float64)
		for i, d := range doses {
			if d <= 0 {
				continue // log10 undefined
			}
			byDose[d] = append(byDose[d], viability[i])
		}
		if len(byDose) == 0 {
			continue
		}

		levels := make([]float64, 0, len(byDose))
		for d := range byDose {
			levels = append(levels, d)
		}
		sort.Float64s(levels)

		xys := make(plotter.XYs, 0, len(levels))
		for _, d := range levels {
			med, err := descriptive.Median(byDose[d])
			if err != nil {
				return "", errors.RenderError(fmt.Sprintf("median viability for %s", drug), err)
			}
			x := math.Log10(d)
			xys = append(xys, plotter.XY{X: x, Y: med})
			minX = math.Min(minX, x)
			maxX = math.Max(maxX, x)
		}
		args = append(args, titleCase(drug), xys)
	}
	if len(args) == 0 {
		return "", errors.RenderError("no positive-dose measurements to plot", nil)
	}

	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return "", errors.RenderError("failed to build dose-response series", err)
	}
	p.X.Tick.Marker = integerTicks(minX, maxX)
	p.Legend.Top = true

	if err := save(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// ECDF draws the empirical CDF of viability for each drug as post-step
// lines: sorted values on x, i/n on y.
func ECDF(screen *cohort.DrugScreen, drugs []string, path string) (string, error) {
	if screen == nil || screen.Len() == 0 {
		return "", errors.RenderError("no drug screen to plot", nil)
	}

	p := plot.New()
	p.Title.Text = "Viability ECDF"
	p.X.Label.Text = "Viability"
	p.Y.Label.Text = "Fraction of measurements"

	series := 0
	for _, drug := range drugs {
		vals := screen.ViabilityForDrug(drug)
		if len(vals) == 0 {
			continue
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)

		xys := make(plotter.XYs, len(sorted))
		for i, v := range sorted {
			xys[i] = plotter.XY{X: v, Y: float64(i+1) / float64(len(sorted))}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return "", errors.RenderError(fmt.Sprintf("failed to build ECDF for %s", drug), err)
		}
		line.StepStyle = plotter.PostStep
		line.LineStyle.Color = plotutil.Color(series)
		p.Add(line)
		p.Legend.Add(titleCase(drug), line)
		series++
	}
	if series == 0 {
		return "", errors.RenderError("no measurements for the requested drugs", nil)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := save(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// Violin draws each drug's viability distribution as a kernel density
// outline mirrored into a polygon, with a marker at the median. Drugs with
// fewer than three measurements or zero spread are skipped.
func Violin(screen *cohort.DrugScreen, drugs []string, path string) (string, error) {
	if screen == nil || screen.Len() == 0 {
		return "", errors.RenderError("no drug screen to plot", nil)
	}

	p := plot.New()
	p.Title.Text = "Viability distributions"
	p.Y.Label.Text = "Viability"

	var labels []string
	for _, drug := range drugs {
		vals := screen.ViabilityForDrug(drug)
		if len(vals) < 3 {
			continue
		}
		lo, hi := minMax(vals)
		if hi == lo {
			continue // zero spread, no density outline to draw
		}

		kde := &moremath.KDE{Sample: moremath.Sample{Xs: vals}}
		pad := (hi - lo) * 0.15
		lo, hi = lo-pad, hi+pad

		const gridN = 64
		ys := make([]float64, gridN+1)
		density := make([]float64, gridN+1)
		maxDensity := 0.0
		for i := 0; i <= gridN; i++ {
			y := lo + (hi-lo)*float64(i)/gridN
			d := kde.PDF(y)
			ys[i], density[i] = y, d
			maxDensity = math.Max(maxDensity, d)
		}
		if maxDensity == 0 {
			continue
		}

		x := float64(len(labels))
		outline := make(plotter.XYs, 0, 2*(gridN+1))
		for i := 0; i <= gridN; i++ {
			outline = append(outline, plotter.XY{X: x + violinHalfWidth*density[i]/maxDensity, Y: ys[i]})
		}
		for i := gridN; i >= 0; i-- {
			outline = append(outline, plotter.XY{X: x - violinHalfWidth*density[i]/maxDensity, Y: ys[i]})
		}
		poly, err := plotter.NewPolygon(outline)
		if err != nil {
			return "", errors.RenderError(fmt.Sprintf("failed to build violin for %s", drug), err)
		}
		c := plotutil.Color(len(labels))
		poly.Color = fade(c)
		poly.LineStyle.Color = c
		p.Add(poly)

		med, err := descriptive.Median(vals)
		if err != nil {
			return "", errors.RenderError(fmt.Sprintf("median viability for %s", drug), err)
		}
		marker, err := plotter.NewScatter(plotter.XYs{{X: x, Y: med}})
		if err != nil {
			return "", errors.RenderError(fmt.Sprintf("failed to build median marker for %s", drug), err)
		}
		marker.GlyphStyle.Shape = draw.CircleGlyph{}
		marker.GlyphStyle.Radius = vg.Points(3)
		p.Add(marker)

		labels = append(labels, titleCase(drug))
	}
	if len(labels) == 0 {
		return "", errors.RenderError("no drugs with enough measurements for densities", nil)
	}
	p.NominalX(labels...)

	if err := save(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// integerTicks marks whole units across an axis range
func integerTicks(min, max float64) plot.ConstantTicks {
	var ticks []plot.Tick
	for v := math.Floor(min); v <= math.Ceil(max); v++ {
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', -1, 64)})
	}
	return plot.ConstantTicks(ticks)
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// fade keeps the hue but drops the fill to 40% opacity
func fade(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0x66}
}
