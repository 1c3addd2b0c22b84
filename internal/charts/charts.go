// Package charts draws the study's figure set with gonum/plot. Each figure
// function writes one image and returns the path it wrote; RenderAll draws
// every figure the data supports, concurrently, into one directory. The
// output format follows the file extension (png by default, svg supported).
package charts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"her2lab/domain/cohort"
	"her2lab/domain/stats"
	"her2lab/domain/study"
	"her2lab/internal/errors"
	"her2lab/ports"
)

const (
	figWidth  = 8 * vg.Inch
	figHeight = 5 * vg.Inch

	histBins        = 40
	defaultTopDrugs = 20
	violinHalfWidth = 0.4
)

// Renderer implements ports.ChartPort
type Renderer struct {
	format string
}

// NewRenderer creates a chart renderer writing the given image format.
// An empty format defaults to png.
func NewRenderer(format string) ports.ChartPort {
	if format == "" {
		format = "png"
	}
	return &Renderer{format: format}
}

type figure struct {
	name string
	draw func(path string) (string, error)
}

// RenderAll draws every applicable figure into outDir and returns the
// written paths in a stable order.
func (r *Renderer) RenderAll(ctx context.Context, data *study.ChartData, outDir string) ([]string, error) {
	if data == nil || data.Cohort == nil {
		return nil, errors.RenderError("no chart data", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.RenderError("failed to create chart directory", err)
	}

	figures := r.plan(data)
	paths := make([]string, len(figures))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range figures {
		i, f := i, f // per-iteration copies; the go directive predates Go 1.22 loop-variable scoping
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			path, err := f.draw(filepath.Join(outDir, f.name+"."+r.format))
			if err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *Renderer) plan(data *study.ChartData) []figure {
	c := data.Cohort
	var figures []figure

	figures = append(figures, figure{"her2_status_counts", func(path string) (string, error) {
		return CountBars("HER2 Status", statusLabels(c.HER2), path)
	}})
	if c.HasVital {
		figures = append(figures, figure{"vital_status_counts", func(path string) (string, error) {
			return CountBars("Vital Status", vitalLabels(c.VitalStatus), path)
		}})
	}
	figures = append(figures, figure{"signal_by_status_box", func(path string) (string, error) {
		groups := []Group{
			{Name: string(cohort.StatusPositive), Values: c.SignalByStatus(cohort.StatusPositive)},
			{Name: string(cohort.StatusNegative), Values: c.SignalByStatus(cohort.StatusNegative)},
		}
		title := fmt.Sprintf("%s by HER2 status", c.SignalColumn)
		return GroupBox(title, string(c.SignalColumn), groups, path)
	}})
	figures = append(figures, figure{"signal_density", func(path string) (string, error) {
		title := fmt.Sprintf("Distribution of %s", c.SignalColumn)
		return DensityHist(title, string(c.SignalColumn), c.Signal, path)
	}})

	s := data.Screen
	if s == nil || s.Len() == 0 {
		return figures
	}

	panel := drugPanel(data)
	figures = append(figures, figure{"top_drugs", func(path string) (string, error) {
		return TopDrugsBar(s, defaultTopDrugs, path)
	}})
	if s.HasDose {
		figures = append(figures, figure{"dose_response", func(path string) (string, error) {
			return DoseResponse(s, panel, path)
		}})
	}
	figures = append(figures, figure{"viability_ecdf", func(path string) (string, error) {
		return ECDF(s, panel, path)
	}})
	figures = append(figures, figure{"viability_violin", func(path string) (string, error) {
		return Violin(s, panel, path)
	}})
	return figures
}

// drugPanel picks the drugs for the per-drug figures: the configured
// targeted and comparator drugs when both are named, otherwise every drug
// in the screen.
func drugPanel(data *study.ChartData) []string {
	if data.Result != nil {
		p := data.Result.Params
		if len(p.TargetedDrugs) > 0 && len(p.Comparators) > 0 {
			panel := append([]string(nil), p.TargetedDrugs...)
			return append(panel, p.Comparators...)
		}
	}
	return data.Screen.Drugs()
}

func statusLabels(statuses []cohort.HER2Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func vitalLabels(vital []int) []string {
	out := make([]string, len(vital))
	for i, v := range vital {
		switch v {
		case cohort.VitalAlive:
			out[i] = stats.OutcomeAlive
		case cohort.VitalDeceased:
			out[i] = stats.OutcomeDeceased
		default:
			out[i] = "" // bucketed as (missing) by CountBars
		}
	}
	return out
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(figWidth, figHeight, path); err != nil {
		return errors.RenderError(fmt.Sprintf("failed to save %s", filepath.Base(path)), err)
	}
	return nil
}
