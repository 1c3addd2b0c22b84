package ports

import (
	"context"

	"her2lab/domain/study"
)

// ReportFormat selects the report rendering target
type ReportFormat string

const (
	FormatMarkdown ReportFormat = "markdown"
	FormatHTML     ReportFormat = "html"
	FormatConsole  ReportFormat = "console"
)

// ReportPort renders a completed study into a document
type ReportPort interface {
	Render(ctx context.Context, result *study.StudyResult, format ReportFormat) ([]byte, error)
}

// ChartPort draws the study's figure set into a directory and returns the
// paths written, in a stable order.
type ChartPort interface {
	RenderAll(ctx context.Context, data *study.ChartData, outDir string) ([]string, error)
}
