package report

import (
	"fmt"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"her2lab/domain/study"
	"her2lab/internal/errors"
)

// renderHTML converts the markdown document into a standalone HTML page.
// A fresh parser per call; gomarkdown parsers are single-use.
func (r *Renderer) renderHTML(result *study.StudyResult) ([]byte, error) {
	md := r.renderMarkdown(result)

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: fmt.Sprintf("HER2 Study %s", result.RunID),
		Flags: html.CommonFlags | html.CompletePage,
	})

	out := markdown.ToHTML(md, p, renderer)
	if len(out) == 0 {
		return nil, errors.RenderError("html rendering produced no output", nil)
	}
	return out, nil
}
