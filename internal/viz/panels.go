package viz

import (
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/linksim/internal/analysis"
)

var seriesColors = []asciigraph.AnsiColor{asciigraph.Blue, asciigraph.Red, asciigraph.Green}

// RenderPanels draws each panel as an ascii chart, one below the other.
// Panels without samples are skipped.
func RenderPanels(panels []analysis.Panel, width, height int) string {
	var b strings.Builder
	for _, p := range panels {
		data := make([][]float64, 0, len(p.Series))
		names := make([]string, 0, len(p.Series))
		for _, s := range p.Series {
			if len(s.Values) == 0 {
				continue
			}
			data = append(data, s.Values)
			names = append(names, s.Name)
		}
		if len(data) == 0 {
			continue
		}

		opts := []asciigraph.Option{
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(p.Title + " [" + p.YLabel + "]"),
		}
		if len(data) > 1 {
			opts = append(opts,
				asciigraph.SeriesColors(seriesColors[:min(len(data), len(seriesColors))]...),
				asciigraph.SeriesLegends(names...))
		}

		b.WriteString(asciigraph.PlotMany(data, opts...))
		b.WriteString("\n\n")
	}
	return b.String()
}
