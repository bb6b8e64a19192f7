package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/linksim/internal/analysis"
	"github.com/san-kum/linksim/internal/linkage"
	"github.com/san-kum/linksim/internal/viz"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := int(float64(canvas.Width) * scale * 2)   // 2 sub-pixels per char
	height := int(float64(canvas.Height) * scale * 4) // 4 sub-pixels per char

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	sb.WriteString("<g fill=\"#00ff00\">\n")

	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if !canvas.IsSet(col*2+dx, row*4+dy) {
						continue
					}
					cx := float64(col*2+dx)*scale + scale/2
					cy := float64(row*4+dy)*scale + scale/2
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// FrameToSVG draws the linkage at one frame, mapping view onto the image.
func FrameToSVG(f linkage.Frame, view View, width, height int) string {
	sx := float64(width) / (view.XMax - view.XMin)
	sy := float64(height) / (view.YMax - view.YMin)
	px := func(p linkage.Point) (float64, float64) {
		return (p.X - view.XMin) * sx, float64(height) - (p.Y-view.YMin)*sy
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)

	origin := linkage.Point{X: f.X, Y: f.Y}
	segments := []struct {
		from, to linkage.Point
		stroke   string
	}{
		{origin, f.LineEnd, "#3b82f6"},
		{origin, f.BarEnd, "#22c55e"},
		{f.BarEnd, f.LowerEnd, "#d946ef"},
	}
	for _, s := range segments {
		x1, y1 := px(s.from)
		x2, y2 := px(s.to)
		fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\" stroke=\"%s\" stroke-width=\"3\"/>\n",
			x1, y1, x2, y2, s.stroke)
	}

	joints := []struct {
		at   linkage.Point
		fill string
	}{
		{origin, "#ef4444"},
		{f.BarEnd, "#f59e0b"},
		{f.LowerEnd, "#06b6d4"},
	}
	for _, j := range joints {
		cx, cy := px(j.at)
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"6\" fill=\"%s\"/>\n", cx, cy, j.fill)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// TrajectoryToSVG creates an SVG path through points, padded by 10% of the
// data range on every side.
func TrajectoryToSVG(points []analysis.Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX, minY, maxY := points[0].X, points[0].X, points[0].Y, points[0].Y
	for _, p := range points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
