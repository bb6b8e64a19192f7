package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/linksim/internal/linkage"
)

// toScreen maps world coordinates into the plot area left of the HUD.
func (a *App) toScreen(p linkage.Point) rl.Vector2 {
	v := a.View.Zoomed(float64(a.Zoom))
	sx := (p.X - v.XMin) / (v.XMax - v.XMin) * plotWidth
	sy := (v.YMax - p.Y) / (v.YMax - v.YMin) * screenHeight
	return rl.NewVector2(float32(sx), float32(sy))
}

func (a *App) drawGrid() {
	v := a.View.Zoomed(float64(a.Zoom))
	for x := float64(int(v.XMin)); x <= v.XMax; x++ {
		top, bottom := a.toScreen(linkage.Point{X: x, Y: v.YMax}), a.toScreen(linkage.Point{X: x, Y: v.YMin})
		rl.DrawLineV(top, bottom, ColGrid)
	}
	for y := float64(int(v.YMin)); y <= v.YMax; y++ {
		left, right := a.toScreen(linkage.Point{X: v.XMin, Y: y}), a.toScreen(linkage.Point{X: v.XMax, Y: y})
		rl.DrawLineV(left, right, ColGrid)
	}

	origin := a.toScreen(linkage.Point{})
	rl.DrawLineV(rl.NewVector2(0, origin.Y), rl.NewVector2(plotWidth, origin.Y), ColTextDim)
	rl.DrawLineV(rl.NewVector2(origin.X, 0), rl.NewVector2(origin.X, screenHeight), ColTextDim)
}

// drawLinkage draws the horizontal line, the bar, the vertical segment and
// the path of the lower end.
func (a *App) drawLinkage() {
	a.drawGrid()

	if len(a.Trail) > 1 {
		pts := make([]rl.Vector2, len(a.Trail))
		for i, p := range a.Trail {
			pts[i] = a.toScreen(p)
		}
		rl.DrawLineStrip(pts, ColTextDim)
	}

	f := a.Frame
	slider := a.toScreen(linkage.Point{X: f.X, Y: f.Y})
	lineEnd := a.toScreen(f.LineEnd)
	barEnd := a.toScreen(f.BarEnd)
	lower := a.toScreen(f.LowerEnd)

	rl.DrawLineEx(slider, lineEnd, 3, ColText)
	rl.DrawLineEx(slider, barEnd, 3, ColAccent)
	rl.DrawLineEx(barEnd, lower, 3, ColSelect)

	rl.DrawCircleV(slider, 8, ColSelect)
	rl.DrawCircleV(barEnd, 5, ColAccent)
	rl.DrawCircleV(lower, 5, ColSelect)

	rl.DrawRectangleLines(0, 0, plotWidth, screenHeight, ColGrid)
}

// DrawTelemetry plots the recent vertical lengths as a line strip.
func (a *App) DrawTelemetry() {
	values := a.Telemetry.Values()
	if len(values) < 2 {
		return
	}

	rectX, rectY := plotWidth+30, 400
	points := telemetryPoints(values, float32(rectX), float32(rectY), 300, 80)

	rl.DrawLineStrip(points, ColAccent)
	a.drawText(fmt.Sprintf("vertical %.3f", values[len(values)-1]), rectX, rectY+90, 14, ColText)
}

// telemetryPoints scales values into the w×h box at (x, y), the smallest
// value on the bottom edge and the largest on the top.
func telemetryPoints(values []float64, x, y, w, h float32) []rl.Vector2 {
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	points := make([]rl.Vector2, len(values))
	for i, val := range values {
		px := x + float32(i)/float32(len(values))*w
		norm := (val - lo) / (hi - lo)
		points[i] = rl.NewVector2(px, y+h-float32(norm)*h)
	}
	return points
}
