package gui

import (
	"math"
	"testing"
	"time"

	"github.com/san-kum/linksim/internal/linkage"
	"github.com/san-kum/linksim/internal/viz"
)

func testApp(t *testing.T) *App {
	t.Helper()
	a, err := newApp(Options{
		Params:   linkage.DefaultParams(),
		View:     viz.Viewport{XMin: 0, XMax: 10, YMin: 0, YMax: 10},
		Interval: 20 * time.Millisecond,
		Frames:   10,
		History:  16,
	})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func TestNewAppRejectsInvalidParams(t *testing.T) {
	p := linkage.DefaultParams()
	p.BarLength = 0
	if _, err := newApp(Options{Params: p}); err == nil {
		t.Fatal("expected error for zero bar length")
	}
}

func TestToScreen(t *testing.T) {
	tests := []struct {
		name   string
		zoom   float32
		p      linkage.Point
		sx, sy float32
	}{
		{"top left", 1, linkage.Point{X: 0, Y: 10}, 0, 0},
		{"bottom right", 1, linkage.Point{X: 10, Y: 0}, plotWidth, screenHeight},
		{"centre", 1, linkage.Point{X: 5, Y: 5}, plotWidth / 2, screenHeight / 2},
		{"centre zoomed", 2, linkage.Point{X: 5, Y: 5}, plotWidth / 2, screenHeight / 2},
		{"corner of zoomed view", 2, linkage.Point{X: 7.5, Y: 7.5}, plotWidth, 0},
	}

	a := testApp(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.Zoom = tt.zoom
			got := a.toScreen(tt.p)
			if !near(got.X, tt.sx) || !near(got.Y, tt.sy) {
				t.Errorf("toScreen(%v) = (%f, %f), want (%f, %f)", tt.p, got.X, got.Y, tt.sx, tt.sy)
			}
		})
	}
}

func TestShowWrapsAndBoundsHistory(t *testing.T) {
	a := testApp(t)

	tests := []struct {
		index, want int
	}{
		{3, 3},
		{10, 0},
		{23, 3},
		{-1, 9},
	}
	for _, tt := range tests {
		a.show(tt.index)
		if a.Index != tt.want {
			t.Errorf("show(%d): index %d, want %d", tt.index, a.Index, tt.want)
		}
		if a.Frame != a.Link.Update(float64(tt.want)) {
			t.Errorf("show(%d): frame not recomputed for index %d", tt.index, tt.want)
		}
	}

	for i := 0; i < 2*maxTrail; i++ {
		a.show(i)
	}
	if len(a.Trail) != maxTrail {
		t.Errorf("trail length %d, want %d", len(a.Trail), maxTrail)
	}
	if a.Telemetry.Len() != 16 {
		t.Errorf("telemetry length %d, want 16", a.Telemetry.Len())
	}
	if a.Trail[len(a.Trail)-1] != a.Frame.LowerEnd {
		t.Error("trail does not end at the current lower end")
	}
}

func TestAdvance(t *testing.T) {
	a := testApp(t)

	a.advance(0.05)
	if a.Index != 2 {
		t.Errorf("after 50ms: index %d, want 2", a.Index)
	}
	a.advance(0.2)
	if a.Index != 2 {
		t.Errorf("after 250ms: index %d, want 12 mod 10 = 2", a.Index)
	}

	a.Running = false
	a.advance(1)
	if a.Index != 2 {
		t.Errorf("paused app advanced to %d", a.Index)
	}
}

func TestZoom(t *testing.T) {
	tests := []struct {
		name   string
		factor float32
		want   float32
	}{
		{"in", 1.25, 1.25},
		{"out", 0.8, 0.8},
		{"clamped in", 10, maxZoom},
		{"clamped out", 0.01, minZoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(t)
			a.zoomBy(tt.factor)
			if !near(a.ZoomTarget, tt.want) {
				t.Errorf("zoom target %f, want %f", a.ZoomTarget, tt.want)
			}
		})
	}

	a := testApp(t)
	a.Running = false
	a.zoomBy(2)
	a.advance(0.1)
	if !near(a.Zoom, 1.5) {
		t.Errorf("zoom after 100ms = %f, want halfway at 1.5", a.Zoom)
	}
	a.advance(1)
	if !near(a.Zoom, 2) {
		t.Errorf("zoom after a long frame = %f, want 2", a.Zoom)
	}
}

func TestParamEditing(t *testing.T) {
	a := testApp(t)
	n := len(a.ParamKeys)

	a.selectParam(-1)
	if a.ParamSel != n-1 {
		t.Errorf("selection wrapped to %d, want %d", a.ParamSel, n-1)
	}
	a.selectParam(1)
	if a.ParamSel != 0 {
		t.Errorf("selection wrapped to %d, want 0", a.ParamSel)
	}

	for a.ParamKeys[a.ParamSel] != "bar_length" {
		a.selectParam(1)
	}

	a.adjustParam(-20)
	a.apply()
	if a.Params.BarLength != 11 || a.Link.Params().BarLength != 11 {
		t.Errorf("negative bar length accepted: %v", a.Params.BarLength)
	}

	a.adjustParam(1)
	a.apply()
	if a.Link.Params().BarLength != 12 {
		t.Errorf("bar length %v, want 12", a.Link.Params().BarLength)
	}
	if len(a.Trail) != 0 {
		t.Error("applying parameters should clear the trail")
	}

	a.show(5)
	a.zoomBy(3)
	a.reset()
	if a.Index != 0 || a.Params != a.Initial || a.ZoomTarget != 1 {
		t.Errorf("reset: index %d params %+v zoom %f", a.Index, a.Params, a.ZoomTarget)
	}
	if a.Link.Params().BarLength != 11 {
		t.Errorf("reset kept bar length %v", a.Link.Params().BarLength)
	}
}

func TestTelemetryPoints(t *testing.T) {
	pts := telemetryPoints([]float64{1, 2, 3}, 0, 0, 300, 80)
	if len(pts) != 3 {
		t.Fatalf("got %d points", len(pts))
	}
	if !near(pts[0].X, 0) || !near(pts[0].Y, 80) {
		t.Errorf("minimum at (%f, %f), want bottom left", pts[0].X, pts[0].Y)
	}
	if !near(pts[2].X, 200) || !near(pts[2].Y, 0) {
		t.Errorf("maximum at (%f, %f), want (200, 0)", pts[2].X, pts[2].Y)
	}

	for _, p := range telemetryPoints([]float64{4, 4}, 10, 20, 300, 80) {
		if !near(p.Y, 100) {
			t.Errorf("flat series should sit on the bottom edge, got y=%f", p.Y)
		}
	}
}
