package linkage

import (
	"errors"
	"math"
	"testing"
)

func mustNew(t *testing.T, p Params) *Linkage {
	t.Helper()
	l, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestFirstFrame(t *testing.T) {
	l := mustNew(t, DefaultParams())
	f := l.Update(0)

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"x", f.X, 4},
		{"y", f.Y, 0},
		{"dx", f.DX, -1},
		{"dy", f.DY, math.Sqrt(120)},
		{"vertical", f.VerticalLength, 1 + 5*math.Sqrt(120)/11},
		{"theta", f.Theta, math.Atan2(math.Sqrt(120), 1)},
		{"lower end", f.LowerEnd.Y, math.Sqrt(120) - (1 + 5*math.Sqrt(120)/11)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.expected) > 1e-12 {
				t.Errorf("expected %f, got %f", tt.expected, tt.got)
			}
		})
	}

	if math.Abs(f.VerticalLength-5.979) > 1e-3 {
		t.Errorf("expected vertical length near 5.979, got %f", f.VerticalLength)
	}
}

func TestUpdateInvariants(t *testing.T) {
	p := DefaultParams()
	l := mustNew(t, p)

	for i, f := range l.Trace(1000) {
		if math.Abs(f.DX) > p.BarLength {
			t.Fatalf("frame %d: |dx| %f exceeds bar length", i, f.DX)
		}
		if f.DY < 0 {
			t.Fatalf("frame %d: negative dy %f", i, f.DY)
		}
		if math.Abs(f.DY*f.DY+f.DX*f.DX-p.BarLength*p.BarLength) > 1e-9 {
			t.Fatalf("frame %d: bar end off the circle", i)
		}
		if f.VerticalLength < 1 || f.VerticalLength > 6 {
			t.Fatalf("frame %d: vertical length %f outside [1, 6]", i, f.VerticalLength)
		}
		if f.Theta < 0 || f.Theta >= math.Pi/2 {
			t.Fatalf("frame %d: theta %f outside [0, pi/2)", i, f.Theta)
		}
		if math.Abs(f.BarLengthAt()-p.BarLength) > 1e-9 {
			t.Fatalf("frame %d: bar length %f", i, f.BarLengthAt())
		}
		if f.X < -p.Amplitude || f.X > p.Amplitude {
			t.Fatalf("frame %d: x %f outside amplitude", i, f.X)
		}
	}
}

func TestUpdateClamp(t *testing.T) {
	p := DefaultParams()
	p.BarLength = 2
	p.PivotX = 20
	l := mustNew(t, p)

	f := l.Update(0)
	if f.DX != -2 {
		t.Errorf("expected dx clamped to -2, got %f", f.DX)
	}
	if f.DY != 0 {
		t.Errorf("expected dy 0, got %f", f.DY)
	}
	if f.VerticalLength != 1 {
		t.Errorf("expected vertical length 1, got %f", f.VerticalLength)
	}
	if f.Theta != 0 {
		t.Errorf("expected theta 0, got %f", f.Theta)
	}
}

func TestUpdateAngleBounds(t *testing.T) {
	p := DefaultParams()
	p.PivotX = 0
	l := mustNew(t, p)

	var left, right int
	for i, f := range l.Trace(1000) {
		switch {
		case f.X <= p.PivotX:
			left++
			if f.Theta <= -math.Pi/2 || f.Theta > math.Pi/2 {
				t.Fatalf("frame %d: x %f left of pivot, theta %f outside (-pi/2, pi/2]", i, f.X, f.Theta)
			}
		default:
			right++
			// Past the pivot the bar leans back over the oscillating point.
			if f.Theta <= math.Pi/2 || f.Theta > math.Pi {
				t.Fatalf("frame %d: x %f right of pivot, theta %f outside (pi/2, pi]", i, f.X, f.Theta)
			}
		}
	}
	if left == 0 || right == 0 {
		t.Fatalf("trace did not cross the pivot: %d left, %d right", left, right)
	}

	// Clamped on the far side the bar lies flat pointing back.
	p = DefaultParams()
	p.BarLength = 2
	p.PivotX = -20
	f := mustNew(t, p).Update(0)
	if f.DX != 2 || f.DY != 0 || f.Theta != math.Pi {
		t.Errorf("clamp right of pivot: dx %f dy %f theta %f, want 2, 0, pi", f.DX, f.DY, f.Theta)
	}
}

func TestUpdateSegments(t *testing.T) {
	l := mustNew(t, DefaultParams())
	f := l.Update(37)

	if f.LineEnd != (Point{6, 0}) {
		t.Errorf("expected line to end at (6, 0), got %v", f.LineEnd)
	}
	if f.BarEnd.X != 5 || f.BarEnd.Y != f.DY {
		t.Errorf("unexpected bar end %v", f.BarEnd)
	}
	if math.Abs(f.BarEnd.Y-f.LowerEnd.Y-f.VerticalLength) > 1e-12 {
		t.Errorf("vertical segment does not match its length")
	}
}

func TestUpdatePeriodic(t *testing.T) {
	l := mustNew(t, DefaultParams())
	period := 2 * math.Pi / 0.05

	a, b := l.Update(3), l.Update(3+period)
	if math.Abs(a.X-b.X) > 1e-9 || math.Abs(a.DY-b.DY) > 1e-9 {
		t.Errorf("expected frames one period apart to match: %v vs %v", a, b)
	}
}

func TestValidate(t *testing.T) {
	for _, length := range []float64{0, -3, math.NaN()} {
		p := DefaultParams()
		p.BarLength = length
		if _, err := New(p); !errors.Is(err, ErrInvalidBarLength) {
			t.Errorf("bar length %v: expected ErrInvalidBarLength, got %v", length, err)
		}
	}
}

func TestTraceEmpty(t *testing.T) {
	l := mustNew(t, DefaultParams())
	if frames := l.Trace(0); len(frames) != 0 {
		t.Errorf("expected no frames, got %d", len(frames))
	}
}

func TestParamsSet(t *testing.T) {
	p := DefaultParams()

	for name := range p.Fields() {
		if err := p.Set(name, 7); err != nil {
			t.Errorf("Set(%q): %v", name, err)
		}
	}
	for name, v := range p.Fields() {
		if v != 7 {
			t.Errorf("%s: expected 7, got %f", name, v)
		}
	}

	if err := p.Set("mass", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
}
