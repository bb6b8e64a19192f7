package linkage

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidBarLength = errors.New("linkage: bar length must be positive")
	ErrUnknownParam     = errors.New("linkage: unknown parameter")
)

// Params holds the geometry and drive of the linkage.
type Params struct {
	BarLength float64 `yaml:"bar_length" toml:"bar_length"`
	Amplitude float64 `yaml:"amplitude" toml:"amplitude"`
	Omega     float64 `yaml:"omega" toml:"omega"`
	PivotX    float64 `yaml:"pivot_x" toml:"pivot_x"`
	LineEndX  float64 `yaml:"line_end_x" toml:"line_end_x"`

	// Vertical segment length is BaseLength + Gain*(DY/BarLength).
	BaseLength float64 `yaml:"base_length" toml:"base_length"`
	Gain       float64 `yaml:"gain" toml:"gain"`
}

func DefaultParams() Params {
	return Params{
		BarLength:  11,
		Amplitude:  4,
		Omega:      0.05,
		PivotX:     5,
		LineEndX:   6,
		BaseLength: 1,
		Gain:       5,
	}
}

func (p Params) Validate() error {
	if !(p.BarLength > 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidBarLength, p.BarLength)
	}
	return nil
}

// Fields returns the tunable parameters by name.
func (p Params) Fields() map[string]float64 {
	return map[string]float64{
		"bar_length":  p.BarLength,
		"amplitude":   p.Amplitude,
		"omega":       p.Omega,
		"pivot_x":     p.PivotX,
		"line_end_x":  p.LineEndX,
		"base_length": p.BaseLength,
		"gain":        p.Gain,
	}
}

// Set changes one parameter by the name used in Fields.
func (p *Params) Set(name string, value float64) error {
	switch name {
	case "bar_length":
		p.BarLength = value
	case "amplitude":
		p.Amplitude = value
	case "omega":
		p.Omega = value
	case "pivot_x":
		p.PivotX = value
	case "line_end_x":
		p.LineEndX = value
	case "base_length":
		p.BaseLength = value
	case "gain":
		p.Gain = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}

type Point struct {
	X, Y float64
}

// Frame is the configuration of the linkage at one instant.
type Frame struct {
	T float64

	// Oscillating point on the horizontal axis.
	X, Y float64

	// Bar end relative to the oscillating point. DX is clamped to the bar
	// length, DY is the height of the bar end and never negative.
	DX, DY float64

	VerticalLength float64
	Theta          float64

	LineEnd  Point
	BarEnd   Point
	LowerEnd Point
}

// Linkage produces frames for a fixed set of parameters.
type Linkage struct {
	params Params
}

func New(p Params) (*Linkage, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Linkage{params: p}, nil
}

func (l *Linkage) Params() Params { return l.params }

// Update computes the frame at time t. t is the frame index when driven by
// the animation loop.
func (l *Linkage) Update(t float64) Frame {
	p := l.params

	x := p.Amplitude * math.Cos(p.Omega*t)
	y := 0.0

	dx := x - p.PivotX
	if math.Abs(dx) > p.BarLength {
		dx = math.Copysign(p.BarLength, dx)
	}
	dy := math.Sqrt(p.BarLength*p.BarLength - dx*dx)

	// dy is never negative; the min keeps the segment length anchored at
	// BaseLength should that ever change.
	vertical := p.BaseLength + p.Gain*((dy-math.Min(0, dy))/p.BarLength)

	return Frame{
		T:              t,
		X:              x,
		Y:              y,
		DX:             dx,
		DY:             dy,
		VerticalLength: vertical,
		Theta:          math.Atan2(dy, p.PivotX-x),
		LineEnd:        Point{p.LineEndX, y},
		BarEnd:         Point{p.PivotX, dy},
		LowerEnd:       Point{p.PivotX, dy - vertical},
	}
}

// Trace returns the frames for indices 0..n-1.
func (l *Linkage) Trace(n int) []Frame {
	if n <= 0 {
		return nil
	}
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = l.Update(float64(i))
	}
	return frames
}

// BarLengthAt is the distance between the oscillating point and the bar end.
func (f Frame) BarLengthAt() float64 {
	return math.Hypot(f.BarEnd.X-f.X, f.BarEnd.Y-f.Y)
}
