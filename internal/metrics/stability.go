package metrics

import (
	"math"

	"github.com/san-kum/linksim/internal/dynamo"
)

// ForceModel exposes the spring forces of a state.
type ForceModel interface {
	SpringForces(x dynamo.State) (vert, horiz float64)
}

// SpringLoad is the fraction of samples during which the vertical spring
// pulls. PeakForce keeps the largest vertical force seen.
type SpringLoad struct {
	model   ForceModel
	loaded  int
	samples int
	peak    float64
}

func NewSpringLoad(model ForceModel) *SpringLoad {
	return &SpringLoad{model: model}
}

func (s *SpringLoad) Name() string { return "spring_load" }

func (s *SpringLoad) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	fv, _ := s.model.SpringForces(x)
	if fv > 0 {
		s.loaded++
	}
	s.peak = math.Max(s.peak, fv)
}

func (s *SpringLoad) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.loaded) / float64(s.samples)
}

func (s *SpringLoad) PeakForce() float64 { return s.peak }

func (s *SpringLoad) Reset() {
	s.loaded = 0
	s.samples = 0
	s.peak = 0
}

// Bounded is the fraction of samples whose components all stay within
// threshold in absolute value.
type Bounded struct {
	threshold  float64
	violations int
	samples    int
}

func NewBounded(threshold float64) *Bounded {
	return &Bounded{threshold: threshold}
}

func (b *Bounded) Name() string { return "bounded" }

func (b *Bounded) Observe(x dynamo.State, u dynamo.Control, t float64) {
	b.samples++
	for _, v := range x {
		if math.Abs(v) > b.threshold || math.IsNaN(v) {
			b.violations++
			break
		}
	}
}

func (b *Bounded) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounded) Reset() {
	b.violations = 0
	b.samples = 0
}
