package physics_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/integrators"
	"github.com/san-kum/linksim/internal/physics"
)

func solve(p *physics.SpringPendulum, duration float64, samples int) *dynamo.Result {
	cfg := dynamo.DefaultConfig()
	cfg.Adaptive = true
	cfg.Duration = duration
	cfg.Samples = samples
	cfg.Tolerance = 1e-8
	cfg.AbsTolerance = 1e-10

	res, err := dynamo.New(p, integrators.NewRK45()).Run(context.Background(), p.DefaultState(), cfg)
	Expect(err).NotTo(HaveOccurred())
	return res
}

var _ = Describe("SpringPendulum", func() {
	var p *physics.SpringPendulum

	BeforeEach(func() {
		p = physics.NewSpringPendulum()
	})

	Context("without damping", func() {
		It("conserves energy over the full horizon", func() {
			res := solve(p, 500, 2000)

			Expect(res.States).To(HaveLen(2000))
			Expect(res.Times[len(res.Times)-1]).To(Equal(500.0))
			Expect(res.EnergyDrift).To(BeNumerically("<", 1e-3))
		})

		It("stretches the vertical spring once the mass has fallen", func() {
			res := solve(p, 20, 200)

			stretched := false
			for _, x := range res.States {
				if fv, _ := p.SpringForces(x); fv > 0 {
					stretched = true
					break
				}
			}
			Expect(stretched).To(BeTrue())
		})

		It("never loads the horizontal spring at its natural length", func() {
			res := solve(p, 50, 500)

			for _, x := range res.States {
				_, fh := p.SpringForces(x)
				Expect(fh).To(BeZero())
			}
		})
	})

	Context("with damping", func() {
		BeforeEach(func() {
			p.Damping = 0.5
		})

		It("loses energy monotonically", func() {
			res := solve(p, 100, 1000)

			prev := p.Energy(res.States[0])
			for _, x := range res.States[1:] {
				e := p.Energy(x)
				Expect(e).To(BeNumerically("<=", prev+1e-7))
				prev = e
			}
			Expect(prev).To(BeNumerically("<", p.Energy(res.States[0])))
		})
	})
})
