package linkage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/linksim/internal/linkage"
)

var _ = Describe("History", func() {
	It("keeps the most recent values", func() {
		h := linkage.NewHistory(3)
		for _, v := range []float64{1, 2, 3, 4, 5} {
			h.Push(v)
		}

		Expect(h.Len()).To(Equal(3))
		Expect(h.Values()).To(Equal([]float64{3, 4, 5}))

		last, ok := h.Last()
		Expect(ok).To(BeTrue())
		Expect(last).To(Equal(5.0))
	})

	It("never exceeds its capacity", func() {
		h := linkage.NewHistory(10)
		for i := 0; i < 1000; i++ {
			h.Push(float64(i))
			Expect(h.Len()).To(BeNumerically("<=", 10))
		}
	})

	It("empties on reset", func() {
		h := linkage.NewHistory(2)
		h.Push(1)
		h.Reset()

		_, ok := h.Last()
		Expect(ok).To(BeFalse())
		Expect(h.Values()).To(BeEmpty())
	})

	It("clamps the capacity to one", func() {
		Expect(linkage.NewHistory(0).Capacity()).To(Equal(1))
	})
})

var _ = Describe("Trends", func() {
	It("records every tracked quantity of a frame", func() {
		l, err := linkage.New(linkage.DefaultParams())
		Expect(err).NotTo(HaveOccurred())

		tr := linkage.NewTrends(50)
		for _, f := range l.Trace(80) {
			tr.Record(f)
		}

		Expect(tr.X.Len()).To(Equal(50))
		Expect(tr.Theta.Len()).To(Equal(50))

		last := l.Update(79)
		Expect(tr.DY.Values()[49]).To(Equal(last.DY))
		Expect(tr.Vertical.Values()[49]).To(Equal(last.VerticalLength))

		tr.Reset()
		Expect(tr.X.Len()).To(BeZero())
	})
})
