package compose

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/diagnostics"
	"github.com/phylo-inference/gradcompose/pkg/numeric"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/transform"
)

// bits captures the exact bit patterns of a parameter's values.
func bits(p parameter.Parameter) []uint64 {
	out := make([]uint64, p.Dimension())
	for i, v := range p.Values() {
		out[i] = math.Float64bits(v)
	}
	return out
}

var _ = Describe("Checking through parameter views", func() {
	var y *parameter.Vector

	BeforeEach(func() {
		y = parameter.MustVector("y", []float64{0.8, 1.3, 0.1, 7.77, 2.2, 5.5, 0.35, 13.1},
			parameter.WithUniformBounds(0, 20))
	})

	type build func() derivative.Provider

	exposedThrough := func(u transform.Univariate) build {
		return func() derivative.Provider {
			inner := normal(y, make([]float64, 8), []float64{1, 2, 1, 3, 1, 2, 1, 4})
			tr, err := NewTransformed(inner, transform.Elementwise(u, 8), WithJacobian())
			Expect(err).NotTo(HaveOccurred())
			return tr
		}
	}

	DescribeTable("leaves the model parameter bit-identical",
		func(b build) {
			p := b()
			before := bits(y)
			ctx := context.Background()

			checker, err := numeric.NewChecker(nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = checker.Check(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(bits(y)).To(Equal(before))

			if dh := derivative.AsDiagonalHessian(p); dh != nil &&
				derivative.CapabilitiesOf(p).Has(derivative.DiagonalHessian) {
				_, err = checker.CheckDiagonalHessian(ctx, dh)
				Expect(err).NotTo(HaveOccurred())
				Expect(bits(y)).To(Equal(before))
			}

			dl, err := diagnostics.NewLogger(p, nil)
			Expect(err).NotTo(HaveOccurred())
			for state := int64(0); state < 3; state++ {
				_, err = dl.Log(ctx, state)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(bits(y)).To(Equal(before))
		},
		Entry("exp transform", exposedThrough(transform.Exp())),
		Entry("logistic transform", exposedThrough(transform.Logistic(0, 20))),
		Entry("log increments", build(func() derivative.Provider {
			sorted := parameter.MustVector("sorted", []float64{0.1, 0.35, 0.8, 1.3, 2.2, 5.5, 7.77, 13.1})
			y = sorted
			inc, err := NewIncrement(normal(sorted, make([]float64, 8), []float64{1, 2, 1, 3, 1, 2, 1, 4}),
				transform.IncrementLog, 0, 0, WithJacobian())
			Expect(err).NotTo(HaveOccurred())
			return inc
		})),
		Entry("logit increments", build(func() derivative.Provider {
			sorted := parameter.MustVector("sorted", []float64{0.1, 0.35, 0.8, 1.3, 2.2, 5.5, 7.77, 13.1},
				parameter.WithUniformBounds(0, 20))
			y = sorted
			inc, err := NewIncrement(normal(sorted, make([]float64, 8), []float64{1, 2, 1, 3, 1, 2, 1, 4}),
				transform.IncrementLogit, 0, 20, WithJacobian())
			Expect(err).NotTo(HaveOccurred())
			return inc
		})),
		Entry("mask over a transform", build(func() derivative.Provider {
			tr := exposedThrough(transform.Exp())()
			m, err := NewMask(tr, parameter.MustVector("mask", []float64{1, 0, 1, 1, 0, 1, 0, 1}))
			Expect(err).NotTo(HaveOccurred())
			return m
		})),
	)
})
