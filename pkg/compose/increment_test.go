package compose

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/transform"
)

var _ = Describe("Increment", func() {
	var (
		heights  *parameter.Vector
		provider derivative.Provider
	)

	BeforeEach(func() {
		heights = parameter.MustVector("heights", []float64{0.3, 0.8, 1.4, 2.5}, parameter.WithUniformBounds(0, 5))
		provider = normal(heights, []float64{0.5, 1, 1.5, 2}, []float64{0.4, 0.6, 0.8, 1})
	})

	DescribeTable("matches the finite-difference gradient",
		func(kind transform.IncrementKind, opts ...Option) {
			inc, err := NewIncrement(provider, kind, 0, 5, opts...)
			Expect(err).NotTo(HaveOccurred())
			expectCrossCheck(inc)
		},
		Entry("log", transform.IncrementLog),
		Entry("log with Jacobian", transform.IncrementLog, WithJacobian()),
		Entry("logit", transform.IncrementLogit),
		Entry("logit with Jacobian", transform.IncrementLogit, WithJacobian()),
		Entry("logit negated with Jacobian", transform.IncrementLogit, WithJacobian(), WithNegation()),
	)

	It("round-trips the parameter through increments", func() {
		inc, err := NewIncrement(provider, transform.IncrementLog, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		x := inc.Parameter().Values()
		expectClose(x, []float64{math.Log(0.3), math.Log(0.8 / 0.3), math.Log(1.4 / 0.8), math.Log(2.5 / 1.4)})
		expectClose(inc.Transform().Apply(x), heights.Values())
	})

	It("pulls the gradient back through the Jacobian transpose", func() {
		for _, kind := range []transform.IncrementKind{transform.IncrementLog, transform.IncrementLogit} {
			inc, err := NewIncrement(provider, kind, 0, 5)
			Expect(err).NotTo(HaveOccurred())

			x := inc.Parameter().Values()
			var want mat.VecDense
			want.MulVec(inc.Transform().Jacobian(x).T(), mat.NewVecDense(4, provider.Gradient()))
			expectClose(inc.Gradient(), want.RawVector().Data)
			Expect(derivative.CapabilitiesOf(inc)).To(Equal(derivative.Gradient))
		}
	})

	It("rejects logit increments without finite bounds", func() {
		_, err := NewIncrement(provider, transform.IncrementLogit, 0, math.Inf(1))
		Expect(err).To(HaveOccurred())
	})
})
