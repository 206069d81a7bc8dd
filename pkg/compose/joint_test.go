package compose

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/synthetic"
)

var _ = Describe("Joint", func() {
	var (
		a, b   *parameter.Vector
		pa, pb derivative.HessianProvider
	)

	BeforeEach(func() {
		a = parameter.MustVector("a", []float64{0.5, -1})
		b = parameter.MustVector("b", []float64{2, 0, 1.5})
		pa = normal(a, []float64{0, 0}, []float64{1, 2})
		pb = normal(b, []float64{1, 1, 1}, []float64{1, 1, 0.5})
	})

	It("stacks gradients at cumulative offsets", func() {
		joint, err := NewJoint([]derivative.Provider{pa, pb})
		Expect(err).NotTo(HaveOccurred())
		Expect(joint.Dimension()).To(Equal(5))
		Expect(joint.Parameter().Values()).To(Equal([]float64{0.5, -1, 2, 0, 1.5}))

		want := append(pa.Gradient(), pb.Gradient()...)
		Expect(joint.Gradient()).To(Equal(want))
		Expect(joint.DiagonalHessian()).To(Equal(append(pa.DiagonalHessian(), pb.DiagonalHessian()...)))
		expectCrossCheck(joint)
		expectDiagonalHessianCrossCheck(joint)
	})

	It("reports its layout and verifies an expected order", func() {
		joint, err := NewJoint([]derivative.Provider{pa, pb})
		Expect(err).NotTo(HaveOccurred())
		Expect(joint.Segments()).To(Equal([]Segment{
			{Name: "a", ParameterID: a.ID(), Offset: 0, Dimension: 2},
			{Name: "b", ParameterID: b.ID(), Offset: 2, Dimension: 3},
		}))
		Expect(joint.CheckOrder(a, b)).To(Succeed())
		Expect(joint.CheckOrder(b, a)).To(MatchError(derivative.ErrOrderMismatch))
		Expect(joint.CheckOrder(a)).To(MatchError(derivative.ErrOrderMismatch))

		_, err = NewJoint([]derivative.Provider{pa, pb}, WithOrder(b.ID(), a.ID()))
		Expect(err).To(MatchError(derivative.ErrOrderMismatch))
		_, err = NewJoint([]derivative.Provider{pa, pb}, WithOrder(a.ID(), b.ID()))
		Expect(err).NotTo(HaveOccurred())
	})

	It("builds a block diagonal Hessian", func() {
		joint, err := NewJoint([]derivative.Provider{pa, pb})
		Expect(err).NotTo(HaveOccurred())
		h := joint.Hessian()
		r, c := h.Dims()
		Expect(r).To(Equal(5))
		Expect(c).To(Equal(5))
		Expect(h.At(1, 1)).To(Equal(-0.25))
		Expect(h.At(4, 4)).To(Equal(-4.0))
		Expect(h.At(1, 2)).To(Equal(0.0))
	})

	It("deduplicates the joint density", func() {
		shared := density.New("shared", func() float64 { return 10 })
		fa := &derivative.Func{
			D: density.NewCompound("fa", pa.Density(), shared), P: a, GradientFn: pa.Gradient,
		}
		fb := &derivative.Func{
			D: density.NewCompound("fb", pb.Density(), shared), P: b, GradientFn: pb.Gradient,
		}
		joint, err := NewJoint([]derivative.Provider{fa, fb})
		Expect(err).NotTo(HaveOccurred())
		want := pa.Density().LogValue() + pb.Density().LogValue() + 10
		Expect(joint.Density().LogValue()).To(BeNumerically("~", want, 1e-12))
	})

	It("writes through to the constituent parameters", func() {
		joint, err := NewJoint([]derivative.Provider{pa, pb})
		Expect(err).NotTo(HaveOccurred())
		joint.Parameter().SetValue(3, 7)
		Expect(b.Value(1)).To(Equal(7.0))
	})

	It("matches serial evaluation when parallel", func() {
		c := parameter.MustVector("c", []float64{3})
		providers := []derivative.Provider{pa, pb, synthetic.MustFixed(c, []float64{-2})}
		serial, err := NewJoint(providers)
		Expect(err).NotTo(HaveOccurred())
		par, err := NewJoint(providers, WithParallel(0))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(par.Close)
		Expect(par.Gradient()).To(Equal(serial.Gradient()))
	})

	It("rejects an empty list", func() {
		_, err := NewJoint(nil)
		Expect(err).To(MatchError(derivative.ErrEmptyProviders))
	})
})
