package compose

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/synthetic"
)

var _ = Describe("Compact", func() {
	var a, b *parameter.Vector

	BeforeEach(func() {
		a = parameter.MustVector("a", []float64{0.4, 1.1})
		b = parameter.MustVector("b", []float64{-0.3})
	})

	It("folds repeated sub-parameters onto their first occurrence", func() {
		joint, err := NewJoint([]derivative.Provider{
			synthetic.MustFixed(a, []float64{1, 2}),
			synthetic.MustFixed(b, []float64{3}),
			synthetic.MustFixed(a, []float64{10, 20}),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(joint.Dimension()).To(Equal(5))

		compact, err := NewCompact(joint)
		Expect(err).NotTo(HaveOccurred())
		Expect(compact.Dimension()).To(Equal(3))
		Expect(compact.Map()).To(Equal([]int{0, 1, 2, 0, 1}))
		Expect(compact.Gradient()).To(Equal([]float64{11, 22, 3}))
		Expect(compact.Parameter().Values()).To(Equal([]float64{0.4, 1.1, -0.3}))
	})

	It("passes the cross-check with repeated coordinates", func() {
		joint, err := NewJoint([]derivative.Provider{
			normal(a, []float64{0, 1}, []float64{1, 2}),
			normal(b, []float64{0}, []float64{1}),
			normal(a, []float64{1, -1}, []float64{0.5, 1}),
		})
		Expect(err).NotTo(HaveOccurred())
		compact, err := NewCompact(joint)
		Expect(err).NotTo(HaveOccurred())

		expectCrossCheck(compact)
		expectDiagonalHessianCrossCheck(compact)
		expectClose(compact.DiagonalHessian(), []float64{-5, -1.25, -1})

		h := compact.Hessian()
		Expect(h.At(0, 0)).To(Equal(-5.0))
		Expect(h.At(0, 1)).To(Equal(0.0))
	})

	It("folds cross terms between occurrences into the diagonal", func() {
		// L = c0 * c2 over the compound (a, a); both factors are a[0].
		compound := parameter.MustCompound("aa", a, a)
		f := &derivative.Func{
			D: density.New("product", func() float64 { return compound.Value(0) * compound.Value(2) }),
			P: compound,
			GradientFn: func() []float64 {
				return []float64{compound.Value(2), 0, compound.Value(0), 0}
			},
			HessianFn: func() *mat.SymDense {
				h := mat.NewSymDense(4, nil)
				h.SetSym(0, 2, 1)
				return h
			},
		}

		compact, err := NewCompact(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(compact.Gradient()).To(Equal([]float64{2 * a.Value(0), 0}))
		Expect(compact.DiagonalHessian()).To(Equal([]float64{2, 0}))
		Expect(compact.Hessian().At(0, 0)).To(Equal(2.0))
		expectCrossCheck(compact)
	})

	It("requires a diagonal-only constituent to have no repeats", func() {
		joint, err := NewJoint([]derivative.Provider{
			synthetic.NewCounting(normal(a, []float64{0, 0}, []float64{1, 1})),
			synthetic.NewCounting(normal(a, []float64{0, 0}, []float64{1, 1})),
		})
		Expect(err).NotTo(HaveOccurred())
		withoutFull := &derivative.Func{
			D:              joint.Density(),
			P:              joint.Parameter(),
			GradientFn:     joint.Gradient,
			DiagonalHessFn: joint.DiagonalHessian,
		}
		compact, err := NewCompact(withoutFull)
		Expect(err).NotTo(HaveOccurred())
		Expect(derivative.CapabilitiesOf(compact)).To(Equal(derivative.Gradient))
		Expect(func() { compact.DiagonalHessian() }).To(PanicWith(MatchError(derivative.ErrNotImplemented)))
	})

	It("fails on a parameter that is not compound", func() {
		_, err := NewCompact(synthetic.NewStandardNormal(a))
		Expect(err).To(MatchError(derivative.ErrNotCompound))
	})
})
