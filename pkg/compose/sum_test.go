package compose

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/synthetic"
)

var _ = Describe("Sum", func() {
	var x *parameter.Vector

	BeforeEach(func() {
		x = parameter.MustVector("x", []float64{0.7})
	})

	It("adds gradients of providers sharing a parameter", func() {
		g1 := synthetic.MustFixed(x, []float64{2.5})
		g2 := normal(x, []float64{1}, []float64{0.5})
		sum, err := NewSum([]derivative.Provider{g1, g2})
		Expect(err).NotTo(HaveOccurred())

		for _, v := range []float64{-3, 0, 0.7, 4.2} {
			x.SetValue(0, v)
			want := g1.Gradient()[0] + g2.Gradient()[0]
			Expect(sum.Gradient()).To(Equal([]float64{want}))
		}
		expectCrossCheck(sum)
	})

	It("returns a single provider unchanged", func() {
		p := synthetic.NewStandardNormal(x)
		sum, err := NewSum([]derivative.Provider{p})
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(BeIdenticalTo(p))
	})

	It("counts a shared density term once", func() {
		prior := density.New("prior", func() float64 { return -1 })
		a := &derivative.Func{
			D:          density.NewCompound("a", density.New("lik-a", func() float64 { return -2 }), prior),
			P:          x,
			GradientFn: func() []float64 { return []float64{0} },
		}
		b := &derivative.Func{
			D:          density.NewCompound("b", prior, density.New("lik-b", func() float64 { return -4 })),
			P:          x,
			GradientFn: func() []float64 { return []float64{0} },
		}
		sum, err := NewSum([]derivative.Provider{a, b})
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Density().LogValue()).To(Equal(-7.0))
		Expect(sum.Density().Terms()).To(HaveLen(3))
	})

	It("rejects providers that do not share a point", func() {
		y := parameter.MustVector("y", []float64{0.8})
		_, err := NewSum([]derivative.Provider{synthetic.NewStandardNormal(x), synthetic.NewStandardNormal(y)})
		Expect(err).To(MatchError(derivative.ErrValueMismatch))

		z := parameter.MustVector("z", []float64{0.7, 1})
		_, err = NewSum([]derivative.Provider{synthetic.NewStandardNormal(x), synthetic.NewStandardNormal(z)})
		Expect(err).To(MatchError(derivative.ErrDimensionMismatch))

		_, err = NewSum(nil)
		Expect(err).To(MatchError(derivative.ErrEmptyProviders))
	})

	It("accepts distinct parameters holding identical values", func() {
		y := parameter.MustVector("y", []float64{0.7})
		_, err := NewSum([]derivative.Provider{synthetic.NewStandardNormal(x), synthetic.NewStandardNormal(y)})
		Expect(err).NotTo(HaveOccurred())
	})

	It("sums Hessians only when every constituent has one", func() {
		v := parameter.MustVector("v", []float64{0.1, 0.2})
		a := normal(v, []float64{0, 0}, []float64{1, 2})
		b := normal(v, []float64{1, 1}, []float64{0.5, 1})
		sum, err := NewSum([]derivative.Provider{a, b})
		Expect(err).NotTo(HaveOccurred())

		h := derivative.AsHessian(sum)
		Expect(h).NotTo(BeNil())
		Expect(h.DiagonalHessian()).To(Equal([]float64{-5, -1.25}))
		Expect(h.Hessian().At(0, 0)).To(Equal(-5.0))
		Expect(h.Hessian().At(0, 1)).To(Equal(0.0))

		partial, err := NewSum([]derivative.Provider{a, gradientOnly(b)})
		Expect(err).NotTo(HaveOccurred())
		Expect(derivative.CapabilitiesOf(partial)).To(Equal(derivative.Gradient))
		Expect(derivative.AsHessian(partial)).To(BeNil())
		Expect(func() { partial.(*Sum).Hessian() }).To(PanicWith(MatchError(derivative.ErrNotImplemented)))
		Expect(func() { partial.(*Sum).DiagonalHessian() }).To(PanicWith(MatchError(derivative.ErrNotImplemented)))
	})

	It("evaluates in parallel and falls back to serial after Close", func() {
		providers := make([]derivative.Provider, 6)
		for i := range providers {
			providers[i] = normal(x, []float64{float64(i)}, []float64{1 + float64(i)/4})
		}
		serial, err := NewSum(providers)
		Expect(err).NotTo(HaveOccurred())
		par, err := NewSum(providers, WithParallel(3))
		Expect(err).NotTo(HaveOccurred())

		Expect(par.Gradient()).To(Equal(serial.Gradient()))
		Expect(derivative.AsDiagonalHessian(par).DiagonalHessian()).To(Equal(derivative.AsDiagonalHessian(serial).DiagonalHessian()))

		Expect(Close(par)).To(Succeed())
		Expect(par.Gradient()).To(Equal(serial.Gradient()))
	})
})
