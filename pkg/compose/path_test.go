package compose

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/synthetic"
)

var _ = Describe("Path", func() {
	var (
		x           *parameter.Vector
		source, dst *synthetic.Counting
	)

	BeforeEach(func() {
		x = parameter.MustVector("x", []float64{0.2, -0.7, 1.1})
		source = synthetic.NewCounting(normal(x, []float64{0, 0, 0}, []float64{1, 1, 1}))
		dst = synthetic.NewCounting(normal(x, []float64{1, -1, 2}, []float64{0.5, 2, 1.5}))
	})

	It("evaluates only the source at beta 1", func() {
		path, err := NewPath(source, dst)
		Expect(err).NotTo(HaveOccurred())
		Expect(path.Beta()).To(Equal(1.0))

		Expect(path.Gradient()).To(Equal(source.Inner().Gradient()))
		Expect(path.Density().LogValue()).To(Equal(source.Inner().Density().LogValue()))
		Expect(path.DiagonalHessian()).To(HaveLen(3))
		Expect(dst.TotalCalls()).To(BeZero())
	})

	It("evaluates only the destination at beta 0", func() {
		path, err := NewPath(source, dst)
		Expect(err).NotTo(HaveOccurred())
		Expect(path.SetBeta(0)).To(Succeed())

		Expect(path.Gradient()).To(Equal(dst.Inner().Gradient()))
		Expect(path.Density().LogValue()).To(Equal(dst.Inner().Density().LogValue()))
		Expect(source.TotalCalls()).To(BeZero())
	})

	It("leaves the constituents' gradient buffers untouched", func() {
		sourceBuf := source.Inner().Gradient()
		destBuf := dst.Inner().Gradient()
		keepSource, keepDest := append([]float64(nil), sourceBuf...), append([]float64(nil), destBuf...)
		shared := func(p derivative.Provider, buf []float64) derivative.Provider {
			return &derivative.Func{D: p.Density(), P: p.Parameter(), GradientFn: func() []float64 { return buf }}
		}
		path, err := NewPath(shared(source, sourceBuf), shared(dst, destBuf))
		Expect(err).NotTo(HaveOccurred())
		Expect(path.SetBeta(0.4)).To(Succeed())

		first := path.Gradient()
		Expect(path.Gradient()).To(Equal(first))
		Expect(sourceBuf).To(Equal(keepSource))
		Expect(destBuf).To(Equal(keepDest))
	})

	It("blends in between", func() {
		path, err := NewPath(source, dst)
		Expect(err).NotTo(HaveOccurred())
		Expect(path.SetBeta(0.25)).To(Succeed())

		gs, gd := source.Inner().Gradient(), dst.Inner().Gradient()
		want := make([]float64, 3)
		for i := range want {
			want[i] = 0.25*gs[i] + 0.75*gd[i]
		}
		expectClose(path.Gradient(), want)

		hs := source.Inner().(derivative.DiagonalHessianProvider).DiagonalHessian()
		hd := dst.Inner().(derivative.DiagonalHessianProvider).DiagonalHessian()
		for i := range want {
			want[i] = 0.25*hs[i] + 0.75*hd[i]
		}
		expectClose(path.DiagonalHessian(), want)

		Expect(path.Density().LogValue()).To(BeNumerically("~",
			0.25*source.Inner().Density().LogValue()+0.75*dst.Inner().Density().LogValue(), 1e-12))
		expectCrossCheck(path)
		expectDiagonalHessianCrossCheck(path)
	})

	It("rejects beta outside the unit interval", func() {
		path, err := NewPath(source, dst)
		Expect(err).NotTo(HaveOccurred())
		for _, beta := range []float64{-0.1, 1.5, math.NaN()} {
			Expect(path.SetBeta(beta)).To(MatchError(derivative.ErrBetaOutOfRange))
		}
		Expect(path.Beta()).To(Equal(1.0))
	})

	It("requires both sides to share a point", func() {
		other := parameter.MustVector("y", []float64{0.2, -0.7, 1.2})
		_, err := NewPath(source, normal(other, []float64{0, 0, 0}, []float64{1, 1, 1}))
		Expect(err).To(MatchError(derivative.ErrValueMismatch))

		short := parameter.MustVector("z", []float64{0.2})
		_, err = NewPath(source, normal(short, []float64{0}, []float64{1}))
		Expect(err).To(MatchError(derivative.ErrDimensionMismatch))
	})

	It("never offers a full Hessian", func() {
		path, err := NewPath(source, dst)
		Expect(err).NotTo(HaveOccurred())
		Expect(derivative.CapabilitiesOf(path).Has(derivative.FullHessian)).To(BeFalse())
	})
})
