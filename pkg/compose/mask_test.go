package compose

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/synthetic"
)

var _ = Describe("Mask", func() {
	var (
		x        *parameter.Vector
		gaussian *synthetic.Gaussian
	)

	BeforeEach(func() {
		x = parameter.MustVector("x", []float64{0.1, 0.2, 0.3, 0.4})
		prec := mat.NewSymDense(4, []float64{
			2, 0.5, 0.1, 0,
			0.5, 3, 0, 0.2,
			0.1, 0, 1, 0.3,
			0, 0.2, 0.3, 4,
		})
		var err error
		gaussian, err = synthetic.NewGaussian(x, []float64{0, 1, -1, 0.5}, prec)
		Expect(err).NotTo(HaveOccurred())
	})

	It("gathers the selected coordinates", func() {
		indicator := parameter.MustVector("mask", []float64{1, 0, 1, 0})
		masked, err := NewMask(gaussian, indicator)
		Expect(err).NotTo(HaveOccurred())

		full := gaussian.Gradient()
		Expect(masked.Dimension()).To(Equal(2))
		Expect(masked.Gradient()).To(Equal([]float64{full[0], full[2]}))
		Expect(masked.Indices()).To(Equal([]int{0, 2}))
		Expect(masked.InverseIndices()).To(Equal([]int{0, -1, 1, -1}))

		fullDiag := gaussian.DiagonalHessian()
		Expect(masked.DiagonalHessian()).To(Equal([]float64{fullDiag[0], fullDiag[2]}))
		h := masked.Hessian()
		Expect(h.At(0, 1)).To(Equal(gaussian.Hessian().At(0, 2)))
	})

	It("holds for any gradient value", func() {
		indicator := parameter.MustVector("mask", []float64{1, 0, 1, 0})
		masked, err := NewMask(gaussian, indicator)
		Expect(err).NotTo(HaveOccurred())
		for _, values := range [][]float64{{5, -1, 2, 0}, {-3, 3, -3, 3}} {
			Expect(parameter.SetValues(x, values)).To(Succeed())
			full := gaussian.Gradient()
			Expect(masked.Gradient()).To(Equal([]float64{full[0], full[2]}))
		}
	})

	It("passes the cross-check on the reduced parameter", func() {
		indicator := parameter.MustVector("mask", []float64{0, 1, 1, 0})
		masked, err := NewMask(gaussian, indicator)
		Expect(err).NotTo(HaveOccurred())
		expectCrossCheck(masked)
		expectDiagonalHessianCrossCheck(masked)
	})

	It("writes through the reduced parameter", func() {
		indicator := parameter.MustVector("mask", []float64{0, 0, 1, 1})
		masked, err := NewMask(gaussian, indicator)
		Expect(err).NotTo(HaveOccurred())
		masked.Parameter().SetValue(1, 9)
		Expect(x.Value(3)).To(Equal(9.0))
	})

	It("panics when the mask changes after construction", func() {
		indicator := parameter.MustVector("mask", []float64{1, 0, 1, 0})
		_, err := NewMask(gaussian, indicator)
		Expect(err).NotTo(HaveOccurred())
		Expect(func() { indicator.SetValue(1, 1) }).To(PanicWith(MatchError(derivative.ErrMaskImmutable)))
	})

	It("panics on the next evaluation after a quiet change to the mask", func() {
		indicator := parameter.MustVector("mask", []float64{1, 0, 1, 0})
		masked, err := NewMask(gaussian, indicator)
		Expect(err).NotTo(HaveOccurred())
		indicator.SetValueQuietly(3, 1)
		Expect(func() { masked.Gradient() }).To(PanicWith(MatchError(derivative.ErrMaskImmutable)))
		Expect(func() { masked.DiagonalHessian() }).To(PanicWith(MatchError(derivative.ErrMaskImmutable)))
		Expect(func() { masked.Hessian() }).To(PanicWith(MatchError(derivative.ErrMaskImmutable)))
	})

	It("rejects empty and mismatched masks", func() {
		_, err := NewMask(gaussian, parameter.MustVector("mask", []float64{0, 0, 0, 0}))
		Expect(err).To(MatchError(derivative.ErrEmptyMask))
		_, err = NewMask(gaussian, parameter.MustVector("mask", []float64{1, 1}))
		Expect(err).To(MatchError(derivative.ErrDimensionMismatch))
	})

	It("reports what the wrapped provider supports", func() {
		indicator := parameter.MustVector("mask", []float64{1, 1, 0, 0})
		masked, err := NewMask(gradientOnly(gaussian), indicator)
		Expect(err).NotTo(HaveOccurred())
		Expect(derivative.CapabilitiesOf(masked)).To(Equal(derivative.Gradient))
		Expect(func() { masked.Hessian() }).To(PanicWith(MatchError(derivative.ErrNotImplemented)))
	})
})
