package compose

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/synthetic"
	"github.com/phylo-inference/gradcompose/pkg/transform"
)

// opaque hides every optional interface of the wrapped transform.
type opaque struct {
	transform.Transform
}

var _ = Describe("Transformed", func() {
	var (
		y         *parameter.Vector
		quadratic *synthetic.IndependentNormal
	)

	BeforeEach(func() {
		y = parameter.MustVector("y", []float64{1.5, 0.4, 2.2}, parameter.WithUniformBounds(0, math.Inf(1)))
		quadratic = normal(y, []float64{1, 0.5, 2}, []float64{0.7, 1.2, 0.3})
	})

	exp := func() transform.Transform { return transform.Elementwise(transform.Exp(), 3) }

	It("applies the chain rule for y = exp(x)", func() {
		tr, err := NewTransformed(quadratic, exp())
		Expect(err).NotTo(HaveOccurred())

		x := tr.Parameter().Values()
		expectClose(x, []float64{math.Log(1.5), math.Log(0.4), math.Log(2.2)})
		gy := quadratic.Gradient()
		got := tr.Gradient()
		for i := range got {
			Expect(got[i]).To(BeNumerically("~", gy[i]*math.Exp(x[i]), 1e-12))
		}
		report := expectCrossCheck(tr)
		for i := range got {
			Expect(report.Numeric[i]).To(BeNumerically("~", got[i], 1e-4*(1+math.Abs(got[i]))))
		}
	})

	It("adds the log-Jacobian correction", func() {
		tr, err := NewTransformed(quadratic, exp(), WithJacobian())
		Expect(err).NotTo(HaveOccurred())
		gy := quadratic.Gradient()
		got := tr.Gradient()
		for i := range got {
			Expect(got[i]).To(BeNumerically("~", gy[i]*y.Value(i)+1, 1e-12))
		}
		Expect(tr.Density().Terms()).To(HaveLen(2))
		expectCrossCheck(tr)
		expectDiagonalHessianCrossCheck(tr)
	})

	It("supplies second derivatives for separable transforms", func() {
		for _, opts := range [][]Option{nil, {WithJacobian()}, {WithNegation()}, {WithJacobian(), WithNegation()}} {
			tr, err := NewTransformed(quadratic, transform.NewCollection(transform.Exp(), transform.Logistic(0, 3), transform.Identity()), opts...)
			Expect(err).NotTo(HaveOccurred())
			expectCrossCheck(tr)
			expectDiagonalHessianCrossCheck(tr)

			h := tr.Hessian()
			expectClose([]float64{h.At(0, 0), h.At(1, 1), h.At(2, 2)}, tr.DiagonalHessian())
		}
	})

	It("negates the wrapped density", func() {
		plain, err := NewTransformed(quadratic, exp())
		Expect(err).NotTo(HaveOccurred())
		negated, err := NewTransformed(quadratic, exp(), WithNegation())
		Expect(err).NotTo(HaveOccurred())
		expectClose(negated.Gradient(), scale(-1, plain.Gradient()))
		Expect(negated.Density().LogValue()).To(Equal(-quadratic.Density().LogValue()))
		expectCrossCheck(negated)
	})

	It("inverts the transform", func() {
		viaLog, err := NewTransformed(quadratic, transform.Elementwise(transform.Log(), 3), WithInverse(), WithJacobian())
		Expect(err).NotTo(HaveOccurred())
		viaExp, err := NewTransformed(quadratic, exp(), WithJacobian())
		Expect(err).NotTo(HaveOccurred())
		expectClose(viaLog.Gradient(), viaExp.Gradient())
	})

	It("maps bounds onto the exposed coordinates", func() {
		tr, err := NewTransformed(quadratic, exp())
		Expect(err).NotTo(HaveOccurred())
		lo, hi := tr.Parameter().Bounds(0)
		Expect(math.IsInf(lo, -1)).To(BeTrue())
		Expect(math.IsInf(hi, 1)).To(BeTrue())
	})

	It("writes exposed values through the transform", func() {
		tr, err := NewTransformed(quadratic, exp())
		Expect(err).NotTo(HaveOccurred())
		tr.Parameter().SetValue(1, 0)
		Expect(y.Value(1)).To(Equal(1.0))
	})

	Context("with a non-separable transform", func() {
		var linear *transform.Linear

		BeforeEach(func() {
			var err error
			linear, err = transform.NewLinear(mat.NewDense(3, 3, []float64{
				1, 0.5, 0,
				0, 2, 0.1,
				0.3, 0, 1,
			}), []float64{0.5, 0, 1})
			Expect(err).NotTo(HaveOccurred())
		})

		It("uses the pull-back when available", func() {
			tr, err := NewTransformed(quadratic, linear)
			Expect(err).NotTo(HaveOccurred())
			expectCrossCheck(tr)
			Expect(derivative.CapabilitiesOf(tr)).To(Equal(derivative.Gradient))
			Expect(func() { tr.DiagonalHessian() }).To(PanicWith(MatchError(derivative.ErrNotImplemented)))
		})

		It("uses the Jacobian matrix otherwise", func() {
			tr, err := NewTransformed(quadratic, opaque{linear}, WithJacobian())
			Expect(err).NotTo(HaveOccurred())
			viaPullBack, err := NewTransformed(quadratic, linear, WithJacobian())
			Expect(err).NotTo(HaveOccurred())
			expectClose(tr.Gradient(), viaPullBack.Gradient())
			expectCrossCheck(tr)
		})

		It("refuses to drop the Jacobian without a pull-back", func() {
			_, err := NewTransformed(quadratic, opaque{linear})
			Expect(err).To(MatchError(derivative.ErrNotImplemented))
		})

		It("supports the inverse direction", func() {
			tr, err := NewTransformed(quadratic, linear, WithInverse(), WithJacobian())
			Expect(err).NotTo(HaveOccurred())
			expectCrossCheck(tr)
		})
	})

	It("rejects a transform of the wrong dimension", func() {
		_, err := NewTransformed(quadratic, transform.Elementwise(transform.Exp(), 2))
		Expect(err).To(MatchError(derivative.ErrDimensionMismatch))
	})
})

func scale(a float64, v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = a * x
	}
	return out
}
