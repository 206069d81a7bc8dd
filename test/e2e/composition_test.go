package e2e

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/phylo-inference/gradcompose/internal/reference"
	"github.com/phylo-inference/gradcompose/pkg/compose"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/diagnostics"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/synthetic"
	"github.com/phylo-inference/gradcompose/pkg/transform"
)

var _ = Describe("Reference composition", func() {
	var serial, parallel *reference.Composition

	BeforeEach(func() {
		var err error
		serial, err = reference.Build(reference.Options{Beta: 0.5})
		Expect(err).NotTo(HaveOccurred())
		parallel, err = reference.Build(reference.Options{Beta: 0.5, Parallel: true, Workers: 2})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(serial.Close()).To(Succeed())
			Expect(parallel.Close()).To(Succeed())
		})
	})

	It("passes the cross-check at every stage", func() {
		for _, stage := range serial.Stages {
			By("checking " + stage.Name)
			expectGradientAgrees(stage.Provider)
			if dh := derivative.AsDiagonalHessian(stage.Provider); dh != nil &&
				derivative.CapabilitiesOf(stage.Provider).Has(derivative.DiagonalHessian) {
				expectDiagonalHessianAgrees(dh)
			}
		}
	})

	It("leaves every leaf parameter bit-identical after checking", func() {
		ctx := context.Background()
		final := serial.Final().Provider
		leaves := parameter.Snapshot(final.Parameter()).Leaves()
		Expect(len(leaves)).To(BeNumerically(">", 1))
		capture := func() [][]uint64 {
			out := make([][]uint64, len(leaves))
			for k, leaf := range leaves {
				for _, v := range leaf.Values() {
					out[k] = append(out[k], math.Float64bits(v))
				}
			}
			return out
		}
		before := capture()

		_, err := checker.Check(ctx, final)
		Expect(err).NotTo(HaveOccurred())
		Expect(capture()).To(Equal(before))

		if dh := derivative.AsDiagonalHessian(final); dh != nil &&
			derivative.CapabilitiesOf(final).Has(derivative.DiagonalHessian) {
			_, err = checker.CheckDiagonalHessian(ctx, dh)
			Expect(err).NotTo(HaveOccurred())
			Expect(capture()).To(Equal(before))
		}

		dl, err := diagnostics.NewLogger(final, nil)
		Expect(err).NotTo(HaveOccurred())
		for state := int64(0); state < 3; state++ {
			_, err = dl.Log(ctx, state)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(capture()).To(Equal(before))
	})

	It("evaluates identically in parallel", func() {
		Expect(parallel.Final().Provider.Gradient()).To(Equal(serial.Final().Provider.Gradient()))
	})

	It("stays correct after the sampler moves", func() {
		final := serial.Final().Provider
		moved := final.Parameter().Values()
		for i := range moved {
			moved[i] += 0.05 * float64(i%3-1)
		}
		Expect(parameter.SetValues(final.Parameter(), moved)).To(Succeed())
		expectGradientAgrees(final)
	})

	It("keeps evaluating after the executors are closed", func() {
		before := parallel.Final().Provider.Gradient()
		Expect(parallel.Close()).To(Succeed())
		Expect(parallel.Final().Provider.Gradient()).To(Equal(before))
	})

	It("feeds the diagnostics history", func() {
		clk := clocktesting.NewFakePassiveClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		history := diagnostics.NewHistory(clk, time.Hour, 0)
		final := serial.Final()
		dl, err := diagnostics.NewLogger(final.Provider, &diagnostics.LoggerConfig{
			Name:     final.Name,
			Interval: 10,
			Recorder: history,
		})
		Expect(err).NotTo(HaveOccurred())
		for state := int64(0); state < 50; state++ {
			_, err := dl.Log(context.Background(), state)
			Expect(err).NotTo(HaveOccurred())
			clk.SetTime(clk.Now().Add(time.Second))
		}
		Expect(history.Aggregated(final.Name, diagnostics.Angle, diagnostics.AggCount)).To(Equal(5.0))
		Expect(history.Aggregated(final.Name, diagnostics.MaxRelativeError, diagnostics.AggMax)).To(BeNumerically("<", 1e-4))
	})
})

var _ = Describe("Nested compositions", func() {
	It("folds a joint over a repeated parameter into a sum", func() {
		x := parameter.MustVector("x", []float64{0.4, -0.3, 1.1})
		a, err := synthetic.NewIndependentNormal(x, []float64{0, 0, 1}, []float64{1, 2, 0.5})
		Expect(err).NotTo(HaveOccurred())
		b, err := synthetic.NewIndependentNormal(x, []float64{1, -1, 0}, []float64{0.7, 1, 1.5})
		Expect(err).NotTo(HaveOccurred())

		joint, err := compose.NewJoint([]derivative.Provider{a, b})
		Expect(err).NotTo(HaveOccurred())
		folded, err := compose.NewCompact(joint)
		Expect(err).NotTo(HaveOccurred())
		sum, err := compose.NewSum([]derivative.Provider{a, b})
		Expect(err).NotTo(HaveOccurred())

		Expect(folded.Dimension()).To(Equal(3))
		got, want := folded.Gradient(), sum.Gradient()
		for i := range want {
			Expect(got[i]).To(BeNumerically("~", want[i], 1e-12))
		}
		expectGradientAgrees(folded)
		expectDiagonalHessianAgrees(folded)
	})

	It("reparameterizes a masked sum of many terms", func() {
		x := parameter.MustVector("x", []float64{0.5, 1.5, 2.5, 3.5, 4.5}, parameter.WithUniformBounds(0, 10))
		terms := make([]derivative.Provider, 8)
		for k := range terms {
			mean := []float64{float64(k), 1, 2, 3, 4}
			n, err := synthetic.NewIndependentNormal(x, mean, []float64{1, 1.5, 2, 2.5, 3})
			Expect(err).NotTo(HaveOccurred())
			terms[k] = n
		}
		sum, err := compose.NewSum(terms, compose.WithParallel(3))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(compose.Close(sum)).To(Succeed()) })

		masked, err := compose.NewMask(sum, parameter.MustVector("mask", []float64{0, 1, 1, 0, 1}))
		Expect(err).NotTo(HaveOccurred())
		logit, err := compose.NewTransformed(masked,
			transform.Elementwise(transform.Logistic(0, 10), masked.Dimension()),
			compose.WithJacobian())
		Expect(err).NotTo(HaveOccurred())
		increments, err := compose.NewIncrement(synthetic.NewStandardNormal(logit.Parameter()), transform.IncrementLogit, -20, 20,
			compose.WithJacobian())
		Expect(err).NotTo(HaveOccurred())

		expectGradientAgrees(logit)
		expectDiagonalHessianAgrees(logit)
		expectGradientAgrees(increments)
		expectGradientAgrees(compose.NewCached(logit))
	})

	It("sweeps a path between two nested composites", func() {
		y := parameter.MustVector("y", []float64{0.2, 0.7}, parameter.WithUniformBounds(0, 5))
		prior, err := synthetic.NewIndependentNormal(y, []float64{1, 1}, []float64{1, 1})
		Expect(err).NotTo(HaveOccurred())
		logY, err := compose.NewTransformed(prior, transform.Elementwise(transform.Exp(), 2), compose.WithJacobian())
		Expect(err).NotTo(HaveOccurred())
		base := synthetic.NewStandardNormal(logY.Parameter())

		path, err := compose.NewPath(logY, base)
		Expect(err).NotTo(HaveOccurred())
		for _, beta := range []float64{1, 0.75, 0.5, 0.25, 0} {
			Expect(path.SetBeta(beta)).To(Succeed())
			expectGradientAgrees(path)
			expectDiagonalHessianAgrees(path)
		}
	})
})
