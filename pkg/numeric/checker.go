/*
Copyright 2025 The gradcompose Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package numeric

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// DefaultStepScale is the cube root of machine epsilon, the usual step for a
// centered first difference.
const DefaultStepScale = 6.0554544523933395e-06

// Config configures a Checker.
type Config struct {
	// Tolerance is the relative tolerance of the mismatch rule. Nil disables
	// failing; Check then always returns the report.
	Tolerance *float64
	// SmallNumberThreshold exempts values of smaller magnitude from the
	// relative-error test.
	SmallNumberThreshold float64
	// Lower and Upper bound the finite-difference probes per index. Nil
	// slices fall back to the parameter's own bounds.
	Lower, Upper []float64
	// StepScale sets the probe step h = StepScale*(|x|+1). Zero selects
	// DefaultStepScale.
	StepScale float64
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if c.Tolerance != nil && (*c.Tolerance < 0 || math.IsNaN(*c.Tolerance)) {
		return fmt.Errorf("tolerance must be non-negative, got %g", *c.Tolerance)
	}
	if c.SmallNumberThreshold < 0 {
		return fmt.Errorf("small number threshold must be non-negative, got %g", c.SmallNumberThreshold)
	}
	if c.StepScale < 0 {
		return fmt.Errorf("step scale must be non-negative, got %g", c.StepScale)
	}
	if len(c.Lower) != len(c.Upper) {
		return fmt.Errorf("probe bounds have different lengths: %d lower, %d upper", len(c.Lower), len(c.Upper))
	}
	return nil
}

// Checker compares analytic derivatives with finite differences.
type Checker struct {
	cfg Config
}

// NewChecker builds a checker. A nil cfg selects interactive mode with
// default steps.
func NewChecker(cfg *Config) (*Checker, error) {
	c := &Checker{}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		c.cfg = *cfg
	}
	if c.cfg.StepScale == 0 {
		c.cfg.StepScale = DefaultStepScale
	}
	return c, nil
}

// Check cross-checks the gradient of p.
func (c *Checker) Check(ctx context.Context, p derivative.Provider) (*Report, error) {
	logger := logging.FromContext(ctx)
	name := p.Parameter().Name()

	analytic := p.Gradient()
	numeric, err := c.NumericGradient(p)
	if err != nil {
		return nil, err
	}
	report := &Report{Provider: name, Kind: GradientKind, Analytic: analytic, Numeric: numeric}
	err = c.compare(report)
	logger.V(logging.DEBUG).Info("Gradient cross-check",
		"provider", name,
		"dimension", len(analytic),
		"failed", err != nil)
	return report, err
}

// CheckDiagonalHessian cross-checks the diagonal Hessian of p against
// differences of its analytic gradient.
func (c *Checker) CheckDiagonalHessian(ctx context.Context, p derivative.DiagonalHessianProvider) (*Report, error) {
	logger := logging.FromContext(ctx)
	name := p.Parameter().Name()

	analytic := p.DiagonalHessian()
	numeric, err := c.NumericDiagonalHessian(p)
	if err != nil {
		return nil, err
	}
	report := &Report{Provider: name, Kind: DiagonalHessianKind, Analytic: analytic, Numeric: numeric}
	err = c.compare(report)
	logger.V(logging.DEBUG).Info("Diagonal Hessian cross-check",
		"provider", name,
		"dimension", len(analytic),
		"failed", err != nil)
	return report, err
}

func (c *Checker) compare(report *Report) error {
	if len(report.Analytic) != len(report.Numeric) {
		return fmt.Errorf("%s of %s has length %d, numeric estimate has %d: %w",
			report.Kind, report.Provider, len(report.Analytic), len(report.Numeric), derivative.ErrDimensionMismatch)
	}
	if c.cfg.Tolerance == nil {
		return nil
	}
	tol := *c.cfg.Tolerance
	for i := range report.Analytic {
		a, n := report.Analytic[i], report.Numeric[i]
		if Mismatch(a, n, tol, c.cfg.SmallNumberThreshold) {
			report.Mismatch = &MismatchError{
				Provider:           report.Provider,
				Kind:               report.Kind,
				Index:              i,
				Analytic:           a,
				Numeric:            n,
				RelativeDifference: RelativeDifference(a, n),
			}
			return report.Mismatch
		}
	}
	return nil
}

// Mismatch applies the cross-check rule to one coordinate: a relative
// difference above tol where both magnitudes exceed small, or exactly one
// value being zero while the other exceeds tol.
func Mismatch(analytic, numeric, tol, small float64) bool {
	if (analytic == 0) != (numeric == 0) {
		return math.Abs(analytic+numeric) > tol
	}
	return math.Abs(RelativeDifference(analytic, numeric)) > tol &&
		math.Abs(analytic) > small &&
		math.Abs(numeric) > small
}

// RelativeDifference is 2(a-n)/(a+n).
func RelativeDifference(analytic, numeric float64) float64 {
	return 2 * (analytic - numeric) / (analytic + numeric)
}

// NumericGradient estimates the gradient of p's density by finite
// differences. The parameter is restored and notified once before returning.
func (c *Checker) NumericGradient(p derivative.Provider) ([]float64, error) {
	param := p.Parameter()
	d := p.Density()
	return c.sweep(param, func(i int) func(float64) float64 {
		return func(v float64) float64 {
			param.SetValueQuietly(i, v)
			density.MakeDirty(d)
			return d.LogValue()
		}
	})
}

// NumericDiagonalHessian estimates the Hessian diagonal by differencing the
// analytic gradient. Probes notify listeners so that cached gradients are
// recomputed at every probe point.
func (c *Checker) NumericDiagonalHessian(p derivative.Provider) ([]float64, error) {
	param := p.Parameter()
	d := p.Density()
	return c.sweep(param, func(i int) func(float64) float64 {
		return func(v float64) float64 {
			param.SetValue(i, v)
			density.MakeDirty(d)
			return p.Gradient()[i]
		}
	})
}

func (c *Checker) sweep(param parameter.Parameter, probe func(i int) func(float64) float64) ([]float64, error) {
	dim := param.Dimension()
	if c.cfg.Lower != nil && len(c.cfg.Lower) != dim {
		return nil, fmt.Errorf("probe bounds have dimension %d, %s has %d: %w",
			len(c.cfg.Lower), param.Name(), dim, derivative.ErrDimensionMismatch)
	}

	snapshot := param.Values()
	state := parameter.Snapshot(param)
	defer func() {
		state.Restore()
		param.FireChanged()
	}()

	out := make([]float64, dim)
	for i := 0; i < dim; i++ {
		lo, hi := c.bounds(param, i)
		x := snapshot[i]
		settings, err := c.settings(x, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("probing %s at index %d: %w", param.Name(), i, err)
		}
		out[i] = fd.Derivative(probe(i), x, settings)
		// Leave every leaf as found before probing the next index.
		state.Restore()
	}
	return out, nil
}

func (c *Checker) bounds(param parameter.Parameter, i int) (float64, float64) {
	if c.cfg.Lower != nil {
		return c.cfg.Lower[i], c.cfg.Upper[i]
	}
	return param.Bounds(i)
}

var errNoRoom = errors.New("no room between bounds for a finite-difference probe")

// settings picks the formula and step for a probe at x inside [lo, hi].
func (c *Checker) settings(x, lo, hi float64) (*fd.Settings, error) {
	h := c.cfg.StepScale * (math.Abs(x) + 1)
	below, above := x-lo, hi-x
	switch {
	case below >= h && above >= h:
		return &fd.Settings{Formula: fd.Central, Step: h}, nil
	case below > 0 && above > 0:
		// Keep both probes strictly inside the bounds.
		return &fd.Settings{Formula: fd.Central, Step: math.Min(below, above) / 2}, nil
	case above > 0:
		return &fd.Settings{Formula: fd.Forward, Step: math.Min(h, above)}, nil
	case below > 0:
		return &fd.Settings{Formula: fd.Backward, Step: math.Min(h, below)}, nil
	default:
		return nil, errNoRoom
	}
}
