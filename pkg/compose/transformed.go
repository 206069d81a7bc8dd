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

package compose

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/transform"
)

// Transformed exposes a provider defined on y = g(x) as a provider on x:
//
//	dL/dx = J(g)' dL/dy  (+ d log|det J(g)| / dx with WithJacobian)
//
// The exposed parameter is a view of the wrapped parameter; writes to x are
// stored as g(x).
type Transformed struct {
	name     string
	inner    derivative.Provider
	t        transform.Transform
	sep      transform.Separable
	pull     transform.PullBacker
	jacobian bool
	sign     float64
	param    *parameter.Mapped
	density  density.Density
	caps     derivative.Capability
}

var (
	_ derivative.HessianProvider    = (*Transformed)(nil)
	_ derivative.CapabilityReporter = (*Transformed)(nil)
)

// NewTransformed wraps p through t, which maps exposed coordinates onto p's
// coordinates. WithInverse uses the inverse of t, WithJacobian adds the
// log-Jacobian correction and WithNegation negates p's density.
//
// Without the Jacobian correction a non-separable transform must supply its
// own pull-back; otherwise construction fails with ErrNotImplemented.
func NewTransformed(p derivative.Provider, t transform.Transform, opts ...Option) (*Transformed, error) {
	if t.Dimension() != p.Dimension() {
		return nil, fmt.Errorf("transform %s has dimension %d, provider %s has %d: %w",
			t.Name(), t.Dimension(), p.Parameter().Name(), p.Dimension(), derivative.ErrDimensionMismatch)
	}
	o := newOptions(opts)
	if o.inverse {
		t = transform.Invert(t)
	}
	if o.name == "" {
		o.name = t.Name() + "(" + p.Parameter().Name() + ")"
	}
	tr := &Transformed{
		name:     o.name,
		inner:    p,
		t:        t,
		jacobian: o.jacobian,
		sign:     1,
	}
	if o.negate {
		tr.sign = -1
	}
	tr.sep, _ = t.(transform.Separable)
	tr.pull, _ = t.(transform.PullBacker)
	if !tr.jacobian && tr.sep == nil && tr.pull == nil {
		return nil, fmt.Errorf("transform %s without Jacobian correction on a non-separable transform: %w",
			t.Name(), derivative.ErrNotImplemented)
	}

	mapping := parameter.Mapping{
		ToSource:   t.Apply,
		FromSource: t.Invert,
	}
	if tr.sep != nil {
		mapping.Bounds = func(i int, lower, upper float64) (float64, float64) {
			return transform.InvertBounds(tr.sep.Component(i), lower, upper)
		}
		mapping.Component = func(i int, x float64) float64 {
			return tr.sep.Component(i).Apply(x)
		}
	}
	tr.param = parameter.NewMapped(o.name, p.Parameter(), mapping)

	wrapped := p.Density()
	if o.negate {
		wrapped = density.Negate(wrapped)
	}
	parts := []density.Density{wrapped}
	if o.jacobian {
		parts = append(parts, density.New("logJacobian("+o.name+")", func() float64 {
			return t.LogJacobian(tr.param.Values())
		}))
	}
	tr.density = density.NewCompound(o.name, parts...)

	innerCaps := derivative.CapabilitiesOf(p)
	tr.caps = derivative.Gradient
	if tr.sep != nil {
		tr.caps |= innerCaps & (derivative.DiagonalHessian | derivative.FullHessian)
	}
	o.logger.V(logging.DEBUG).Info("Built transformed composite",
		"name", tr.name,
		"transform", t.Name(),
		"separable", tr.sep != nil,
		"jacobian", tr.jacobian,
		"negated", o.negate,
		"capabilities", tr.caps.String())
	return tr, nil
}

// Transform returns the transform in use, after any inversion.
func (t *Transformed) Transform() transform.Transform { return t.t }

func (t *Transformed) Density() density.Density            { return t.density }
func (t *Transformed) Parameter() parameter.Parameter      { return t.param }
func (t *Transformed) Dimension() int                      { return t.inner.Dimension() }
func (t *Transformed) Capabilities() derivative.Capability { return t.caps }
func (t *Transformed) Close() error                        { return closeAll(t.inner) }

func (t *Transformed) Gradient() []float64 {
	x := t.param.Values()
	gy := t.inner.Gradient()

	var out []float64
	switch {
	case t.sep != nil:
		out = make([]float64, len(x))
		for i, v := range x {
			d1, d2, _ := t.sep.Component(i).Derivatives(v)
			out[i] = t.sign * gy[i] * d1
			if t.jacobian {
				out[i] += d2 / d1
			}
		}
		return out
	case t.pull != nil:
		out = t.pull.PullBack(x, gy)
	default:
		var g mat.VecDense
		g.MulVec(t.t.Jacobian(x).T(), mat.NewVecDense(len(gy), gy))
		out = make([]float64, len(x))
		for i := range out {
			out[i] = g.AtVec(i)
		}
	}
	for i := range out {
		out[i] *= t.sign
	}
	if t.jacobian {
		for i, v := range t.t.LogJacobianGradient(x) {
			out[i] += v
		}
	}
	return out
}

// DiagonalHessian applies the second-order chain rule coordinate by
// coordinate: H_ii d1^2 + g_i d2, plus the log-Jacobian curvature.
func (t *Transformed) DiagonalHessian() []float64 {
	if !t.caps.Has(derivative.DiagonalHessian) {
		derivative.NotImplemented("diagonal Hessian of %s", t.name)
	}
	x := t.param.Values()
	gy := t.inner.Gradient()
	hy := derivative.AsDiagonalHessian(t.inner).DiagonalHessian()
	out := make([]float64, len(x))
	for i, v := range x {
		u := t.sep.Component(i)
		d1, d2, _ := u.Derivatives(v)
		out[i] = t.sign * (hy[i]*d1*d1 + gy[i]*d2)
		if t.jacobian {
			_, _, lh := transform.LogJacobian(u, v)
			out[i] += lh
		}
	}
	return out
}

// Hessian is D H D + diag(g d2) for the diagonal Jacobian D, plus the
// log-Jacobian curvature.
func (t *Transformed) Hessian() *mat.SymDense {
	if !t.caps.Has(derivative.FullHessian) {
		derivative.NotImplemented("Hessian of %s", t.name)
	}
	x := t.param.Values()
	gy := t.inner.Gradient()
	hy := derivative.AsHessian(t.inner).Hessian()
	n := len(x)
	d1 := make([]float64, n)
	d2 := make([]float64, n)
	for i, v := range x {
		d1[i], d2[i], _ = t.sep.Component(i).Derivatives(v)
	}
	out := mat.NewSymDense(n, nil)
	for r := 0; r < n; r++ {
		for c := r; c < n; c++ {
			out.SetSym(r, c, t.sign*d1[r]*hy.At(r, c)*d1[c])
		}
		diag := out.At(r, r) + t.sign*gy[r]*d2[r]
		if t.jacobian {
			_, _, lh := transform.LogJacobian(t.sep.Component(r), x[r])
			diag += lh
		}
		out.SetSym(r, r, diag)
	}
	return out
}
