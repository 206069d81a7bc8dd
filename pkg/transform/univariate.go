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

package transform

import (
	"fmt"
	"math"
)

// Univariate is a smooth, strictly monotone map y = Apply(x) on one coordinate.
type Univariate interface {
	Name() string
	Apply(x float64) float64
	Invert(y float64) float64
	// Derivatives returns the first three derivatives of Apply at x.
	Derivatives(x float64) (d1, d2, d3 float64)
}

type expMap struct{}

// Exp maps x onto exp(x).
func Exp() Univariate { return expMap{} }

func (expMap) Name() string             { return "exp" }
func (expMap) Apply(x float64) float64  { return math.Exp(x) }
func (expMap) Invert(y float64) float64 { return math.Log(y) }

func (expMap) Derivatives(x float64) (float64, float64, float64) {
	e := math.Exp(x)
	return e, e, e
}

type logMap struct{}

// Log maps x onto log(x).
func Log() Univariate { return logMap{} }

func (logMap) Name() string             { return "log" }
func (logMap) Apply(x float64) float64  { return math.Log(x) }
func (logMap) Invert(y float64) float64 { return math.Exp(y) }

func (logMap) Derivatives(x float64) (float64, float64, float64) {
	return 1 / x, -1 / (x * x), 2 / (x * x * x)
}

type logisticMap struct {
	lower, upper float64
}

// Logistic maps x onto lower + (upper-lower) / (1 + exp(-x)).
func Logistic(lower, upper float64) Univariate {
	return logisticMap{lower: lower, upper: upper}
}

// Logit is the inverse of Logistic(lower, upper).
func Logit(lower, upper float64) Univariate {
	return Inverse(Logistic(lower, upper))
}

func (l logisticMap) Name() string {
	return fmt.Sprintf("logistic[%g,%g]", l.lower, l.upper)
}

func (l logisticMap) Apply(x float64) float64 {
	return l.lower + (l.upper-l.lower)*sigmoid(x)
}

func (l logisticMap) Invert(y float64) float64 {
	p := (y - l.lower) / (l.upper - l.lower)
	return math.Log(p) - math.Log1p(-p)
}

func (l logisticMap) Derivatives(x float64) (float64, float64, float64) {
	s := sigmoid(x)
	w := l.upper - l.lower
	d1 := s * (1 - s)
	return w * d1, w * d1 * (1 - 2*s), w * d1 * (1 - 6*s + 6*s*s)
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

type affineMap struct {
	scale, shift float64
}

// Affine maps x onto scale*x + shift. scale must be non-zero.
func Affine(scale, shift float64) Univariate {
	if scale == 0 {
		panic("transform: affine map with zero scale is not invertible")
	}
	return affineMap{scale: scale, shift: shift}
}

// Identity maps x onto itself.
func Identity() Univariate { return affineMap{scale: 1} }

// Negation maps x onto -x.
func Negation() Univariate { return affineMap{scale: -1} }

func (a affineMap) Name() string {
	switch {
	case a.scale == 1 && a.shift == 0:
		return "identity"
	case a.scale == -1 && a.shift == 0:
		return "negate"
	}
	return fmt.Sprintf("affine(%g,%g)", a.scale, a.shift)
}

func (a affineMap) Apply(x float64) float64  { return a.scale*x + a.shift }
func (a affineMap) Invert(y float64) float64 { return (y - a.shift) / a.scale }

func (a affineMap) Derivatives(float64) (float64, float64, float64) {
	return a.scale, 0, 0
}

type composed struct {
	outer, inner Univariate
}

// Compose returns x -> outer(inner(x)).
func Compose(outer, inner Univariate) Univariate {
	return composed{outer: outer, inner: inner}
}

func (c composed) Name() string             { return c.outer.Name() + "." + c.inner.Name() }
func (c composed) Apply(x float64) float64  { return c.outer.Apply(c.inner.Apply(x)) }
func (c composed) Invert(y float64) float64 { return c.inner.Invert(c.outer.Invert(y)) }

func (c composed) Derivatives(x float64) (float64, float64, float64) {
	i1, i2, i3 := c.inner.Derivatives(x)
	o1, o2, o3 := c.outer.Derivatives(c.inner.Apply(x))
	return o1 * i1,
		o2*i1*i1 + o1*i2,
		o3*i1*i1*i1 + 3*o2*i1*i2 + o1*i3
}

type inverted struct {
	u Univariate
}

// Inverse swaps the direction of u.
func Inverse(u Univariate) Univariate {
	if inv, ok := u.(inverted); ok {
		return inv.u
	}
	return inverted{u: u}
}

func (v inverted) Name() string             { return "inverse(" + v.u.Name() + ")" }
func (v inverted) Apply(x float64) float64  { return v.u.Invert(x) }
func (v inverted) Invert(y float64) float64 { return v.u.Apply(y) }

func (v inverted) Derivatives(x float64) (float64, float64, float64) {
	g1, g2, g3 := v.u.Derivatives(v.u.Invert(x))
	g1sq := g1 * g1
	return 1 / g1,
		-g2 / (g1sq * g1),
		(3*g2*g2 - g1*g3) / (g1sq * g1sq * g1)
}

// LogJacobian returns log|d1|, its derivative and its second derivative at x.
func LogJacobian(u Univariate, x float64) (value, gradient, hessian float64) {
	d1, d2, d3 := u.Derivatives(x)
	r := d2 / d1
	return math.Log(math.Abs(d1)), r, d3/d1 - r*r
}

// InvertBounds maps bounds on y onto bounds on x.
func InvertBounds(u Univariate, lower, upper float64) (float64, float64) {
	lo, hi := invertEdge(u, lower, math.Inf(-1)), invertEdge(u, upper, math.Inf(1))
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

func invertEdge(u Univariate, y, fallback float64) float64 {
	x := u.Invert(y)
	if math.IsNaN(x) {
		return fallback
	}
	return x
}
