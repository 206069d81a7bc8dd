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

	"gonum.org/v1/gonum/mat"
)

// Invert returns the transform mapping y back onto x. Separable transforms
// stay separable.
func Invert(t Transform) Transform {
	switch v := t.(type) {
	case *Collection:
		return v.Inverted()
	case *inverseTransform:
		return v.t
	}
	return &inverseTransform{t: t}
}

// inverseTransform swaps Apply and Invert of a general transform. Its
// Jacobian at x is the inverse of the wrapped Jacobian at Invert(x).
type inverseTransform struct {
	t Transform
}

var _ PullBacker = (*inverseTransform)(nil)

func (v *inverseTransform) Name() string                 { return "inverse(" + v.t.Name() + ")" }
func (v *inverseTransform) Dimension() int               { return v.t.Dimension() }
func (v *inverseTransform) Apply(x []float64) []float64  { return v.t.Invert(x) }
func (v *inverseTransform) Invert(y []float64) []float64 { return v.t.Apply(y) }

func (v *inverseTransform) Jacobian(x []float64) *mat.Dense {
	var inv mat.Dense
	if err := inv.Inverse(v.t.Jacobian(v.t.Invert(x))); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			panic(fmt.Errorf("inverting Jacobian of %s: %w", v.t.Name(), err))
		}
	}
	return &inv
}

func (v *inverseTransform) LogJacobian(x []float64) float64 {
	return -v.t.LogJacobian(v.t.Invert(x))
}

// LogJacobianGradient is -(dz/dx)' grad L(z) with z = Invert(x), where L is
// the wrapped log-Jacobian.
func (v *inverseTransform) LogJacobianGradient(x []float64) []float64 {
	z := v.t.Invert(x)
	g := v.t.LogJacobianGradient(z)
	out := v.PullBack(x, g)
	for i := range out {
		out[i] = -out[i]
	}
	return out
}

func (v *inverseTransform) PullBack(x, gradY []float64) []float64 {
	var g mat.VecDense
	g.MulVec(v.Jacobian(x).T(), mat.NewVecDense(len(gradY), append([]float64(nil), gradY...)))
	out := make([]float64, len(gradY))
	for i := range out {
		out[i] = g.AtVec(i)
	}
	return out
}
