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

	"gonum.org/v1/gonum/mat"
)

// Linear is the affine transform y = A x + b with an invertible A.
type Linear struct {
	a      *mat.Dense
	b      []float64
	logDet float64
	lu     mat.LU
}

var (
	_ Transform  = (*Linear)(nil)
	_ PullBacker = (*Linear)(nil)
)

// NewLinear builds y = A x + b. b may be nil.
func NewLinear(a *mat.Dense, b []float64) (*Linear, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("linear transform needs a square matrix, got %dx%d", r, c)
	}
	if b == nil {
		b = make([]float64, r)
	}
	if len(b) != r {
		return nil, fmt.Errorf("linear transform offset has %d entries, want %d", len(b), r)
	}
	l := &Linear{a: mat.DenseCopyOf(a), b: append([]float64(nil), b...)}
	l.lu.Factorize(l.a)
	logDet, _ := l.lu.LogDet()
	if math.IsInf(logDet, -1) || math.IsNaN(logDet) {
		return nil, fmt.Errorf("linear transform matrix is singular")
	}
	l.logDet = logDet
	return l, nil
}

func (l *Linear) Name() string   { return "linear" }
func (l *Linear) Dimension() int { return len(l.b) }

func (l *Linear) Apply(x []float64) []float64 {
	var y mat.VecDense
	y.MulVec(l.a, mat.NewVecDense(len(x), append([]float64(nil), x...)))
	out := make([]float64, len(x))
	for i := range out {
		out[i] = y.AtVec(i) + l.b[i]
	}
	return out
}

func (l *Linear) Invert(y []float64) []float64 {
	r := make([]float64, len(y))
	for i, v := range y {
		r[i] = v - l.b[i]
	}
	var x mat.VecDense
	if err := l.lu.SolveVecTo(&x, false, mat.NewVecDense(len(r), r)); err != nil {
		// Condition warnings still yield a solution; singular matrices were
		// rejected at construction.
		if _, ok := err.(mat.Condition); !ok {
			panic(fmt.Errorf("inverting linear transform: %w", err))
		}
	}
	out := make([]float64, len(y))
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out
}

func (l *Linear) Jacobian([]float64) *mat.Dense     { return mat.DenseCopyOf(l.a) }
func (l *Linear) LogJacobian([]float64) float64     { return l.logDet }
func (l *Linear) LogJacobianGradient(x []float64) []float64 {
	return make([]float64, len(x))
}

// PullBack returns A' gradY.
func (l *Linear) PullBack(_, gradY []float64) []float64 {
	var g mat.VecDense
	g.MulVec(l.a.T(), mat.NewVecDense(len(gradY), append([]float64(nil), gradY...)))
	out := make([]float64, len(gradY))
	for i := range out {
		out[i] = g.AtVec(i)
	}
	return out
}
