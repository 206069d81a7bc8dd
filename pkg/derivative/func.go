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

package derivative

import (
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Func is a provider assembled from closures, for models that expose their
// derivatives as plain functions. Nil Hessian closures limit the reported
// capabilities accordingly.
type Func struct {
	D              density.Density
	P              parameter.Parameter
	GradientFn     func() []float64
	DiagonalHessFn func() []float64
	HessianFn      func() *mat.SymDense
}

var (
	_ HessianProvider    = (*Func)(nil)
	_ CapabilityReporter = (*Func)(nil)
)

func (f *Func) Density() density.Density       { return f.D }
func (f *Func) Parameter() parameter.Parameter { return f.P }
func (f *Func) Dimension() int                 { return f.P.Dimension() }
func (f *Func) Gradient() []float64            { return f.GradientFn() }

func (f *Func) Capabilities() Capability {
	caps := Gradient
	if f.DiagonalHessFn != nil || f.HessianFn != nil {
		caps |= DiagonalHessian
	}
	if f.HessianFn != nil {
		caps |= FullHessian
	}
	return caps
}

// DiagonalHessian falls back to the diagonal of the full Hessian when only
// HessianFn is set.
func (f *Func) DiagonalHessian() []float64 {
	switch {
	case f.DiagonalHessFn != nil:
		return f.DiagonalHessFn()
	case f.HessianFn != nil:
		h := f.HessianFn()
		out := make([]float64, f.Dimension())
		for i := range out {
			out[i] = h.At(i, i)
		}
		return out
	default:
		NotImplemented("diagonal Hessian of %s", f.P.Name())
		return nil
	}
}

func (f *Func) Hessian() *mat.SymDense {
	if f.HessianFn == nil {
		NotImplemented("Hessian of %s", f.P.Name())
	}
	return f.HessianFn()
}
