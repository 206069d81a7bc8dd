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

package synthetic

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Gaussian is the multivariate normal log-density -0.5 (x-m)' P (x-m) with a
// fixed precision matrix P.
type Gaussian struct {
	p         parameter.Parameter
	d         density.Density
	mean      *mat.VecDense
	precision *mat.SymDense
}

var _ derivative.HessianProvider = (*Gaussian)(nil)

// NewGaussian builds the density over p.
func NewGaussian(p parameter.Parameter, mean []float64, precision *mat.SymDense) (*Gaussian, error) {
	if len(mean) != p.Dimension() || precision.SymmetricDim() != p.Dimension() {
		return nil, fmt.Errorf("gaussian over %s: mean has %d entries and precision is %dx%d, want %d: %w",
			p.Name(), len(mean), precision.SymmetricDim(), precision.SymmetricDim(), p.Dimension(),
			derivative.ErrDimensionMismatch)
	}
	g := &Gaussian{
		p:         p,
		mean:      mat.NewVecDense(len(mean), append([]float64(nil), mean...)),
		precision: mat.NewSymDense(precision.SymmetricDim(), nil),
	}
	g.precision.CopySym(precision)
	g.d = density.New("gaussian("+p.Name()+")", g.logValue)
	return g, nil
}

func (g *Gaussian) Density() density.Density       { return g.d }
func (g *Gaussian) Parameter() parameter.Parameter { return g.p }
func (g *Gaussian) Dimension() int                 { return g.p.Dimension() }

func (g *Gaussian) residual() *mat.VecDense {
	r := mat.NewVecDense(g.p.Dimension(), g.p.Values())
	r.SubVec(r, g.mean)
	return r
}

func (g *Gaussian) logValue() float64 {
	r := g.residual()
	return -0.5 * mat.Inner(r, g.precision, r)
}

func (g *Gaussian) Gradient() []float64 {
	var pr mat.VecDense
	pr.MulVec(g.precision, g.residual())
	out := make([]float64, g.p.Dimension())
	for i := range out {
		out[i] = -pr.AtVec(i)
	}
	return out
}

func (g *Gaussian) DiagonalHessian() []float64 {
	out := make([]float64, g.p.Dimension())
	for i := range out {
		out[i] = -g.precision.At(i, i)
	}
	return out
}

func (g *Gaussian) Hessian() *mat.SymDense {
	h := mat.NewSymDense(g.p.Dimension(), nil)
	h.ScaleSym(-1, g.precision)
	return h
}
