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

// IndependentNormal is the log-density of independent normal coordinates,
// up to a constant: -0.5 * sum(((x_i - mean_i) / sd_i)^2).
type IndependentNormal struct {
	p    parameter.Parameter
	d    density.Density
	mean []float64
	prec []float64
}

var _ derivative.HessianProvider = (*IndependentNormal)(nil)

// NewIndependentNormal builds the density over p. mean and sd must match the
// dimension of p; every sd must be positive.
func NewIndependentNormal(p parameter.Parameter, mean, sd []float64) (*IndependentNormal, error) {
	if len(mean) != p.Dimension() || len(sd) != p.Dimension() {
		return nil, fmt.Errorf("normal over %s: mean/sd have dimensions %d/%d, want %d: %w",
			p.Name(), len(mean), len(sd), p.Dimension(), derivative.ErrDimensionMismatch)
	}
	n := &IndependentNormal{
		p:    p,
		mean: append([]float64(nil), mean...),
		prec: make([]float64, len(sd)),
	}
	for i, s := range sd {
		if s <= 0 {
			return nil, fmt.Errorf("normal over %s: sd at index %d must be positive, got %g", p.Name(), i, s)
		}
		n.prec[i] = 1 / (s * s)
	}
	n.d = density.New("normal("+p.Name()+")", n.logValue)
	return n, nil
}

// NewStandardNormal builds N(0, 1) coordinates over p.
func NewStandardNormal(p parameter.Parameter) *IndependentNormal {
	mean := make([]float64, p.Dimension())
	sd := make([]float64, p.Dimension())
	for i := range sd {
		sd[i] = 1
	}
	n, err := NewIndependentNormal(p, mean, sd)
	if err != nil {
		panic(err)
	}
	return n
}

func (n *IndependentNormal) Density() density.Density       { return n.d }
func (n *IndependentNormal) Parameter() parameter.Parameter { return n.p }
func (n *IndependentNormal) Dimension() int                 { return n.p.Dimension() }

func (n *IndependentNormal) logValue() float64 {
	var sum float64
	for i := range n.mean {
		r := n.p.Value(i) - n.mean[i]
		sum += r * r * n.prec[i]
	}
	return -0.5 * sum
}

func (n *IndependentNormal) Gradient() []float64 {
	out := make([]float64, len(n.mean))
	for i := range out {
		out[i] = -(n.p.Value(i) - n.mean[i]) * n.prec[i]
	}
	return out
}

func (n *IndependentNormal) DiagonalHessian() []float64 {
	out := make([]float64, len(n.prec))
	for i, p := range n.prec {
		out[i] = -p
	}
	return out
}

func (n *IndependentNormal) Hessian() *mat.SymDense {
	h := mat.NewSymDense(len(n.prec), nil)
	for i, p := range n.prec {
		h.SetSym(i, i, -p)
	}
	return h
}
