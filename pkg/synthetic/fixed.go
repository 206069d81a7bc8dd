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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Fixed is a linear log-density sum(g_i x_i) whose gradient is the constant g
// and whose Hessian is zero.
type Fixed struct {
	p        parameter.Parameter
	d        density.Density
	gradient []float64
}

var _ derivative.HessianProvider = (*Fixed)(nil)

// NewFixed builds the density over p with the given constant gradient.
func NewFixed(p parameter.Parameter, gradient []float64) (*Fixed, error) {
	if len(gradient) != p.Dimension() {
		return nil, fmt.Errorf("fixed gradient over %s has %d entries, want %d: %w",
			p.Name(), len(gradient), p.Dimension(), derivative.ErrDimensionMismatch)
	}
	f := &Fixed{p: p, gradient: append([]float64(nil), gradient...)}
	f.d = density.New("linear("+p.Name()+")", func() float64 {
		return floats.Dot(f.gradient, f.p.Values())
	})
	return f, nil
}

// MustFixed is NewFixed for fixtures.
func MustFixed(p parameter.Parameter, gradient []float64) *Fixed {
	f, err := NewFixed(p, gradient)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Fixed) Density() density.Density       { return f.d }
func (f *Fixed) Parameter() parameter.Parameter { return f.p }
func (f *Fixed) Dimension() int                 { return f.p.Dimension() }
func (f *Fixed) Gradient() []float64            { return append([]float64(nil), f.gradient...) }
func (f *Fixed) DiagonalHessian() []float64     { return make([]float64, len(f.gradient)) }
func (f *Fixed) Hessian() *mat.SymDense         { return mat.NewSymDense(len(f.gradient), nil) }
