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
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Transform maps exposed coordinates x onto model coordinates y.
type Transform interface {
	Name() string
	Dimension() int
	Apply(x []float64) []float64
	Invert(y []float64) []float64
	// Jacobian returns J with J[i][j] = dy_i/dx_j at x.
	Jacobian(x []float64) *mat.Dense
	// LogJacobian returns log|det J| at x.
	LogJacobian(x []float64) float64
	// LogJacobianGradient returns the gradient of LogJacobian with respect to x.
	LogJacobianGradient(x []float64) []float64
}

// Separable transforms act on each coordinate independently.
type Separable interface {
	Transform
	Component(i int) Univariate
}

// PullBacker is implemented by transforms with a cheaper route to J' g than
// materializing the Jacobian.
type PullBacker interface {
	PullBack(x, gradY []float64) []float64
}

// Collection is a separable transform with one univariate map per coordinate.
type Collection struct {
	components []Univariate
}

var _ Separable = (*Collection)(nil)

// NewCollection builds a separable transform from per-coordinate maps.
func NewCollection(components ...Univariate) *Collection {
	return &Collection{components: append([]Univariate(nil), components...)}
}

// Elementwise applies u to each of dim coordinates.
func Elementwise(u Univariate, dim int) *Collection {
	components := make([]Univariate, dim)
	for i := range components {
		components[i] = u
	}
	return &Collection{components: components}
}

func (c *Collection) Dimension() int             { return len(c.components) }
func (c *Collection) Component(i int) Univariate { return c.components[i] }

func (c *Collection) Name() string {
	first := c.components[0].Name()
	names := make([]string, len(c.components))
	same := true
	for i, u := range c.components {
		names[i] = u.Name()
		same = same && names[i] == first
	}
	if same {
		return first
	}
	return "(" + strings.Join(names, ",") + ")"
}

func (c *Collection) Apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = c.components[i].Apply(v)
	}
	return out
}

func (c *Collection) Invert(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = c.components[i].Invert(v)
	}
	return out
}

func (c *Collection) Jacobian(x []float64) *mat.Dense {
	n := len(c.components)
	j := mat.NewDense(n, n, nil)
	for i, v := range x {
		d1, _, _ := c.components[i].Derivatives(v)
		j.Set(i, i, d1)
	}
	return j
}

func (c *Collection) LogJacobian(x []float64) float64 {
	var sum float64
	for i, v := range x {
		lj, _, _ := LogJacobian(c.components[i], v)
		sum += lj
	}
	return sum
}

func (c *Collection) LogJacobianGradient(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		_, out[i], _ = LogJacobian(c.components[i], v)
	}
	return out
}

// PullBack scales gradY by the diagonal Jacobian.
func (c *Collection) PullBack(x, gradY []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		d1, _, _ := c.components[i].Derivatives(v)
		out[i] = gradY[i] * d1
	}
	return out
}

// Inverted returns the separable inverse of c.
func (c *Collection) Inverted() *Collection {
	components := make([]Univariate, len(c.components))
	for i, u := range c.components {
		components[i] = Inverse(u)
	}
	return &Collection{components: components}
}
