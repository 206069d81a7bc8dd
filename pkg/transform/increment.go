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

// IncrementKind selects how running sums of increments map onto parameters.
type IncrementKind int

const (
	// IncrementLog maps running sums s onto exp(s).
	IncrementLog IncrementKind = iota
	// IncrementLogit maps running sums s onto lower + (upper-lower)*sigmoid(s).
	IncrementLogit
)

func (k IncrementKind) String() string {
	switch k {
	case IncrementLog:
		return "log"
	case IncrementLogit:
		return "logit"
	default:
		return fmt.Sprintf("IncrementKind(%d)", int(k))
	}
}

// ParseIncrementKind converts "log" or "logit" into an IncrementKind.
func ParseIncrementKind(s string) (IncrementKind, error) {
	switch s {
	case "log":
		return IncrementLog, nil
	case "logit":
		return IncrementLogit, nil
	default:
		return 0, fmt.Errorf("unknown increment kind %q", s)
	}
}

// Increment exposes parameters y through increments x with
// y_i = h(x_0 + ... + x_i), where h is exp or a bounded logistic.
type Increment struct {
	kind IncrementKind
	dim  int
	link Univariate
	// lower and upper are only meaningful for IncrementLogit.
	lower, upper float64
}

var (
	_ Transform  = (*Increment)(nil)
	_ PullBacker = (*Increment)(nil)
)

// NewIncrement builds an increment transform over dim coordinates. Bounds
// are ignored for IncrementLog.
func NewIncrement(kind IncrementKind, dim int, lower, upper float64) (*Increment, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("increment transform needs a positive dimension, got %d", dim)
	}
	inc := &Increment{kind: kind, dim: dim, lower: lower, upper: upper}
	switch kind {
	case IncrementLog:
		inc.link = Exp()
	case IncrementLogit:
		if !(lower < upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
			return nil, fmt.Errorf("logit increments need finite bounds lower < upper, got [%g, %g]", lower, upper)
		}
		inc.link = Logistic(lower, upper)
	default:
		return nil, fmt.Errorf("unsupported increment kind: %v", kind)
	}
	return inc, nil
}

// Kind returns the increment kind.
func (t *Increment) Kind() IncrementKind { return t.kind }

func (t *Increment) Name() string   { return t.kind.String() + "-increment" }
func (t *Increment) Dimension() int { return t.dim }

func runningSums(x []float64) []float64 {
	s := make([]float64, len(x))
	var acc float64
	for i, v := range x {
		acc += v
		s[i] = acc
	}
	return s
}

// ParameterFromIncrements maps increments onto parameter values.
func (t *Increment) ParameterFromIncrements(x []float64) []float64 {
	s := runningSums(x)
	for i, v := range s {
		s[i] = t.link.Apply(v)
	}
	return s
}

// IncrementsFromParameter maps parameter values back onto increments.
func (t *Increment) IncrementsFromParameter(y []float64) []float64 {
	out := make([]float64, len(y))
	var prev float64
	for i, v := range y {
		s := t.link.Invert(v)
		out[i] = s - prev
		prev = s
	}
	return out
}

// InverseDerivative is the derivative of a parameter value with respect to
// its running sum, expressed at the parameter value y.
func (t *Increment) InverseDerivative(y float64) float64 {
	if t.kind == IncrementLog {
		return y
	}
	return (y - t.lower) * (t.upper - y) / (t.upper - t.lower)
}

func (t *Increment) Apply(x []float64) []float64  { return t.ParameterFromIncrements(x) }
func (t *Increment) Invert(y []float64) []float64 { return t.IncrementsFromParameter(y) }

// Jacobian is lower triangular: dy_i/dx_j = h'(s_i) for j <= i.
func (t *Increment) Jacobian(x []float64) *mat.Dense {
	y := t.ParameterFromIncrements(x)
	j := mat.NewDense(t.dim, t.dim, nil)
	for i, v := range y {
		d := t.InverseDerivative(v)
		for k := 0; k <= i; k++ {
			j.Set(i, k, d)
		}
	}
	return j
}

func (t *Increment) LogJacobian(x []float64) float64 {
	var sum float64
	for _, v := range t.ParameterFromIncrements(x) {
		sum += math.Log(t.InverseDerivative(v))
	}
	return sum
}

// LogJacobianGradient accumulates d log h'(s_i)/ds_i over i >= k.
func (t *Increment) LogJacobianGradient(x []float64) []float64 {
	s := runningSums(x)
	out := make([]float64, len(x))
	var acc float64
	for i := len(s) - 1; i >= 0; i-- {
		switch t.kind {
		case IncrementLog:
			acc++
		case IncrementLogit:
			acc += 1 - 2*sigmoid(s[i])
		}
		out[i] = acc
	}
	return out
}

// PullBack maps a gradient with respect to the parameters onto the
// increments. Increment k moves every parameter i >= k, so a single backward
// pass with a running accumulator suffices: out[k] is the sum over i >= k of
// gradY[i] dy_i/dx_i. A forward running sum would instead accumulate over
// i <= k, which is not J' g for this transform.
func (t *Increment) PullBack(x, gradY []float64) []float64 {
	y := t.ParameterFromIncrements(x)
	out := make([]float64, len(x))
	var acc float64
	for i := len(y) - 1; i >= 0; i-- {
		acc += gradY[i] * t.InverseDerivative(y[i])
		out[i] = acc
	}
	return out
}
