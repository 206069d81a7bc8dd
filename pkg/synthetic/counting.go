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
	"sync/atomic"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Counting wraps a provider and counts every evaluation. Counters are safe
// to read while a parallel evaluation runs.
type Counting struct {
	inner derivative.Provider
	caps  derivative.Capability
	d     *countingDensity

	GradientCalls        atomic.Int64
	DiagonalHessianCalls atomic.Int64
	HessianCalls         atomic.Int64
}

var (
	_ derivative.HessianProvider    = (*Counting)(nil)
	_ derivative.CapabilityReporter = (*Counting)(nil)
)

// NewCounting wraps p.
func NewCounting(p derivative.Provider) *Counting {
	c := &Counting{inner: p, caps: derivative.CapabilitiesOf(p)}
	c.d = &countingDensity{id: uuid.New(), inner: p.Density()}
	return c
}

// Inner returns the wrapped provider. Calls through it are not counted.
func (c *Counting) Inner() derivative.Provider { return c.inner }

// DensityCalls returns how often the wrapped density was evaluated.
func (c *Counting) DensityCalls() int64 { return c.d.calls.Load() }

// TotalCalls sums every counter.
func (c *Counting) TotalCalls() int64 {
	return c.DensityCalls() + c.GradientCalls.Load() + c.DiagonalHessianCalls.Load() + c.HessianCalls.Load()
}

func (c *Counting) Density() density.Density            { return c.d }
func (c *Counting) Parameter() parameter.Parameter      { return c.inner.Parameter() }
func (c *Counting) Dimension() int                      { return c.inner.Dimension() }
func (c *Counting) Capabilities() derivative.Capability { return c.caps }

func (c *Counting) Gradient() []float64 {
	c.GradientCalls.Add(1)
	return c.inner.Gradient()
}

func (c *Counting) DiagonalHessian() []float64 {
	dh := derivative.AsDiagonalHessian(c.inner)
	if dh == nil {
		derivative.NotImplemented("diagonal Hessian of %s", c.inner.Parameter().Name())
	}
	c.DiagonalHessianCalls.Add(1)
	return dh.DiagonalHessian()
}

func (c *Counting) Hessian() *mat.SymDense {
	h := derivative.AsHessian(c.inner)
	if h == nil {
		derivative.NotImplemented("Hessian of %s", c.inner.Parameter().Name())
	}
	c.HessianCalls.Add(1)
	return h.Hessian()
}

// countingDensity counts evaluations of the wrapped density. Its terms are
// the wrapped density's terms under their own identities, so a compound that
// meets the same term through another provider still evaluates it once.
type countingDensity struct {
	id    uuid.UUID
	inner density.Density
	calls atomic.Int64
}

func (d *countingDensity) ID() uuid.UUID { return d.id }
func (d *countingDensity) Name() string  { return d.inner.Name() }
func (d *countingDensity) MakeDirty()    { density.MakeDirty(d.inner) }

func (d *countingDensity) Terms() []density.Density {
	inner := d.inner.Terms()
	out := make([]density.Density, len(inner))
	for i, term := range inner {
		out[i] = countedTerm{Density: term, calls: &d.calls}
	}
	return out
}

func (d *countingDensity) LogValue() float64 {
	d.calls.Add(1)
	return d.inner.LogValue()
}

// countedTerm is an elementary term that bumps its owner's counter when
// evaluated through a compound.
type countedTerm struct {
	density.Density
	calls *atomic.Int64
}

func (t countedTerm) Terms() []density.Density { return []density.Density{t} }
func (t countedTerm) MakeDirty()               { density.MakeDirty(t.Density) }

func (t countedTerm) LogValue() float64 {
	t.calls.Add(1)
	return t.Density.LogValue()
}
