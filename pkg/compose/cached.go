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

package compose

import (
	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Cached memoizes the gradient and diagonal Hessian of a provider until its
// parameter reports a change or MakeDirty is called.
type Cached struct {
	name     string
	inner    derivative.Provider
	caps     derivative.Capability
	gradient []float64
	diagonal []float64
}

var (
	_ derivative.DiagonalHessianProvider = (*Cached)(nil)
	_ derivative.CapabilityReporter      = (*Cached)(nil)
)

// NewCached wraps p.
func NewCached(p derivative.Provider, opts ...Option) *Cached {
	o := newOptions(opts)
	if o.name == "" {
		o.name = "cached(" + p.Parameter().Name() + ")"
	}
	c := &Cached{
		name:  o.name,
		inner: p,
		caps:  derivative.CapabilitiesOf(p) & (derivative.Gradient | derivative.DiagonalHessian),
	}
	p.Parameter().AddListener(func(parameter.Parameter, int) { c.MakeDirty() })
	o.logger.V(logging.DEBUG).Info("Built cached composite", "name", c.name)
	return c
}

// MakeDirty drops the memoized derivatives.
func (c *Cached) MakeDirty() {
	c.gradient = nil
	c.diagonal = nil
}

func (c *Cached) Density() density.Density            { return c.inner.Density() }
func (c *Cached) Parameter() parameter.Parameter      { return c.inner.Parameter() }
func (c *Cached) Dimension() int                      { return c.inner.Dimension() }
func (c *Cached) Capabilities() derivative.Capability { return c.caps }
func (c *Cached) Close() error                        { return closeAll(c.inner) }

func (c *Cached) Gradient() []float64 {
	if c.gradient == nil {
		c.gradient = c.inner.Gradient()
	}
	return append([]float64(nil), c.gradient...)
}

func (c *Cached) DiagonalHessian() []float64 {
	if !c.caps.Has(derivative.DiagonalHessian) {
		derivative.NotImplemented("diagonal Hessian of %s", c.name)
	}
	if c.diagonal == nil {
		c.diagonal = derivative.AsDiagonalHessian(c.inner).DiagonalHessian()
	}
	return append([]float64(nil), c.diagonal...)
}
