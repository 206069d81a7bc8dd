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
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/internal/parallel"
	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Sum adds the derivatives of providers evaluated at one shared point.
type Sum struct {
	name    string
	fan     *fanout
	caps    derivative.Capability
	density density.Density
}

var (
	_ derivative.HessianProvider    = (*Sum)(nil)
	_ derivative.CapabilityReporter = (*Sum)(nil)
)

// NewSum composes providers that share a parameter. They must have equal
// dimensions and identical current values. A single provider is returned
// unchanged.
func NewSum(providers []derivative.Provider, opts ...Option) (derivative.Provider, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("sum: %w", derivative.ErrEmptyProviders)
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return newSum(providers, opts...)
}

func newSum(providers []derivative.Provider, opts ...Option) (*Sum, error) {
	if err := derivative.CheckSharedPoint(providers); err != nil {
		return nil, fmt.Errorf("sum: %w", err)
	}
	o := newOptions(opts)
	if o.name == "" {
		o.name = "sum(" + joinNames(providers) + ")"
	}
	fan, err := newFanout(append([]derivative.Provider(nil), providers...), parallel.SumStrategy, o)
	if err != nil {
		return nil, fmt.Errorf("sum: %w", err)
	}
	parts := make([]density.Density, len(providers))
	for i, p := range providers {
		parts[i] = p.Density()
	}
	s := &Sum{
		name:    o.name,
		fan:     fan,
		caps:    derivative.CommonCapabilities(providers),
		density: density.NewCompound(o.name, parts...),
	}
	o.logger.V(logging.DEBUG).Info("Built sum composite",
		"name", s.name,
		"providers", len(providers),
		"dimension", s.Dimension(),
		"densityTerms", len(s.density.Terms()),
		"workers", fan.workers(),
		"capabilities", s.caps.String())
	return s, nil
}

// Providers returns the summed providers in order.
func (s *Sum) Providers() []derivative.Provider {
	return append([]derivative.Provider(nil), s.fan.providers...)
}

func (s *Sum) Density() density.Density            { return s.density }
func (s *Sum) Parameter() parameter.Parameter      { return s.fan.providers[0].Parameter() }
func (s *Sum) Dimension() int                      { return s.fan.providers[0].Dimension() }
func (s *Sum) Capabilities() derivative.Capability { return s.caps }
func (s *Sum) Close() error                        { return s.fan.close() }

func (s *Sum) Gradient() []float64 {
	return s.fan.evaluate(parallel.GradientKind)
}

func (s *Sum) DiagonalHessian() []float64 {
	if !s.caps.Has(derivative.DiagonalHessian) {
		derivative.NotImplemented("diagonal Hessian of %s", s.name)
	}
	return s.fan.evaluate(parallel.DiagonalHessianKind)
}

// Hessian sums the full Hessians. Every constituent must supply one.
func (s *Sum) Hessian() *mat.SymDense {
	if !s.caps.Has(derivative.FullHessian) {
		derivative.NotImplemented("Hessian of %s", s.name)
	}
	out := mat.NewSymDense(s.Dimension(), nil)
	for _, p := range s.fan.providers {
		out.AddSym(out, derivative.AsHessian(p).Hessian())
	}
	return out
}
