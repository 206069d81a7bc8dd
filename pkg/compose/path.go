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

	"gonum.org/v1/gonum/floats"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Path blends a source and a destination provider:
// beta*source + (1-beta)*destination. At beta = 1 only the source is
// evaluated and at beta = 0 only the destination.
type Path struct {
	name    string
	source  derivative.Provider
	dest    derivative.Provider
	beta    float64
	density *density.Elementary
	caps    derivative.Capability
}

var (
	_ derivative.DiagonalHessianProvider = (*Path)(nil)
	_ derivative.CapabilityReporter      = (*Path)(nil)
)

// NewPath blends source and dest, which must share a point. Beta starts at 1.
func NewPath(source, dest derivative.Provider, opts ...Option) (*Path, error) {
	if err := derivative.CheckSharedPoint([]derivative.Provider{source, dest}); err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	o := newOptions(opts)
	if o.name == "" {
		o.name = "path(" + source.Parameter().Name() + "," + dest.Parameter().Name() + ")"
	}
	p := &Path{
		name:   o.name,
		source: source,
		dest:   dest,
		beta:   1,
		caps:   derivative.CommonCapabilities([]derivative.Provider{source, dest}) & (derivative.Gradient | derivative.DiagonalHessian),
	}
	p.density = density.New(o.name, p.logValue)
	o.logger.V(logging.DEBUG).Info("Built path composite",
		"name", p.name,
		"dimension", source.Dimension(),
		"capabilities", p.caps.String())
	return p, nil
}

// SetBeta sets the blend coefficient.
func (p *Path) SetBeta(beta float64) error {
	if !(beta >= 0 && beta <= 1) {
		return fmt.Errorf("path %s: beta %g: %w", p.name, beta, derivative.ErrBetaOutOfRange)
	}
	p.beta = beta
	return nil
}

// Beta returns the blend coefficient.
func (p *Path) Beta() float64 { return p.beta }

func (p *Path) Density() density.Density            { return p.density }
func (p *Path) Parameter() parameter.Parameter      { return p.source.Parameter() }
func (p *Path) Dimension() int                      { return p.source.Dimension() }
func (p *Path) Capabilities() derivative.Capability { return p.caps }
func (p *Path) Close() error                        { return closeAll(p.source, p.dest) }

func (p *Path) logValue() float64 {
	switch p.beta {
	case 1:
		return p.source.Density().LogValue()
	case 0:
		return p.dest.Density().LogValue()
	}
	return p.beta*p.source.Density().LogValue() + (1-p.beta)*p.dest.Density().LogValue()
}

func (p *Path) blend(source, dest func() []float64) []float64 {
	switch p.beta {
	case 1:
		return source()
	case 0:
		return dest()
	}
	// The providers' slices are left untouched.
	out := make([]float64, p.Dimension())
	floats.AddScaledTo(out, out, p.beta, source())
	floats.AddScaled(out, 1-p.beta, dest())
	return out
}

func (p *Path) Gradient() []float64 {
	return p.blend(p.source.Gradient, p.dest.Gradient)
}

func (p *Path) DiagonalHessian() []float64 {
	if !p.caps.Has(derivative.DiagonalHessian) {
		derivative.NotImplemented("diagonal Hessian of %s", p.name)
	}
	return p.blend(
		derivative.AsDiagonalHessian(p.source).DiagonalHessian,
		derivative.AsDiagonalHessian(p.dest).DiagonalHessian,
	)
}
