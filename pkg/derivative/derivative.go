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
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Provider supplies the gradient of a density with respect to a parameter.
type Provider interface {
	Density() density.Density
	Parameter() parameter.Parameter
	Dimension() int
	// Gradient returns a freshly allocated vector of length Dimension().
	Gradient() []float64
}

// DiagonalHessianProvider additionally supplies the diagonal of the Hessian.
type DiagonalHessianProvider interface {
	Provider
	DiagonalHessian() []float64
}

// HessianProvider additionally supplies the full symmetric Hessian.
type HessianProvider interface {
	DiagonalHessianProvider
	Hessian() *mat.SymDense
}

// Capability is a set of derivative orders a provider can supply.
type Capability uint8

const (
	Gradient Capability = 1 << iota
	DiagonalHessian
	FullHessian
)

// Has reports whether every bit of want is set.
func (c Capability) Has(want Capability) bool { return c&want == want }

func (c Capability) String() string {
	var parts []string
	if c.Has(Gradient) {
		parts = append(parts, "gradient")
	}
	if c.Has(DiagonalHessian) {
		parts = append(parts, "diagonalHessian")
	}
	if c.Has(FullHessian) {
		parts = append(parts, "hessian")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// CapabilityReporter is implemented by providers whose supported derivatives
// depend on what they wrap.
type CapabilityReporter interface {
	Capabilities() Capability
}

// CapabilitiesOf resolves what p can supply. Reported capabilities win over
// the implemented method set.
func CapabilitiesOf(p Provider) Capability {
	if r, ok := p.(CapabilityReporter); ok {
		return r.Capabilities()
	}
	caps := Gradient
	if _, ok := p.(DiagonalHessianProvider); ok {
		caps |= DiagonalHessian
	}
	if _, ok := p.(HessianProvider); ok {
		caps |= FullHessian
	}
	return caps
}

// CommonCapabilities intersects the capabilities of providers.
func CommonCapabilities(providers []Provider) Capability {
	caps := Gradient | DiagonalHessian | FullHessian
	for _, p := range providers {
		caps &= CapabilitiesOf(p)
	}
	return caps
}

// AsDiagonalHessian returns p as a DiagonalHessianProvider, or nil when p
// does not support diagonal Hessians.
func AsDiagonalHessian(p Provider) DiagonalHessianProvider {
	if !CapabilitiesOf(p).Has(DiagonalHessian) {
		return nil
	}
	dh, _ := p.(DiagonalHessianProvider)
	return dh
}

// AsHessian returns p as a HessianProvider, or nil when p does not support
// full Hessians.
func AsHessian(p Provider) HessianProvider {
	if !CapabilitiesOf(p).Has(FullHessian) {
		return nil
	}
	h, _ := p.(HessianProvider)
	return h
}
