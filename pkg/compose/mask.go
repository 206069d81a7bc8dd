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
	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Mask restricts a provider to the coordinates selected by an indicator
// parameter. The indicator is read once; changing it afterwards panics,
// whether the change was announced or written quietly.
type Mask struct {
	name      string
	inner     derivative.Provider
	view      *parameter.Subset
	indicator parameter.Parameter
	snapshot  []float64
	forward   []int
	inverse   []int
	caps      derivative.Capability
}

var (
	_ derivative.HessianProvider    = (*Mask)(nil)
	_ derivative.CapabilityReporter = (*Mask)(nil)
)

// NewMask selects the coordinates of p where mask is non-zero.
func NewMask(p derivative.Provider, mask parameter.Parameter, opts ...Option) (*Mask, error) {
	if mask.Dimension() != p.Dimension() {
		return nil, fmt.Errorf("mask %s has dimension %d, provider %s has %d: %w",
			mask.Name(), mask.Dimension(), p.Parameter().Name(), p.Dimension(), derivative.ErrDimensionMismatch)
	}
	o := newOptions(opts)
	if o.name == "" {
		o.name = "mask(" + p.Parameter().Name() + ")"
	}
	var selected []int
	for i := 0; i < mask.Dimension(); i++ {
		if mask.Value(i) != 0 {
			selected = append(selected, i)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("mask %s: %w", mask.Name(), derivative.ErrEmptyMask)
	}
	view, err := parameter.NewSubset(o.name, p.Parameter(), selected)
	if err != nil {
		return nil, err
	}
	m := &Mask{
		name:    o.name,
		inner:   p,
		view:      view,
		indicator: mask,
		snapshot:  mask.Values(),
		forward:   view.Indices(),
		inverse:   view.InverseIndices(),
		caps:      derivative.CapabilitiesOf(p),
	}
	maskName := mask.Name()
	mask.AddListener(func(parameter.Parameter, int) {
		panic(fmt.Errorf("mask %s used by %s changed: %w", maskName, m.name, derivative.ErrMaskImmutable))
	})
	o.logger.V(logging.DEBUG).Info("Built mask composite",
		"name", m.name,
		"selected", m.forward,
		"dimension", len(m.forward),
		"capabilities", m.caps.String())
	return m, nil
}

// Indices maps reduced indices onto the wrapped provider's indices.
func (m *Mask) Indices() []int { return append([]int(nil), m.forward...) }

// InverseIndices maps the wrapped provider's indices onto reduced indices,
// -1 where unselected.
func (m *Mask) InverseIndices() []int { return append([]int(nil), m.inverse...) }

func (m *Mask) Density() density.Density            { return m.inner.Density() }
func (m *Mask) Parameter() parameter.Parameter      { return m.view }
func (m *Mask) Dimension() int                      { return len(m.forward) }
func (m *Mask) Capabilities() derivative.Capability { return m.caps }
func (m *Mask) Close() error                        { return closeAll(m.inner) }

// verify panics if the indicator no longer holds the values read at
// construction.
func (m *Mask) verify() {
	for i, v := range m.snapshot {
		if m.indicator.Value(i) != v {
			panic(fmt.Errorf("mask %s used by %s changed at index %d: %w",
				m.indicator.Name(), m.name, i, derivative.ErrMaskImmutable))
		}
	}
}

func (m *Mask) gather(full []float64) []float64 {
	out := make([]float64, len(m.forward))
	for i, idx := range m.forward {
		out[i] = full[idx]
	}
	return out
}

func (m *Mask) Gradient() []float64 {
	m.verify()
	return m.gather(m.inner.Gradient())
}

func (m *Mask) DiagonalHessian() []float64 {
	dh := derivative.AsDiagonalHessian(m.inner)
	if dh == nil {
		derivative.NotImplemented("diagonal Hessian of %s", m.name)
	}
	m.verify()
	return m.gather(dh.DiagonalHessian())
}

// Hessian is the sub-matrix over the selected coordinates.
func (m *Mask) Hessian() *mat.SymDense {
	h := derivative.AsHessian(m.inner)
	if h == nil {
		derivative.NotImplemented("Hessian of %s", m.name)
	}
	m.verify()
	full := h.Hessian()
	out := mat.NewSymDense(len(m.forward), nil)
	for r, ri := range m.forward {
		for c := r; c < len(m.forward); c++ {
			out.SetSym(r, c, full.At(ri, m.forward[c]))
		}
	}
	return out
}
