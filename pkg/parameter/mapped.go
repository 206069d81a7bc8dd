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

package parameter

import (
	"math"

	"github.com/google/uuid"
)

// Mapping converts between a source parameter's coordinates and the
// coordinates exposed by a Mapped view.
type Mapping struct {
	// ToSource maps exposed values onto source values.
	ToSource func(exposed []float64) []float64
	// FromSource maps source values onto exposed values.
	FromSource func(source []float64) []float64
	// Bounds optionally maps the source bounds of index i onto exposed bounds.
	// Without it the exposed coordinates are unbounded.
	Bounds func(i int, lower, upper float64) (float64, float64)
	// Component optionally maps exposed value i onto source value i for
	// mappings that act on each coordinate independently. Writes then touch
	// only the matching source index.
	Component func(i int, exposed float64) float64
}

// Mapped exposes a source parameter in different coordinates. Reads convert
// the current source values; writes convert back and store the full vector
// into the source, so the source stays the single owner of state.
type Mapped struct {
	listeners

	id      uuid.UUID
	name    string
	source  Parameter
	mapping Mapping
}

var _ Parameter = (*Mapped)(nil)

// NewMapped builds a view of source through mapping.
func NewMapped(name string, source Parameter, mapping Mapping) *Mapped {
	m := &Mapped{
		id:      uuid.New(),
		name:    name,
		source:  source,
		mapping: mapping,
	}
	source.AddListener(func(_ Parameter, _ int) {
		// A change at one source index can move several exposed values.
		m.notify(m, AllIndices)
	})
	return m
}

func (m *Mapped) ID() uuid.UUID  { return m.id }
func (m *Mapped) Name() string   { return m.name }
func (m *Mapped) Dimension() int { return m.source.Dimension() }

// Source returns the underlying parameter.
func (m *Mapped) Source() Parameter { return m.source }

func (m *Mapped) Sources() []Parameter { return []Parameter{m.source} }

func (m *Mapped) Values() []float64 {
	return m.mapping.FromSource(m.source.Values())
}

func (m *Mapped) Value(i int) float64 {
	return m.Values()[i]
}

func (m *Mapped) SetValue(i int, v float64) {
	m.store(i, v)
	m.source.FireChanged()
}

func (m *Mapped) SetValueQuietly(i int, v float64) {
	m.store(i, v)
}

func (m *Mapped) store(i int, v float64) {
	if m.mapping.Component != nil {
		m.source.SetValueQuietly(i, m.mapping.Component(i, v))
		return
	}
	exposed := m.Values()
	exposed[i] = v
	for j, y := range m.mapping.ToSource(exposed) {
		m.source.SetValueQuietly(j, y)
	}
}

func (m *Mapped) FireChanged() {
	m.source.FireChanged()
}

func (m *Mapped) Bounds(i int) (float64, float64) {
	if m.mapping.Bounds == nil {
		return math.Inf(-1), math.Inf(1)
	}
	lo, hi := m.source.Bounds(i)
	return m.mapping.Bounds(i, lo, hi)
}
