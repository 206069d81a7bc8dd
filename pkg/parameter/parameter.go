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
	"fmt"
	"math"

	"github.com/google/uuid"
)

// AllIndices is the index reported to listeners when every value may have changed.
const AllIndices = -1

// Listener is notified after a parameter value changes. index is AllIndices
// when the change is not attributable to a single index.
type Listener func(p Parameter, index int)

// Parameter is an ordered, mutable vector of doubles with a stable identity.
//
// Parameters are not safe for concurrent mutation. Readers may run
// concurrently as long as nothing writes during the read window.
type Parameter interface {
	// ID is assigned at construction and never changes. Deduplication of
	// parameters is by ID, never by value.
	ID() uuid.UUID

	// Name is a human readable label used in logs and reports.
	Name() string

	// Dimension is the number of values.
	Dimension() int

	// Value returns the value at index i.
	Value(i int) float64

	// Values returns a copy of all values.
	Values() []float64

	// SetValue sets the value at index i and notifies listeners.
	SetValue(i int, v float64)

	// SetValueQuietly sets the value at index i without notifying anyone.
	SetValueQuietly(i int, v float64)

	// FireChanged notifies listeners that every value may have changed.
	FireChanged()

	// Bounds returns the admissible range of the value at index i.
	Bounds(i int) (lower, upper float64)

	// AddListener registers l for change notifications.
	AddListener(l Listener)
}

// listeners is embedded by every implementation in this package.
type listeners struct {
	fns []Listener
}

func (l *listeners) AddListener(fn Listener) {
	if fn != nil {
		l.fns = append(l.fns, fn)
	}
}

func (l *listeners) notify(p Parameter, index int) {
	for _, fn := range l.fns {
		fn(p, index)
	}
}

// Vector is the basic Parameter backed by a slice.
type Vector struct {
	listeners

	id     uuid.UUID
	name   string
	values []float64
	lower  []float64
	upper  []float64
}

var _ Parameter = (*Vector)(nil)

// VectorOption configures a Vector.
type VectorOption func(*Vector) error

// WithBounds sets per-index bounds. Both slices must match the dimension.
func WithBounds(lower, upper []float64) VectorOption {
	return func(v *Vector) error {
		if len(lower) != len(v.values) || len(upper) != len(v.values) {
			return fmt.Errorf("bounds for %s have dimensions %d/%d, want %d",
				v.name, len(lower), len(upper), len(v.values))
		}
		for i := range lower {
			if lower[i] > upper[i] {
				return fmt.Errorf("bounds for %s at index %d are inverted: [%g, %g]", v.name, i, lower[i], upper[i])
			}
		}
		v.lower = append([]float64(nil), lower...)
		v.upper = append([]float64(nil), upper...)
		return nil
	}
}

// WithUniformBounds applies the same bounds to every index.
func WithUniformBounds(lower, upper float64) VectorOption {
	return func(v *Vector) error {
		lo := make([]float64, len(v.values))
		hi := make([]float64, len(v.values))
		for i := range lo {
			lo[i], hi[i] = lower, upper
		}
		return WithBounds(lo, hi)(v)
	}
}

// NewVector creates a parameter holding a copy of values.
func NewVector(name string, values []float64, opts ...VectorOption) (*Vector, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("parameter %s has no values", name)
	}
	v := &Vector{
		id:     uuid.New(),
		name:   name,
		values: append([]float64(nil), values...),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// MustVector is NewVector for fixtures and literals; it panics on error.
func MustVector(name string, values []float64, opts ...VectorOption) *Vector {
	v, err := NewVector(name, values, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Vector) ID() uuid.UUID       { return v.id }
func (v *Vector) Name() string        { return v.name }
func (v *Vector) Dimension() int      { return len(v.values) }
func (v *Vector) Value(i int) float64 { return v.values[i] }

func (v *Vector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

func (v *Vector) SetValue(i int, x float64) {
	v.values[i] = x
	v.notify(v, i)
}

func (v *Vector) SetValueQuietly(i int, x float64) {
	v.values[i] = x
}

func (v *Vector) FireChanged() {
	v.notify(v, AllIndices)
}

func (v *Vector) Bounds(i int) (float64, float64) {
	if v.lower == nil {
		return math.Inf(-1), math.Inf(1)
	}
	return v.lower[i], v.upper[i]
}

// SetValues replaces every value and fires a single notification.
func SetValues(p Parameter, values []float64) error {
	if len(values) != p.Dimension() {
		return fmt.Errorf("cannot set %d values on %s with dimension %d", len(values), p.Name(), p.Dimension())
	}
	for i, x := range values {
		p.SetValueQuietly(i, x)
	}
	p.FireChanged()
	return nil
}

// Equal reports whether two parameters currently hold numerically identical values.
// It returns the first differing index, or -1.
func Equal(a, b Parameter) (bool, int) {
	if a.Dimension() != b.Dimension() {
		return false, -1
	}
	for i := 0; i < a.Dimension(); i++ {
		if a.Value(i) != b.Value(i) {
			return false, i
		}
	}
	return true, -1
}
