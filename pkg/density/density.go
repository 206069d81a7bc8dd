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

// Package density defines the scalar log-densities that derivative providers
// differentiate, and the deduplicated union used when providers are composed.
package density

import (
	"fmt"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Density is a scalar log-density of one or more parameters.
type Density interface {
	// ID is a stable identity used to deduplicate shared terms.
	ID() uuid.UUID
	Name() string
	// LogValue evaluates the density at the current parameter values.
	LogValue() float64
	// Terms returns the elementary terms this density sums over. An
	// elementary density returns itself.
	Terms() []Density
}

// Dirtier is implemented by densities that cache their value.
type Dirtier interface {
	MakeDirty()
}

// MakeDirty invalidates any cached value held by d or by its terms.
func MakeDirty(d Density) {
	if dd, ok := d.(Dirtier); ok {
		dd.MakeDirty()
	}
	for _, term := range d.Terms() {
		if term.ID() == d.ID() {
			continue
		}
		if dd, ok := term.(Dirtier); ok {
			dd.MakeDirty()
		}
	}
}

// Elementary is a density computed by a function.
type Elementary struct {
	id   uuid.UUID
	name string
	fn   func() float64
}

var _ Density = (*Elementary)(nil)

// New returns an elementary density evaluated by fn.
func New(name string, fn func() float64) *Elementary {
	return &Elementary{id: uuid.New(), name: name, fn: fn}
}

func (e *Elementary) ID() uuid.UUID     { return e.id }
func (e *Elementary) Name() string      { return e.name }
func (e *Elementary) LogValue() float64 { return e.fn() }
func (e *Elementary) Terms() []Density  { return []Density{e} }
func (e *Elementary) String() string    { return fmt.Sprintf("density(%s)", e.name) }

// Compound is the deduplicated union of the elementary terms of its parts.
// A term reachable through several parts is evaluated once.
type Compound struct {
	id    uuid.UUID
	name  string
	terms []Density
}

var _ Density = (*Compound)(nil)

// NewCompound collects the terms of parts, keeping the first occurrence of
// each term in order.
func NewCompound(name string, parts ...Density) *Compound {
	c := &Compound{id: uuid.New(), name: name}
	seen := sets.New[uuid.UUID]()
	for _, part := range parts {
		for _, term := range part.Terms() {
			if seen.Has(term.ID()) {
				continue
			}
			seen.Insert(term.ID())
			c.terms = append(c.terms, term)
		}
	}
	return c
}

func (c *Compound) ID() uuid.UUID { return c.id }
func (c *Compound) Name() string  { return c.name }

func (c *Compound) Terms() []Density {
	return append([]Density(nil), c.terms...)
}

func (c *Compound) LogValue() float64 {
	var sum float64
	for _, term := range c.terms {
		sum += term.LogValue()
	}
	return sum
}

// Negated is the elementary density -d.
type Negated struct {
	id    uuid.UUID
	inner Density
}

// Negate returns -d as a single elementary term.
func Negate(d Density) *Negated {
	return &Negated{id: uuid.New(), inner: d}
}

func (n *Negated) ID() uuid.UUID     { return n.id }
func (n *Negated) Name() string      { return "-" + n.inner.Name() }
func (n *Negated) LogValue() float64 { return -n.inner.LogValue() }
func (n *Negated) Terms() []Density  { return []Density{n} }
func (n *Negated) MakeDirty()        { MakeDirty(n.inner) }
