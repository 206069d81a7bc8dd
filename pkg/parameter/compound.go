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
	"errors"
	"fmt"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"
)

// ErrNoSubParameters is returned when a compound is built from nothing.
var ErrNoSubParameters = errors.New("compound parameter needs at least one sub-parameter")

// Compound is an ordered concatenation of sub-parameters. The same
// sub-parameter may appear more than once; its values are then visible at
// every occurrence.
type Compound struct {
	listeners

	id      uuid.UUID
	name    string
	subs    []Parameter
	offsets []int // offsets[k] is the flattened start of subs[k]; len(subs)+1 entries
	owner   []int // owner[i] is the sub slot holding flattened index i
	firing  bool
}

var _ Parameter = (*Compound)(nil)

// NewCompound concatenates subs in order.
func NewCompound(name string, subs ...Parameter) (*Compound, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoSubParameters)
	}
	c := &Compound{
		id:      uuid.New(),
		name:    name,
		subs:    append([]Parameter(nil), subs...),
		offsets: make([]int, len(subs)+1),
	}
	for k, sub := range subs {
		if sub == nil {
			return nil, fmt.Errorf("%s: sub-parameter %d is nil", name, k)
		}
		c.offsets[k+1] = c.offsets[k] + sub.Dimension()
		for j := 0; j < sub.Dimension(); j++ {
			c.owner = append(c.owner, k)
		}
	}

	// Subscribe once per distinct sub and forward to every occurrence.
	seen := sets.New[uuid.UUID]()
	for _, sub := range subs {
		if seen.Has(sub.ID()) {
			continue
		}
		seen.Insert(sub.ID())
		sub.AddListener(c.subChanged)
	}
	return c, nil
}

// MustCompound is NewCompound for fixtures; it panics on error.
func MustCompound(name string, subs ...Parameter) *Compound {
	c, err := NewCompound(name, subs...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Compound) ID() uuid.UUID  { return c.id }
func (c *Compound) Name() string   { return c.name }
func (c *Compound) Dimension() int { return c.offsets[len(c.subs)] }

// SubCount returns the number of sub-parameter slots, repeats included.
func (c *Compound) SubCount() int { return len(c.subs) }

// SubAt returns the sub-parameter in slot k.
func (c *Compound) SubAt(k int) Parameter { return c.subs[k] }

// Subs returns the sub-parameter slots in order.
func (c *Compound) Subs() []Parameter { return append([]Parameter(nil), c.subs...) }

// Sources returns each distinct sub-parameter once, in slot order.
func (c *Compound) Sources() []Parameter {
	seen := sets.New[uuid.UUID]()
	var out []Parameter
	for _, sub := range c.subs {
		if seen.Has(sub.ID()) {
			continue
		}
		seen.Insert(sub.ID())
		out = append(out, sub)
	}
	return out
}

// Offset returns the flattened start index of slot k.
func (c *Compound) Offset(k int) int { return c.offsets[k] }

func (c *Compound) locate(i int) (Parameter, int) {
	k := c.owner[i]
	return c.subs[k], i - c.offsets[k]
}

func (c *Compound) Value(i int) float64 {
	sub, j := c.locate(i)
	return sub.Value(j)
}

func (c *Compound) Values() []float64 {
	out := make([]float64, 0, c.Dimension())
	for _, sub := range c.subs {
		for j := 0; j < sub.Dimension(); j++ {
			out = append(out, sub.Value(j))
		}
	}
	return out
}

func (c *Compound) SetValue(i int, v float64) {
	sub, j := c.locate(i)
	sub.SetValue(j, v)
}

func (c *Compound) SetValueQuietly(i int, v float64) {
	sub, j := c.locate(i)
	sub.SetValueQuietly(j, v)
}

// FireChanged notifies each distinct sub-parameter once, then the compound's
// own listeners once.
func (c *Compound) FireChanged() {
	c.firing = true
	seen := sets.New[uuid.UUID]()
	for _, sub := range c.subs {
		if seen.Has(sub.ID()) {
			continue
		}
		seen.Insert(sub.ID())
		sub.FireChanged()
	}
	c.firing = false
	c.notify(c, AllIndices)
}

func (c *Compound) Bounds(i int) (float64, float64) {
	sub, j := c.locate(i)
	return sub.Bounds(j)
}

func (c *Compound) subChanged(sub Parameter, index int) {
	if c.firing {
		return
	}
	for k, s := range c.subs {
		if s.ID() != sub.ID() {
			continue
		}
		if index == AllIndices {
			c.notify(c, AllIndices)
			return
		}
		c.notify(c, c.offsets[k]+index)
	}
}
