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

	"github.com/google/uuid"
)

// Subset is a read/write view over selected indices of another parameter.
// Index i of the view is index Indices()[i] of the source.
type Subset struct {
	listeners

	id      uuid.UUID
	name    string
	source  Parameter
	indices []int
	inverse []int // source index -> view index, or -1
}

var _ Parameter = (*Subset)(nil)

// NewSubset builds a view over source restricted to indices, which must be
// distinct and within range.
func NewSubset(name string, source Parameter, indices []int) (*Subset, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("subset %s of %s selects no indices", name, source.Name())
	}
	inverse := make([]int, source.Dimension())
	for i := range inverse {
		inverse[i] = -1
	}
	for k, idx := range indices {
		if idx < 0 || idx >= source.Dimension() {
			return nil, fmt.Errorf("subset %s: index %d out of range for %s with dimension %d",
				name, idx, source.Name(), source.Dimension())
		}
		if inverse[idx] != -1 {
			return nil, fmt.Errorf("subset %s: index %d selected twice", name, idx)
		}
		inverse[idx] = k
	}
	s := &Subset{
		id:      uuid.New(),
		name:    name,
		source:  source,
		indices: append([]int(nil), indices...),
		inverse: inverse,
	}
	source.AddListener(s.sourceChanged)
	return s, nil
}

func (s *Subset) ID() uuid.UUID       { return s.id }
func (s *Subset) Name() string        { return s.name }
func (s *Subset) Dimension() int      { return len(s.indices) }
func (s *Subset) Value(i int) float64 { return s.source.Value(s.indices[i]) }

// Source returns the parameter the view selects from.
func (s *Subset) Source() Parameter { return s.source }

func (s *Subset) Sources() []Parameter { return []Parameter{s.source} }

// Indices returns the view-to-source index map.
func (s *Subset) Indices() []int { return append([]int(nil), s.indices...) }

// InverseIndices returns the source-to-view index map, -1 for unselected indices.
func (s *Subset) InverseIndices() []int { return append([]int(nil), s.inverse...) }

func (s *Subset) Values() []float64 {
	out := make([]float64, len(s.indices))
	for i, idx := range s.indices {
		out[i] = s.source.Value(idx)
	}
	return out
}

func (s *Subset) SetValue(i int, v float64)        { s.source.SetValue(s.indices[i], v) }
func (s *Subset) SetValueQuietly(i int, v float64) { s.source.SetValueQuietly(s.indices[i], v) }
func (s *Subset) FireChanged()                     { s.source.FireChanged() }

func (s *Subset) Bounds(i int) (float64, float64) {
	return s.source.Bounds(s.indices[i])
}

func (s *Subset) sourceChanged(_ Parameter, index int) {
	if index == AllIndices {
		s.notify(s, AllIndices)
		return
	}
	if k := s.inverse[index]; k >= 0 {
		s.notify(s, k)
	}
}
