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
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"
)

// View is implemented by parameters that own no values and forward reads and
// writes to other parameters.
type View interface {
	Parameter
	// Sources returns the distinct parameters the view reads from.
	Sources() []Parameter
}

var (
	_ View = (*Subset)(nil)
	_ View = (*Mapped)(nil)
	_ View = (*Compound)(nil)
)

// State holds the exact values of every leaf parameter behind a parameter.
type State struct {
	leaves []Parameter
	values [][]float64
}

// Snapshot captures the values of the leaf parameters that own p's state.
// Views are followed to their sources, so restoring never routes values back
// through a coordinate mapping.
func Snapshot(p Parameter) *State {
	s := &State{}
	seen := sets.New[uuid.UUID]()
	var walk func(Parameter)
	walk = func(q Parameter) {
		if seen.Has(q.ID()) {
			return
		}
		seen.Insert(q.ID())
		if v, ok := q.(View); ok {
			for _, src := range v.Sources() {
				walk(src)
			}
			return
		}
		s.leaves = append(s.leaves, q)
		s.values = append(s.values, q.Values())
	}
	walk(p)
	return s
}

// Restore writes the captured values back into the leaves without notifying
// anyone.
func (s *State) Restore() {
	for k, leaf := range s.leaves {
		for i, v := range s.values[k] {
			leaf.SetValueQuietly(i, v)
		}
	}
}

// Leaves returns the parameters the state was captured from.
func (s *State) Leaves() []Parameter { return append([]Parameter(nil), s.leaves...) }
