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

	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/transform"
)

// NewIncrement exposes p through running-sum increments of the given kind.
// Bounds apply to transform.IncrementLogit only.
func NewIncrement(p derivative.Provider, kind transform.IncrementKind, lower, upper float64, opts ...Option) (*Transformed, error) {
	t, err := transform.NewIncrement(kind, p.Dimension(), lower, upper)
	if err != nil {
		return nil, fmt.Errorf("increment over %s: %w", p.Parameter().Name(), err)
	}
	return NewTransformed(p, t, opts...)
}
