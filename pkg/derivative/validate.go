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
	"fmt"

	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Validate checks the dimension invariants of p at its current point.
func Validate(p Provider) error {
	dim := p.Dimension()
	if pd := p.Parameter().Dimension(); pd != dim {
		return fmt.Errorf("provider %s reports dimension %d but its parameter has %d: %w",
			p.Parameter().Name(), dim, pd, ErrDimensionMismatch)
	}
	if gd := len(p.Gradient()); gd != dim {
		return fmt.Errorf("provider %s reports dimension %d but its gradient has %d: %w",
			p.Parameter().Name(), dim, gd, ErrDimensionMismatch)
	}
	if dh := AsDiagonalHessian(p); dh != nil {
		if n := len(dh.DiagonalHessian()); n != dim {
			return fmt.Errorf("provider %s reports dimension %d but its diagonal Hessian has %d: %w",
				p.Parameter().Name(), dim, n, ErrDimensionMismatch)
		}
	}
	return nil
}

// CheckSharedPoint verifies that all providers have the same dimension and
// numerically identical current parameter values.
func CheckSharedPoint(providers []Provider) error {
	if len(providers) == 0 {
		return ErrEmptyProviders
	}
	first := providers[0]
	for k, p := range providers[1:] {
		if p.Dimension() != first.Dimension() {
			return fmt.Errorf("provider %d (%s) has dimension %d, provider 0 (%s) has %d: %w",
				k+1, p.Parameter().Name(), p.Dimension(), first.Parameter().Name(), first.Dimension(),
				ErrDimensionMismatch)
		}
		if ok, i := parameter.Equal(first.Parameter(), p.Parameter()); !ok {
			return fmt.Errorf("provider %d (%s) differs from provider 0 (%s) at index %d (%g != %g): %w",
				k+1, p.Parameter().Name(), first.Parameter().Name(), i,
				p.Parameter().Value(i), first.Parameter().Value(i), ErrValueMismatch)
		}
	}
	return nil
}
