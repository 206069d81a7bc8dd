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
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when providers or vectors disagree on dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrValueMismatch is returned when providers meant to share a point hold different values.
	ErrValueMismatch = errors.New("parameter values differ")
	// ErrNotCompound is returned when compaction is asked to fold a non-compound parameter.
	ErrNotCompound = errors.New("parameter is not a compound parameter")
	// ErrEmptyProviders is returned when a composer receives no providers.
	ErrEmptyProviders = errors.New("no providers")
	// ErrEmptyMask is returned when a mask selects no coordinate.
	ErrEmptyMask = errors.New("mask selects no coordinate")
	// ErrOrderMismatch is returned when a joint layout does not match the expected ordering.
	ErrOrderMismatch = errors.New("joint parameter order mismatch")
	// ErrNotImplemented marks combinations that are deliberately unsupported.
	ErrNotImplemented = errors.New("not implemented")
	// ErrBetaOutOfRange is returned when a path coefficient leaves [0, 1].
	ErrBetaOutOfRange = errors.New("beta out of range [0, 1]")
	// ErrMaskImmutable is the panic value cause when a mask changes after construction.
	ErrMaskImmutable = errors.New("mask parameter cannot change after construction")
)

// NotImplemented panics with an error wrapping ErrNotImplemented. Composites
// use it when a caller asks for a derivative their constituents cannot supply.
func NotImplemented(format string, args ...any) {
	panic(fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotImplemented))
}
