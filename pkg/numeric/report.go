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

package numeric

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGradientMismatch is wrapped by mismatches of analytic gradients.
	ErrGradientMismatch = errors.New("analytic gradient does not match numeric estimate")
	// ErrHessianMismatch is wrapped by mismatches of analytic diagonal Hessians.
	ErrHessianMismatch = errors.New("analytic diagonal Hessian does not match numeric estimate")
)

// Kind names the derivative being checked.
type Kind string

const (
	GradientKind        Kind = "gradient"
	DiagonalHessianKind Kind = "diagonal Hessian"
)

// MismatchError describes the first coordinate that failed a cross-check.
type MismatchError struct {
	Provider           string
	Kind               Kind
	Index              int
	Analytic           float64
	Numeric            float64
	RelativeDifference float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s of %s mismatch at index %d: analytic %g, numeric %g, relative difference %g",
		e.Kind, e.Provider, e.Index, e.Analytic, e.Numeric, e.RelativeDifference)
}

func (e *MismatchError) Unwrap() error {
	if e.Kind == DiagonalHessianKind {
		return ErrHessianMismatch
	}
	return ErrGradientMismatch
}

// Report is the outcome of a cross-check. Mismatch is set when a tolerance
// was configured and a coordinate failed.
type Report struct {
	Provider string
	Kind     Kind
	Analytic []float64
	Numeric  []float64
	Mismatch *MismatchError
}

// Passed reports whether no mismatch was found.
func (r *Report) Passed() bool { return r.Mismatch == nil }

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider: %s (%s)\n", r.Provider, r.Kind)
	fmt.Fprintf(&b, "analytic: %s\n", formatVector(r.Analytic))
	fmt.Fprintf(&b, "numeric:  %s\n", formatVector(r.Numeric))
	if r.Mismatch != nil {
		fmt.Fprintf(&b, "mismatch at index %d: analytic %g, numeric %g, relative difference %g\n",
			r.Mismatch.Index, r.Mismatch.Analytic, r.Mismatch.Numeric, r.Mismatch.RelativeDifference)
	}
	return b.String()
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.8g", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
