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

package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
)

// ErrClosed is returned by Evaluate after Close.
var ErrClosed = errors.New("executor is closed")

// Kind selects the derivative each task computes.
type Kind int

const (
	GradientKind Kind = iota
	DiagonalHessianKind
)

func (k Kind) String() string {
	if k == DiagonalHessianKind {
		return "diagonalHessian"
	}
	return "gradient"
}

// Executor evaluates providers on a bounded pool.
type Executor struct {
	// limit is the maximum number of concurrent tasks; 0 means one goroutine
	// per provider.
	limit  int
	closed atomic.Bool
}

// NewExecutor sizes the pool to min(requested, providers) when requested is
// positive, and to one goroutine per provider otherwise.
func NewExecutor(requested, providers int) *Executor {
	e := &Executor{}
	if requested > 0 {
		e.limit = min(requested, max(providers, 1))
	}
	return e
}

// Workers returns the concurrency limit, 0 when unbounded.
func (e *Executor) Workers() int { return e.limit }

// Close releases the executor. It is safe to call more than once.
func (e *Executor) Close() error {
	e.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (e *Executor) Closed() bool { return e.closed.Load() }

// Evaluate computes kind for every provider concurrently and reduces the
// results in input order.
func (e *Executor) Evaluate(ctx context.Context, providers []derivative.Provider, kind Kind, reducer Reducer) ([]float64, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if len(providers) == 0 {
		return nil, derivative.ErrEmptyProviders
	}
	logger := logging.FromContext(ctx)
	logger.V(logging.TRACE).Info("Parallel evaluation",
		"kind", kind.String(),
		"providers", len(providers),
		"workers", e.limit)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	if e.limit > 0 {
		p = p.WithMaxGoroutines(e.limit)
	}
	results := make([][]float64, len(providers))
	for i, provider := range providers {
		i, provider := i, provider
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := evaluate(provider, kind)
			if err != nil {
				return fmt.Errorf("provider %d (%s): %w", i, provider.Parameter().Name(), err)
			}
			results[i] = r
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return reducer.Reduce(results)
}

// EvaluateSerial computes kind for every provider in order on the calling
// goroutine and reduces the results.
func EvaluateSerial(providers []derivative.Provider, kind Kind, reducer Reducer) ([]float64, error) {
	results := make([][]float64, len(providers))
	for i, provider := range providers {
		r, err := evaluate(provider, kind)
		if err != nil {
			return nil, fmt.Errorf("provider %d (%s): %w", i, provider.Parameter().Name(), err)
		}
		results[i] = r
	}
	return reducer.Reduce(results)
}

func evaluate(p derivative.Provider, kind Kind) ([]float64, error) {
	switch kind {
	case GradientKind:
		return p.Gradient(), nil
	case DiagonalHessianKind:
		dh := derivative.AsDiagonalHessian(p)
		if dh == nil {
			return nil, fmt.Errorf("diagonal Hessian: %w", derivative.ErrNotImplemented)
		}
		return dh.DiagonalHessian(), nil
	default:
		return nil, fmt.Errorf("unsupported evaluation kind: %v", kind)
	}
}
