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
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/phylo-inference/gradcompose/internal/logging"
)

// Option configures a composer. Options that do not apply to a composer are
// ignored.
type Option func(*options)

type options struct {
	name     string
	parallel bool
	workers  int
	logger   logr.Logger
	order    []uuid.UUID
	jacobian bool
	inverse  bool
	negate   bool
}

func newOptions(opts []Option) *options {
	o := &options{logger: logging.Log}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithName sets the name used for the composite parameter, density and logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithParallel evaluates constituents on an executor with at most workers
// concurrent tasks. workers <= 0 runs one task per constituent.
func WithParallel(workers int) Option {
	return func(o *options) {
		o.parallel = true
		o.workers = workers
	}
}

// WithLogger sets the logger. The process-wide logger is used otherwise.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithOrder declares the parameter IDs a joint composite must be built from,
// in order.
func WithOrder(ids ...uuid.UUID) Option {
	return func(o *options) { o.order = append([]uuid.UUID(nil), ids...) }
}

// WithJacobian adds the log-determinant Jacobian correction to a transformed
// composite.
func WithJacobian() Option {
	return func(o *options) { o.jacobian = true }
}

// WithInverse uses the inverse of the given transform.
func WithInverse() Option {
	return func(o *options) { o.inverse = true }
}

// WithNegation negates the wrapped density of a transformed composite.
func WithNegation() Option {
	return func(o *options) { o.negate = true }
}
