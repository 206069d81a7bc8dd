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
	"context"
	"errors"
	"io"
	"strings"

	"github.com/go-logr/logr"

	"github.com/phylo-inference/gradcompose/internal/parallel"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
)

// fanout evaluates a list of constituents either serially or on an owned
// executor and reduces the results.
type fanout struct {
	providers []derivative.Provider
	reducer   parallel.Reducer
	exec      *parallel.Executor
	logger    logr.Logger
}

func newFanout(providers []derivative.Provider, strategy parallel.Strategy, o *options) (*fanout, error) {
	dims := make([]int, len(providers))
	for i, p := range providers {
		dims[i] = p.Dimension()
	}
	reducer, err := parallel.NewReducer(strategy, dims)
	if err != nil {
		return nil, err
	}
	f := &fanout{providers: providers, reducer: reducer, logger: o.logger}
	if o.parallel {
		f.exec = parallel.NewExecutor(o.workers, len(providers))
	}
	return f, nil
}

func (f *fanout) evaluate(kind parallel.Kind) []float64 {
	var (
		out []float64
		err error
	)
	if f.exec != nil && !f.exec.Closed() {
		ctx := logr.NewContext(context.Background(), f.logger)
		out, err = f.exec.Evaluate(ctx, f.providers, kind, f.reducer)
	} else {
		out, err = parallel.EvaluateSerial(f.providers, kind, f.reducer)
	}
	if err != nil {
		// Capabilities were resolved at construction, so any failure here is
		// a broken provider contract.
		panic(err)
	}
	return out
}

func (f *fanout) workers() int {
	if f.exec == nil {
		return 1
	}
	return f.exec.Workers()
}

func (f *fanout) close() error {
	var errs []error
	if f.exec != nil {
		errs = append(errs, f.exec.Close())
	}
	errs = append(errs, closeAll(f.providers...))
	return errors.Join(errs...)
}

// Close releases resources held by p and by anything it wraps.
func Close(p derivative.Provider) error {
	return closeAll(p)
}

func closeAll(providers ...derivative.Provider) error {
	var errs []error
	for _, p := range providers {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func joinNames(providers []derivative.Provider) string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Parameter().Name()
	}
	return strings.Join(names, ",")
}
