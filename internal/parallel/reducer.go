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
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/phylo-inference/gradcompose/pkg/derivative"
)

// Reducer combines per-provider results, ordered as the providers were given.
type Reducer interface {
	Reduce(results [][]float64) ([]float64, error)
}

// Strategy is an enumeration of the reductions an Executor can apply.
type Strategy int

// enumeration of Strategy
const (
	// SumStrategy adds results elementwise. Every result has the same length.
	SumStrategy Strategy = iota
	// ConcatStrategy writes each result at its cumulative offset.
	ConcatStrategy
)

func (s Strategy) String() string {
	switch s {
	case SumStrategy:
		return "sum"
	case ConcatStrategy:
		return "concat"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// NewReducer is a factory that creates a Reducer for the given strategy and
// per-provider result dimensions.
func NewReducer(strategy Strategy, dims []int) (Reducer, error) {
	if len(dims) == 0 {
		return nil, derivative.ErrEmptyProviders
	}
	switch strategy {
	case SumStrategy:
		for i, d := range dims {
			if d != dims[0] {
				return nil, fmt.Errorf("sum reduction: result %d has dimension %d, result 0 has %d: %w",
					i, d, dims[0], derivative.ErrDimensionMismatch)
			}
		}
		return &sumReducer{dims: append([]int(nil), dims...)}, nil
	case ConcatStrategy:
		offsets := make([]int, len(dims)+1)
		for i, d := range dims {
			offsets[i+1] = offsets[i] + d
		}
		return &concatReducer{dims: append([]int(nil), dims...), offsets: offsets}, nil
	default:
		return nil, fmt.Errorf("unsupported reduction strategy: %v", strategy)
	}
}

func checkDims(results [][]float64, dims []int) error {
	if len(results) != len(dims) {
		return fmt.Errorf("got %d results for %d providers: %w", len(results), len(dims), derivative.ErrDimensionMismatch)
	}
	for i, r := range results {
		if len(r) != dims[i] {
			return fmt.Errorf("result %d has dimension %d, want %d: %w", i, len(r), dims[i], derivative.ErrDimensionMismatch)
		}
	}
	return nil
}

type sumReducer struct {
	dims []int
}

func (s *sumReducer) Reduce(results [][]float64) ([]float64, error) {
	if err := checkDims(results, s.dims); err != nil {
		return nil, err
	}
	out := make([]float64, s.dims[0])
	for _, r := range results {
		floats.Add(out, r)
	}
	return out, nil
}

type concatReducer struct {
	dims    []int
	offsets []int
}

func (c *concatReducer) Reduce(results [][]float64) ([]float64, error) {
	if err := checkDims(results, c.dims); err != nil {
		return nil, err
	}
	out := make([]float64, c.offsets[len(c.dims)])
	for i, r := range results {
		copy(out[c.offsets[i]:c.offsets[i+1]], r)
	}
	return out, nil
}
