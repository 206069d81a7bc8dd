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

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Compact folds repeated sub-parameters of a compound parameter onto their
// first occurrence. The derivative with respect to a repeated coordinate is
// the sum over all of its occurrences.
type Compact struct {
	name       string
	inner      derivative.Provider
	param      *parameter.Compound
	indexMap   []int
	duplicates bool
	caps       derivative.Capability
}

var (
	_ derivative.HessianProvider    = (*Compact)(nil)
	_ derivative.CapabilityReporter = (*Compact)(nil)
)

// NewCompact wraps a provider whose parameter is a *parameter.Compound.
func NewCompact(p derivative.Provider, opts ...Option) (*Compact, error) {
	source, ok := p.Parameter().(*parameter.Compound)
	if !ok {
		return nil, fmt.Errorf("compact %s: %w", p.Parameter().Name(), derivative.ErrNotCompound)
	}
	o := newOptions(opts)
	if o.name == "" {
		o.name = "compact(" + source.Name() + ")"
	}

	var distinct []parameter.Parameter
	blockStart := make(map[uuid.UUID]int)
	indexMap := make([]int, 0, source.Dimension())
	next := 0
	for k := 0; k < source.SubCount(); k++ {
		sub := source.SubAt(k)
		start, seen := blockStart[sub.ID()]
		if !seen {
			start = next
			blockStart[sub.ID()] = start
			distinct = append(distinct, sub)
			next += sub.Dimension()
		}
		for j := 0; j < sub.Dimension(); j++ {
			indexMap = append(indexMap, start+j)
		}
	}
	param, err := parameter.NewCompound(o.name, distinct...)
	if err != nil {
		return nil, err
	}

	c := &Compact{
		name:       o.name,
		inner:      p,
		param:      param,
		indexMap:   indexMap,
		duplicates: len(distinct) < source.SubCount(),
	}
	innerCaps := derivative.CapabilitiesOf(p)
	c.caps = derivative.Gradient
	if innerCaps.Has(derivative.FullHessian) {
		c.caps |= derivative.DiagonalHessian | derivative.FullHessian
	} else if innerCaps.Has(derivative.DiagonalHessian) && !c.duplicates {
		c.caps |= derivative.DiagonalHessian
	}
	o.logger.V(logging.DEBUG).Info("Built compact composite",
		"name", c.name,
		"physicalDimension", source.Dimension(),
		"dimension", param.Dimension(),
		"duplicates", c.duplicates,
		"capabilities", c.caps.String())
	return c, nil
}

// Map returns the physical-to-compacted index map.
func (c *Compact) Map() []int { return append([]int(nil), c.indexMap...) }

func (c *Compact) Density() density.Density            { return c.inner.Density() }
func (c *Compact) Parameter() parameter.Parameter      { return c.param }
func (c *Compact) Dimension() int                      { return c.param.Dimension() }
func (c *Compact) Capabilities() derivative.Capability { return c.caps }
func (c *Compact) Close() error                        { return closeAll(c.inner) }

func (c *Compact) fold(in []float64) []float64 {
	out := make([]float64, c.Dimension())
	for i, v := range in {
		out[c.indexMap[i]] += v
	}
	return out
}

func (c *Compact) Gradient() []float64 {
	return c.fold(c.inner.Gradient())
}

// DiagonalHessian folds the inner diagonal when no sub-parameter repeats.
// With repeats, the cross terms between occurrences come from the full
// Hessian.
func (c *Compact) DiagonalHessian() []float64 {
	if !c.caps.Has(derivative.DiagonalHessian) {
		derivative.NotImplemented("diagonal Hessian of %s", c.name)
	}
	if !c.duplicates {
		return c.fold(derivative.AsDiagonalHessian(c.inner).DiagonalHessian())
	}
	h := derivative.AsHessian(c.inner).Hessian()
	out := make([]float64, c.Dimension())
	for i, mi := range c.indexMap {
		for j, mj := range c.indexMap {
			if mi == mj {
				out[mi] += h.At(i, j)
			}
		}
	}
	return out
}

// Hessian folds both axes of the inner Hessian.
func (c *Compact) Hessian() *mat.SymDense {
	if !c.caps.Has(derivative.FullHessian) {
		derivative.NotImplemented("Hessian of %s", c.name)
	}
	h := derivative.AsHessian(c.inner).Hessian()
	n := c.Dimension()
	folded := mat.NewDense(n, n, nil)
	for i, mi := range c.indexMap {
		for j, mj := range c.indexMap {
			folded.Set(mi, mj, folded.At(mi, mj)+h.At(i, j))
		}
	}
	out := mat.NewSymDense(n, nil)
	for r := 0; r < n; r++ {
		for col := r; col < n; col++ {
			out.SetSym(r, col, folded.At(r, col))
		}
	}
	return out
}
