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
	"github.com/phylo-inference/gradcompose/internal/parallel"
	"github.com/phylo-inference/gradcompose/pkg/density"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
)

// Segment describes where one constituent's coordinates sit in a joint
// parameter.
type Segment struct {
	Name        string
	ParameterID uuid.UUID
	Offset      int
	Dimension   int
}

// Joint stacks providers over independent parameters into one joint
// parameter, in the order the providers are given.
type Joint struct {
	name     string
	fan      *fanout
	param    *parameter.Compound
	density  density.Density
	caps     derivative.Capability
	segments []Segment
}

var (
	_ derivative.HessianProvider    = (*Joint)(nil)
	_ derivative.CapabilityReporter = (*Joint)(nil)
)

// NewJoint concatenates providers. With WithOrder the providers' parameter
// IDs must match the declared order exactly.
func NewJoint(providers []derivative.Provider, opts ...Option) (*Joint, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("joint: %w", derivative.ErrEmptyProviders)
	}
	o := newOptions(opts)
	if o.name == "" {
		o.name = "joint(" + joinNames(providers) + ")"
	}
	subs := make([]parameter.Parameter, len(providers))
	parts := make([]density.Density, len(providers))
	segments := make([]Segment, len(providers))
	offset := 0
	for i, p := range providers {
		if err := derivative.Validate(p); err != nil {
			return nil, fmt.Errorf("joint %s: provider %d: %w", o.name, i, err)
		}
		subs[i] = p.Parameter()
		parts[i] = p.Density()
		segments[i] = Segment{
			Name:        p.Parameter().Name(),
			ParameterID: p.Parameter().ID(),
			Offset:      offset,
			Dimension:   p.Dimension(),
		}
		offset += p.Dimension()
	}
	param, err := parameter.NewCompound(o.name, subs...)
	if err != nil {
		return nil, err
	}
	fan, err := newFanout(append([]derivative.Provider(nil), providers...), parallel.ConcatStrategy, o)
	if err != nil {
		return nil, fmt.Errorf("joint %s: %w", o.name, err)
	}
	j := &Joint{
		name:     o.name,
		fan:      fan,
		param:    param,
		density:  density.NewCompound(o.name, parts...),
		caps:     derivative.CommonCapabilities(providers),
		segments: segments,
	}
	if o.order != nil {
		if err := j.checkIDs(o.order); err != nil {
			return nil, err
		}
	}
	o.logger.V(logging.DEBUG).Info("Built joint composite",
		"name", j.name,
		"segments", j.segments,
		"dimension", j.Dimension(),
		"workers", fan.workers(),
		"capabilities", j.caps.String())
	return j, nil
}

// Segments returns the layout of the joint parameter.
func (j *Joint) Segments() []Segment {
	return append([]Segment(nil), j.segments...)
}

// CheckOrder verifies that the joint parameter is laid out as params, in
// order. Callers interpreting the joint vector positionally (a sampler's
// momentum, a mass matrix) should check the layout they assume.
func (j *Joint) CheckOrder(params ...parameter.Parameter) error {
	ids := make([]uuid.UUID, len(params))
	for i, p := range params {
		ids[i] = p.ID()
	}
	return j.checkIDs(ids)
}

func (j *Joint) checkIDs(ids []uuid.UUID) error {
	if len(ids) != len(j.segments) {
		return fmt.Errorf("joint %s has %d segments, expected %d: %w",
			j.name, len(j.segments), len(ids), derivative.ErrOrderMismatch)
	}
	for i, id := range ids {
		if j.segments[i].ParameterID != id {
			return fmt.Errorf("joint %s segment %d is %s (%s), expected %s: %w",
				j.name, i, j.segments[i].Name, j.segments[i].ParameterID, id, derivative.ErrOrderMismatch)
		}
	}
	return nil
}

func (j *Joint) Density() density.Density            { return j.density }
func (j *Joint) Parameter() parameter.Parameter      { return j.param }
func (j *Joint) Dimension() int                      { return j.param.Dimension() }
func (j *Joint) Capabilities() derivative.Capability { return j.caps }
func (j *Joint) Close() error                        { return j.fan.close() }

func (j *Joint) Gradient() []float64 {
	return j.fan.evaluate(parallel.GradientKind)
}

func (j *Joint) DiagonalHessian() []float64 {
	if !j.caps.Has(derivative.DiagonalHessian) {
		derivative.NotImplemented("diagonal Hessian of %s", j.name)
	}
	return j.fan.evaluate(parallel.DiagonalHessianKind)
}

// Hessian is block diagonal; coordinates of different constituents are
// independent.
func (j *Joint) Hessian() *mat.SymDense {
	if !j.caps.Has(derivative.FullHessian) {
		derivative.NotImplemented("Hessian of %s", j.name)
	}
	out := mat.NewSymDense(j.Dimension(), nil)
	for k, p := range j.fan.providers {
		h := derivative.AsHessian(p).Hessian()
		off := j.segments[k].Offset
		for r := 0; r < j.segments[k].Dimension; r++ {
			for c := r; c < j.segments[k].Dimension; c++ {
				out.SetSym(off+r, off+c, h.At(r, c))
			}
		}
	}
	return out
}
