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

// Package reference assembles the nested composition exercised by the
// gradcheck command and the end-to-end suite.
package reference

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"

	"github.com/phylo-inference/gradcompose/pkg/compose"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/parameter"
	"github.com/phylo-inference/gradcompose/pkg/synthetic"
	"github.com/phylo-inference/gradcompose/pkg/transform"
)

// Options configures Build.
type Options struct {
	// Parallel evaluates Sum and Joint stages on an executor.
	Parallel bool
	// Workers bounds the executor; zero means one task per constituent.
	Workers int
	// Beta is the blend coefficient of the final path stage. Zero evaluates
	// only the standard normal reference.
	Beta   float64
	Logger logr.Logger
}

// Stage is one named layer of the composition. The Gaussian over the raw
// compound parameter is not a stage: a probe of a repeated coordinate moves
// every occurrence, so only the compacted view has a checkable gradient.
type Stage struct {
	Name     string
	Provider derivative.Provider
}

// Composition is the ordered list of stages, innermost first.
type Composition struct {
	Stages []Stage
}

// Final returns the outermost stage.
func (c *Composition) Final() Stage { return c.Stages[len(c.Stages)-1] }

// Close releases every executor held by the stages.
func (c *Composition) Close() error {
	var errs []error
	for _, s := range c.Stages {
		if err := compose.Close(s.Provider); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Build assembles, innermost first:
//
//	compound (rates, shape, rates) -> compact -> mask -> log scale
//	  -> sum with a Gaussian prior -> joint with log-increment node heights
//	  -> path towards a standard normal reference
func Build(opts Options) (*Composition, error) {
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	common := []compose.Option{compose.WithLogger(opts.Logger)}
	fanned := common
	if opts.Parallel {
		fanned = append(append([]compose.Option(nil), common...), compose.WithParallel(opts.Workers))
	}

	c := &Composition{}
	add := func(name string, p derivative.Provider) {
		c.Stages = append(c.Stages, Stage{Name: name, Provider: p})
	}

	rates, err := parameter.NewVector("rates", []float64{0.8, 1.3}, parameter.WithUniformBounds(0, 100))
	if err != nil {
		return nil, err
	}
	shape, err := parameter.NewVector("shape", []float64{0.4})
	if err != nil {
		return nil, err
	}
	physical, err := parameter.NewCompound("physical", rates, shape, rates)
	if err != nil {
		return nil, err
	}
	likelihood, err := synthetic.NewGaussian(physical, []float64{1, 1, 0, 1.2, 0.9}, mat.NewSymDense(5, []float64{
		2.0, 0.3, 0.0, 0.1, 0.0,
		0.3, 1.5, 0.2, 0.0, 0.1,
		0.0, 0.2, 1.0, 0.0, 0.0,
		0.1, 0.0, 0.0, 1.8, 0.4,
		0.0, 0.1, 0.0, 0.4, 1.1,
	}))
	if err != nil {
		return nil, err
	}
	compact, err := compose.NewCompact(likelihood, common...)
	if err != nil {
		return nil, err
	}
	add("compact", compact)

	indicator, err := parameter.NewVector("rateMask", []float64{1, 1, 0})
	if err != nil {
		return nil, err
	}
	masked, err := compose.NewMask(compact, indicator, common...)
	if err != nil {
		return nil, err
	}
	add("mask", masked)

	logScale, err := compose.NewTransformed(masked, transform.Elementwise(transform.Exp(), masked.Dimension()),
		append([]compose.Option{compose.WithJacobian(), compose.WithName("logRates")}, common...)...)
	if err != nil {
		return nil, err
	}
	add("logScale", logScale)

	prior, err := synthetic.NewGaussian(logScale.Parameter(), []float64{0, 0}, mat.NewSymDense(2, []float64{
		1, 0.5,
		0.5, 2,
	}))
	if err != nil {
		return nil, err
	}
	posterior, err := compose.NewSum([]derivative.Provider{logScale, prior}, fanned...)
	if err != nil {
		return nil, err
	}
	add("sum", posterior)

	heights, err := parameter.NewVector("heights", []float64{0.3, 0.9, 1.6}, parameter.WithUniformBounds(0, 100))
	if err != nil {
		return nil, err
	}
	heightPrior, err := synthetic.NewIndependentNormal(heights, []float64{0.5, 1, 1.5}, []float64{0.5, 0.5, 0.5})
	if err != nil {
		return nil, err
	}
	increments, err := compose.NewIncrement(heightPrior, transform.IncrementLog, 0, 0,
		append([]compose.Option{compose.WithJacobian()}, common...)...)
	if err != nil {
		return nil, err
	}
	add("increments", increments)

	joint, err := compose.NewJoint([]derivative.Provider{posterior, increments},
		append([]compose.Option{compose.WithName("joint")}, fanned...)...)
	if err != nil {
		return nil, err
	}
	add("joint", joint)

	path, err := compose.NewPath(joint, synthetic.NewStandardNormal(joint.Parameter()), common...)
	if err != nil {
		return nil, err
	}
	if err := path.SetBeta(opts.Beta); err != nil {
		return nil, err
	}
	add("path", path)
	return c, nil
}
