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

package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"k8s.io/utils/ptr"

	"github.com/phylo-inference/gradcompose/pkg/numeric"
)

const (
	// GlobalDefaultsKey holds the settings every provider inherits.
	GlobalDefaultsKey = "default"

	DefaultTolerance            = 1e-3
	DefaultSmallNumberThreshold = 1e-8
)

// CheckConfig configures the cross-check of one provider. Unset fields
// inherit from the "default" entry.
type CheckConfig struct {
	// Tolerance is the relative tolerance; an explicit zero or negative
	// value is rejected, and Interactive disables failing instead.
	Tolerance *float64 `mapstructure:"tolerance" yaml:"tolerance,omitempty"`
	// SmallNumberThreshold exempts small values from the relative test.
	SmallNumberThreshold *float64 `mapstructure:"smallNumberThreshold" yaml:"smallNumberThreshold,omitempty"`
	// StepScale overrides the finite-difference step scale.
	StepScale *float64 `mapstructure:"stepScale" yaml:"stepScale,omitempty"`
	// Interactive reports mismatches without failing.
	Interactive *bool `mapstructure:"interactive" yaml:"interactive,omitempty"`
	// DiagonalHessian also checks the diagonal Hessian when supported.
	DiagonalHessian *bool `mapstructure:"diagonalHessian" yaml:"diagonalHessian,omitempty"`
}

// CheckConfigData maps provider names to their check settings.
type CheckConfigData map[string]CheckConfig

// Validate checks for invalid values.
func (c *CheckConfig) Validate() error {
	if c.Tolerance != nil && !(*c.Tolerance > 0) {
		return fmt.Errorf("tolerance must be > 0, got %g", *c.Tolerance)
	}
	if c.SmallNumberThreshold != nil && (*c.SmallNumberThreshold < 0 || math.IsNaN(*c.SmallNumberThreshold)) {
		return fmt.Errorf("smallNumberThreshold must be >= 0, got %g", *c.SmallNumberThreshold)
	}
	if c.StepScale != nil && !(*c.StepScale > 0) {
		return fmt.Errorf("stepScale must be > 0, got %g", *c.StepScale)
	}
	return nil
}

// Names returns the entry names in sorted order.
func (data CheckConfigData) Names() []string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the effective settings for provider: its own entry merged
// over the defaults. Configuration keys are case-insensitive, so a provider
// without an exact entry falls back to its lower-cased name.
func (data CheckConfigData) Get(provider string) CheckConfig {
	result := data[GlobalDefaultsKey]
	override, ok := data[provider]
	if !ok {
		override, ok = data[strings.ToLower(provider)]
	}
	if !ok || provider == GlobalDefaultsKey {
		return result
	}
	if override.Tolerance != nil {
		result.Tolerance = override.Tolerance
	}
	if override.SmallNumberThreshold != nil {
		result.SmallNumberThreshold = override.SmallNumberThreshold
	}
	if override.StepScale != nil {
		result.StepScale = override.StepScale
	}
	if override.Interactive != nil {
		result.Interactive = override.Interactive
	}
	if override.DiagonalHessian != nil {
		result.DiagonalHessian = override.DiagonalHessian
	}
	return result
}

// CheckerConfig returns the numeric checker settings for provider.
func (data CheckConfigData) CheckerConfig(provider string) *numeric.Config {
	c := data.Get(provider)
	out := &numeric.Config{
		SmallNumberThreshold: ptr.Deref(c.SmallNumberThreshold, DefaultSmallNumberThreshold),
		StepScale:            ptr.Deref(c.StepScale, 0),
	}
	if !ptr.Deref(c.Interactive, false) {
		out.Tolerance = ptr.To(ptr.Deref(c.Tolerance, DefaultTolerance))
	}
	return out
}

// ChecksDiagonalHessian reports whether provider's diagonal Hessian is checked.
func (data CheckConfigData) ChecksDiagonalHessian(provider string) bool {
	return ptr.Deref(data.Get(provider).DiagonalHessian, false)
}
