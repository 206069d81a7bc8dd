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

package diagnostics

import (
	"context"
	"fmt"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/numeric"
)

// LoggerConfig configures a Logger.
type LoggerConfig struct {
	// Name labels the provider in columns, logs and metrics. Defaults to
	// the parameter name.
	Name string
	// Interval evaluates every Interval-th state. Values below 1 mean every state.
	Interval int64
	// Checker configures the finite-difference estimate. Its tolerance is ignored.
	Checker numeric.Config
	// Recorder receives the statistics; nil records nothing.
	Recorder Recorder
}

// Logger evaluates the gradient discrepancy of a provider at regular sampler
// states.
type Logger struct {
	name     string
	provider derivative.Provider
	checker  *numeric.Checker
	interval int64
	recorder Recorder
	last     Stats
}

// NewLogger wraps provider. A nil cfg evaluates every state and records nothing.
func NewLogger(provider derivative.Provider, cfg *LoggerConfig) (*Logger, error) {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}
	checkerCfg := cfg.Checker
	checkerCfg.Tolerance = nil
	checker, err := numeric.NewChecker(&checkerCfg)
	if err != nil {
		return nil, fmt.Errorf("diagnostics for %s: %w", provider.Parameter().Name(), err)
	}
	l := &Logger{
		name:     cfg.Name,
		provider: provider,
		checker:  checker,
		interval: max(cfg.Interval, 1),
		recorder: cfg.Recorder,
	}
	if l.name == "" {
		l.name = provider.Parameter().Name()
	}
	return l, nil
}

// Name returns the provider label.
func (l *Logger) Name() string { return l.name }

// Columns names the scalar columns, in the order of Values.
func (l *Logger) Columns() []string {
	out := make([]string, len(StatisticNames))
	for i, s := range StatisticNames {
		out[i] = l.name + "." + s
	}
	return out
}

// Values returns the statistics of the most recent evaluation.
func (l *Logger) Values() []float64 { return l.last.Values() }

// Last returns the statistics of the most recent evaluation.
func (l *Logger) Last() Stats { return l.last }

// Log evaluates the discrepancy when state is a multiple of the interval.
// It reports whether an evaluation took place.
func (l *Logger) Log(ctx context.Context, state int64) (bool, error) {
	if state%l.interval != 0 {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	analytic := l.provider.Gradient()
	estimate, err := l.checker.NumericGradient(l.provider)
	if err != nil {
		return false, fmt.Errorf("diagnostics for %s at state %d: %w", l.name, state, err)
	}
	stats, err := Compare(analytic, estimate)
	if err != nil {
		return false, fmt.Errorf("diagnostics for %s at state %d: %w", l.name, state, err)
	}
	l.last = stats
	if l.recorder != nil {
		l.recorder.Record(l.name, state, stats)
	}
	logging.FromContext(ctx).Info("Gradient diagnostics",
		"provider", l.name,
		"state", state,
		"maxAbsError", stats.MaxAbsoluteError,
		"maxRelError", stats.MaxRelativeError,
		"angle", stats.Angle)
	return true, nil
}
