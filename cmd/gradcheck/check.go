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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/internal/reference"
	"github.com/phylo-inference/gradcompose/pkg/derivative"
	"github.com/phylo-inference/gradcompose/pkg/diagnostics"
	"github.com/phylo-inference/gradcompose/pkg/numeric"
)

// errChecksFailed makes the command exit non-zero after printing every report.
var errChecksFailed = errors.New("gradient cross-checks failed")

type checkOptions struct {
	beta float64
}

func newCheckCommand(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Build the reference composition and cross-check every stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), root, opts)
		},
	}
	f := cmd.Flags()
	f.Float64("tolerance", 0, "relative tolerance of the cross-check")
	f.Float64("step-scale", 0, "finite-difference step scale")
	f.Float64("small-value", 0, "magnitude below which values are exempt from the relative test")
	f.Int("workers", 0, "worker pool size for parallel stages")
	f.Bool("parallel", false, "evaluate sum and joint stages in parallel")
	f.Bool("metrics", false, "print diagnostics metrics in Prometheus text format")
	f.Float64Var(&opts.beta, "beta", 0.5, "blend coefficient of the path stage")
	return cmd
}

func runCheck(ctx context.Context, out io.Writer, root *rootOptions, opts *checkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := root.cfg
	ctx = logr.NewContext(ctx, logging.Log)

	comp, err := reference.Build(reference.Options{
		Parallel: cfg.Parallel.Enabled || cfg.Parallel.Workers > 0,
		Workers:  cfg.Parallel.Workers,
		Beta:     opts.beta,
		Logger:   logging.Log,
	})
	if err != nil {
		return fmt.Errorf("building reference composition: %w", err)
	}
	defer func() {
		if err := comp.Close(); err != nil {
			logging.Log.Error(err, "Failed to release executors")
		}
	}()

	registry := prometheus.NewRegistry()
	recorder, err := diagnostics.NewPrometheusRecorder(registry)
	if err != nil {
		return err
	}
	history := diagnostics.NewHistory(nil, cfg.Diagnostics.Retention, cfg.Diagnostics.MaxPoints)
	agg, err := diagnostics.ParseAggregation(cfg.Diagnostics.Aggregation)
	if err != nil {
		return err
	}

	failed := false
	for _, stage := range comp.Stages {
		ok, err := checkStage(ctx, out, root, stage)
		if err != nil {
			return err
		}
		failed = failed || !ok

		dl, err := diagnostics.NewLogger(stage.Provider, &diagnostics.LoggerConfig{
			Name:     stage.Name,
			Interval: cfg.Diagnostics.Interval,
			Checker:  *cfg.Checks.CheckerConfig(stage.Name),
			Recorder: diagnostics.Recorders{recorder, history},
		})
		if err != nil {
			return err
		}
		if _, err := dl.Log(ctx, 0); err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s(angle) = %.3g\n", agg, history.Aggregated(stage.Name, diagnostics.Angle, agg))
	}

	if cfg.Diagnostics.Metrics {
		if err := writeMetrics(out, registry); err != nil {
			return err
		}
	}
	if failed {
		return errChecksFailed
	}
	return nil
}

// checkStage prints the reports of one stage and reports whether it passed.
func checkStage(ctx context.Context, out io.Writer, root *rootOptions, stage reference.Stage) (bool, error) {
	checker, err := numeric.NewChecker(root.cfg.Checks.CheckerConfig(stage.Name))
	if err != nil {
		return false, fmt.Errorf("stage %s: %w", stage.Name, err)
	}
	caps := derivative.CapabilitiesOf(stage.Provider)
	fmt.Fprintf(out, "%s (dimension %d, %s)\n", stage.Name, stage.Provider.Dimension(), caps)

	report, err := checker.Check(ctx, stage.Provider)
	passed, err := outcome(out, report, err)
	if err != nil {
		return false, err
	}
	if !root.cfg.Checks.ChecksDiagonalHessian(stage.Name) || !caps.Has(derivative.DiagonalHessian) {
		return passed, nil
	}
	report, err = checker.CheckDiagonalHessian(ctx, derivative.AsDiagonalHessian(stage.Provider))
	ok, err := outcome(out, report, err)
	return passed && ok, err
}

func outcome(out io.Writer, report *numeric.Report, err error) (bool, error) {
	var mismatch *numeric.MismatchError
	switch {
	case err == nil:
		fmt.Fprintf(out, "  %s: ok\n", report.Kind)
		return true, nil
	case errors.As(err, &mismatch):
		fmt.Fprintf(out, "  %s: FAILED\n%s\n", report.Kind, report)
		return false, nil
	default:
		return false, err
	}
}

func writeMetrics(out io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
