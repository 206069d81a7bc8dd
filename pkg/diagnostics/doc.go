// Package diagnostics watches a gradient provider while a sampler runs.
//
// A Logger wraps any provider and, every Interval states, evaluates its
// analytic gradient next to a finite-difference estimate. The discrepancy
// is summarised as Stats and handed to a Recorder: Prometheus gauges
// labelled by provider, an in-memory History with bounded retention, or
// both through Recorders.
package diagnostics
