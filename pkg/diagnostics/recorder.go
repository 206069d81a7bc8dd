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
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"
)

// Recorder stores the discrepancy statistics of one evaluation.
type Recorder interface {
	Record(provider string, state int64, stats Stats)
}

// Recorders fans a record out to several recorders in order.
type Recorders []Recorder

func (r Recorders) Record(provider string, state int64, stats Stats) {
	for _, rec := range r {
		rec.Record(provider, state, stats)
	}
}

// MetricName is the name of the gauge exported by PrometheusRecorder.
const MetricName = "gradcompose_gradient_discrepancy"

// PrometheusRecorder exports the latest statistics of every provider as a
// gauge labelled by provider and statistic.
type PrometheusRecorder struct {
	gauge *prometheus.GaugeVec
	state *prometheus.GaugeVec
}

// NewPrometheusRecorder registers the gauges with reg. Registering twice
// with the same registerer reuses the existing collectors.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: MetricName,
		Help: "Discrepancy between the analytic and the finite-difference gradient.",
	}, []string{"provider", "statistic"})
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gradcompose_diagnostics_state",
		Help: "Sampler state of the most recent gradient diagnostics evaluation.",
	}, []string{"provider"})

	var err error
	if gauge, err = register(reg, gauge); err != nil {
		return nil, err
	}
	if state, err = register(reg, state); err != nil {
		return nil, err
	}
	return &PrometheusRecorder{gauge: gauge, state: state}, nil
}

func register(reg prometheus.Registerer, vec *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

func (r *PrometheusRecorder) Record(provider string, state int64, stats Stats) {
	for i, v := range stats.Values() {
		r.gauge.WithLabelValues(provider, StatisticNames[i]).Set(v)
	}
	r.state.WithLabelValues(provider).Set(float64(state))
}

// History keeps recent statistics in memory, one buffer per provider and
// statistic. It is safe for concurrent use.
type History struct {
	mu        sync.RWMutex
	clock     clock.PassiveClock
	retention time.Duration
	maxPoints int
	buffers   map[string]map[string]*Buffer
}

// NewHistory creates a history. A nil clock uses the real clock.
func NewHistory(clk clock.PassiveClock, retention time.Duration, maxPoints int) *History {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &History{
		clock:     clk,
		retention: retention,
		maxPoints: maxPoints,
		buffers:   make(map[string]map[string]*Buffer),
	}
}

func (h *History) Record(provider string, state int64, stats Stats) {
	now := h.clock.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	byStat, ok := h.buffers[provider]
	if !ok {
		byStat = make(map[string]*Buffer, len(StatisticNames))
		h.buffers[provider] = byStat
	}
	for i, v := range stats.Values() {
		name := StatisticNames[i]
		buf, ok := byStat[name]
		if !ok {
			buf = &Buffer{Series: NewSeries(provider, name), Retention: h.retention, MaxPoints: h.maxPoints}
			byStat[name] = buf
		}
		buf.Add(DataPoint{Timestamp: now, State: state, Value: v})
	}
}

// Series returns a copy of the recorded series, or nil if nothing was
// recorded for provider and statistic.
func (h *History) Series(provider, statistic string) *Series {
	h.mu.RLock()
	defer h.mu.RUnlock()
	buf, ok := h.buffers[provider][statistic]
	if !ok {
		return nil
	}
	out := NewSeries(provider, statistic)
	out.Points = append(out.Points, buf.Series.Points...)
	return out
}

// Aggregated reduces the recorded series. Unknown series aggregate like an
// empty one.
func (h *History) Aggregated(provider, statistic string, agg AggregationType) float64 {
	s := h.Series(provider, statistic)
	if s == nil {
		s = NewSeries(provider, statistic)
	}
	return s.Aggregate(agg)
}
