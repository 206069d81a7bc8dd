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
	"fmt"
	"math"
	"time"
)

// AggregationType names a reduction over a series.
type AggregationType string

const (
	AggMax   AggregationType = "max"
	AggAvg   AggregationType = "avg"
	AggMin   AggregationType = "min"
	AggLast  AggregationType = "last"
	AggCount AggregationType = "count"
)

// ParseAggregation parses an aggregation name.
func ParseAggregation(s string) (AggregationType, error) {
	switch agg := AggregationType(s); agg {
	case AggMax, AggAvg, AggMin, AggLast, AggCount:
		return agg, nil
	default:
		return "", fmt.Errorf("unknown aggregation %q", s)
	}
}

// DataPoint is a single recorded value.
type DataPoint struct {
	// Timestamp is when the value was recorded.
	Timestamp time.Time
	// State is the sampler state the value belongs to.
	State int64
	Value float64
}

// Series is a chronological sequence of data points for one provider and
// statistic. It is not safe for concurrent use; History serialises access.
type Series struct {
	Provider  string
	Statistic string
	Points    []DataPoint
}

// NewSeries creates an empty series.
func NewSeries(provider, statistic string) *Series {
	return &Series{
		Provider:  provider,
		Statistic: statistic,
		Points:    make([]DataPoint, 0),
	}
}

// Add appends a data point.
func (s *Series) Add(p DataPoint) {
	s.Points = append(s.Points, p)
}

// Latest returns the most recent data point, or nil if empty.
func (s *Series) Latest() *DataPoint {
	if len(s.Points) == 0 {
		return nil
	}
	return &s.Points[len(s.Points)-1]
}

// Prune drops points recorded before cutoff.
func (s *Series) Prune(cutoff time.Time) {
	kept := s.Points[:0]
	for _, p := range s.Points {
		if !p.Timestamp.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	s.Points = kept
}

// Aggregate reduces the series. An empty series aggregates to NaN, except
// for AggCount which is zero.
func (s *Series) Aggregate(agg AggregationType) float64 {
	if agg == AggCount {
		return float64(len(s.Points))
	}
	if len(s.Points) == 0 {
		return math.NaN()
	}
	switch agg {
	case AggLast:
		return s.Points[len(s.Points)-1].Value
	case AggMax:
		out := math.Inf(-1)
		for _, p := range s.Points {
			out = math.Max(out, p.Value)
		}
		return out
	case AggMin:
		out := math.Inf(1)
		for _, p := range s.Points {
			out = math.Min(out, p.Value)
		}
		return out
	case AggAvg:
		var sum float64
		for _, p := range s.Points {
			sum += p.Value
		}
		return sum / float64(len(s.Points))
	}
	return math.NaN()
}

// Buffer bounds a series by age and by number of points.
type Buffer struct {
	Series *Series
	// Retention is how long points are kept; zero keeps them forever.
	Retention time.Duration
	// MaxPoints caps the number of points; zero is unlimited.
	MaxPoints int
}

// Add appends a point and prunes relative to its timestamp.
func (b *Buffer) Add(p DataPoint) {
	b.Series.Add(p)
	if b.Retention > 0 {
		b.Series.Prune(p.Timestamp.Add(-b.Retention))
	}
	if b.MaxPoints > 0 && len(b.Series.Points) > b.MaxPoints {
		b.Series.Points = b.Series.Points[len(b.Series.Points)-b.MaxPoints:]
	}
}
