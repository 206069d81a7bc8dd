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

	"gonum.org/v1/gonum/floats"

	"github.com/phylo-inference/gradcompose/pkg/derivative"
)

// Stats summarises how far an analytic gradient is from its numeric estimate.
type Stats struct {
	MaxAbsoluteError float64
	MaxRelativeError float64
	// Angle between the two vectors in radians.
	Angle float64
}

// Statistic names, as used in column names and metric labels.
const (
	MaxAbsoluteError = "maxAbsError"
	MaxRelativeError = "maxRelError"
	Angle            = "angle"
)

// StatisticNames lists the statistics in column order.
var StatisticNames = []string{MaxAbsoluteError, MaxRelativeError, Angle}

// Values returns the statistics in StatisticNames order.
func (s Stats) Values() []float64 {
	return []float64{s.MaxAbsoluteError, s.MaxRelativeError, s.Angle}
}

// Compare computes the discrepancy between analytic and numeric.
//
// The relative error of a coordinate is |a-n| / max(|a|, |n|) and zero when
// both are zero. The angle is zero for two zero vectors and pi/2 when
// exactly one of them is zero.
func Compare(analytic, numeric []float64) (Stats, error) {
	if len(analytic) != len(numeric) {
		return Stats{}, fmt.Errorf("cannot compare vectors of length %d and %d: %w",
			len(analytic), len(numeric), derivative.ErrDimensionMismatch)
	}
	var s Stats
	for i, a := range analytic {
		n := numeric[i]
		abs := math.Abs(a - n)
		s.MaxAbsoluteError = math.Max(s.MaxAbsoluteError, abs)
		if scale := math.Max(math.Abs(a), math.Abs(n)); scale > 0 {
			s.MaxRelativeError = math.Max(s.MaxRelativeError, abs/scale)
		}
	}

	na, nn := floats.Norm(analytic, 2), floats.Norm(numeric, 2)
	switch {
	case na == 0 && nn == 0:
		s.Angle = 0
	case na == 0 || nn == 0:
		s.Angle = math.Pi / 2
	default:
		cos := floats.Dot(analytic, numeric) / (na * nn)
		s.Angle = math.Acos(math.Max(-1, math.Min(1, cos)))
	}
	return s, nil
}
