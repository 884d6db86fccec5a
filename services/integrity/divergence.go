// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package integrity

import "math"

// DistanceMetric selects the distance function used for dynamics
// divergence. The source design left the metric informally defined, so it
// is explicit configuration here rather than a baked-in choice.
type DistanceMetric string

const (
	// MetricCosine is cosine distance (1 − cosine similarity) between the
	// mean channel vectors. Scale-free, which suits vectors that are
	// renormalized on every write. This is the default.
	MetricCosine DistanceMetric = "cosine"

	// MetricEuclidean is the Euclidean distance between the mean channel
	// vectors. For sum-to-1 vectors it ranges over [0, √2].
	MetricEuclidean DistanceMetric = "euclidean"
)

// Analysis is the result of one divergence analysis over the window.
type Analysis struct {
	// Classification is the drift verdict.
	Classification Classification

	// Confidence is the mean confidence across the context slice, the
	// baseline signal strength. Zero when there is no context yet.
	Confidence float64

	// Divergence is the distance between the mean channel vectors of the
	// context and forecast slices.
	Divergence float64
}

// Analyzer computes confidence and drift classifications over window
// slices. All methods are pure: deterministic for identical slice
// contents regardless of how or when the units arrived, and free of side
// effects.
//
// Thread Safety: Safe for concurrent use (stateless after construction).
type Analyzer struct {
	cfg AnalyzerConfig
}

// NewAnalyzer creates an analyzer. A nil config uses defaults.
func NewAnalyzer(cfg *AnalyzerConfig) *Analyzer {
	if cfg == nil {
		c := DefaultAnalyzerConfig()
		cfg = &c
	}
	return &Analyzer{cfg: *cfg}
}

// MeanConfidence returns the mean confidence across the slice, 0 for an
// empty slice.
func (a *Analyzer) MeanConfidence(units []ReasoningUnit) float64 {
	if len(units) == 0 {
		return 0
	}
	var sum float64
	for i := range units {
		sum += units[i].Confidence
	}
	return sum / float64(len(units))
}

// Divergence measures semantic drift as the distance between the mean
// channel vector of the context slice and the mean channel vector of the
// forecast slice, using the configured metric.
func (a *Analyzer) Divergence(contextSlice, forecastSlice []ReasoningUnit) float64 {
	if len(contextSlice) == 0 || len(forecastSlice) == 0 {
		return 0
	}
	return a.distance(meanVector(contextSlice), meanVector(forecastSlice))
}

// Classify runs the full analysis over the two slices.
//
// Rules:
//   - Fewer than MinSamples units in either slice yields ClassNormal by
//     convention: insufficient history is not an anomaly.
//   - ClassWeak when mean context confidence < ConfidenceThreshold.
//   - ClassHallucinating when weak AND (divergence > DivergenceThreshold
//     OR an overflow reset occurred in the same step).
//
// Inputs:
//   - contextSlice: Established history view.
//   - forecastSlice: Candidate/new state view.
//   - overflowOccurred: True when the depth counter overflowed (and was
//     force-reset) during the step under analysis.
//
// Outputs:
//   - Analysis: Classification plus the measured confidence and divergence.
func (a *Analyzer) Classify(contextSlice, forecastSlice []ReasoningUnit, overflowOccurred bool) Analysis {
	if len(contextSlice) < a.cfg.MinSamples || len(forecastSlice) < a.cfg.MinSamples {
		return Analysis{Classification: ClassNormal}
	}

	confidence := a.MeanConfidence(contextSlice)
	divergence := a.Divergence(contextSlice, forecastSlice)

	result := Analysis{
		Classification: ClassNormal,
		Confidence:     confidence,
		Divergence:     divergence,
	}
	if confidence >= a.cfg.ConfidenceThreshold {
		return result
	}

	result.Classification = ClassWeak
	if divergence > a.cfg.DivergenceThreshold || overflowOccurred {
		result.Classification = ClassHallucinating
	}
	return result
}

// distance applies the configured metric to two channel vectors.
func (a *Analyzer) distance(x, y ChannelVector) float64 {
	switch a.cfg.Metric {
	case MetricEuclidean:
		dx := x[0] - y[0]
		dy := x[1] - y[1]
		dz := x[2] - y[2]
		return math.Sqrt(dx*dx + dy*dy + dz*dz)
	default:
		return cosineDistance(x, y)
	}
}

// cosineDistance returns 1 − cos(x, y), clamped into [0, 1]. Admitted
// vectors are nonnegative with sum 1, so norms are nonzero and the
// similarity is nonnegative; the zero-norm branch is a guard for direct
// library callers.
func cosineDistance(x, y ChannelVector) float64 {
	nx, ny := x.norm(), y.norm()
	if nx == 0 || ny == 0 {
		if nx == ny {
			return 0
		}
		return 1
	}
	dot := x[0]*y[0] + x[1]*y[1] + x[2]*y[2]
	d := 1 - dot/(nx*ny)
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// meanVector returns the component-wise mean of the units' channel
// vectors. Caller guarantees a non-empty slice.
func meanVector(units []ReasoningUnit) ChannelVector {
	var m ChannelVector
	for i := range units {
		m[0] += units[i].Channels[0]
		m[1] += units[i].Channels[1]
		m[2] += units[i].Channels[2]
	}
	n := float64(len(units))
	m[0] /= n
	m[1] /= n
	m[2] /= n
	return m
}
