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

import "errors"

// DepthCounter is a bounded, overflow-safe calculation depth counter.
//
// The counter is monotonically non-decreasing except at an explicit Reset.
// All arithmetic is checked: an increment that would exceed the maximum
// returns ErrOverflowExceeded and leaves the value untouched. The counter
// never wraps.
//
// Thread Safety: NOT safe for concurrent use. Each sequence owns its own
// counter; there is no global depth state.
type DepthCounter struct {
	depth uint64
	max   uint64
}

// NewDepthCounter creates a counter bounded by max.
//
// Outputs:
//   - *DepthCounter: Counter at depth 0.
//   - error: Non-nil if max is 0.
func NewDepthCounter(max uint64) (*DepthCounter, error) {
	if max == 0 {
		return nil, errors.New("max depth must be positive")
	}
	return &DepthCounter{max: max}, nil
}

// Increment attempts depth+1.
//
// Outputs:
//   - error: ErrOverflowExceeded when the counter is already at its
//     maximum. The value is left unchanged; the caller must reset before
//     further increments succeed.
func (c *DepthCounter) Increment() error {
	if c.depth >= c.max {
		return ErrOverflowExceeded
	}
	c.depth++
	return nil
}

// Depth returns the current depth.
func (c *DepthCounter) Depth() uint64 {
	return c.depth
}

// Max returns the maximum representable depth.
func (c *DepthCounter) Max() uint64 {
	return c.max
}

// RiskTier classifies the counter's proximity to overflow:
//
//	Safe     ratio < 0.50
//	Warning  0.50 ≤ ratio < 0.90
//	Critical 0.90 ≤ ratio < 0.99
//	Imminent ratio ≥ 0.99
//
// where ratio = depth / max. Pure; no side effects.
func (c *DepthCounter) RiskTier() RiskTier {
	ratio := float64(c.depth) / float64(c.max)
	switch {
	case ratio >= 0.99:
		return RiskImminent
	case ratio >= 0.90:
		return RiskCritical
	case ratio >= 0.50:
		return RiskWarning
	default:
		return RiskSafe
	}
}

// Reset zeroes the counter and returns the depth it held before. Only the
// intervener (checkpoint path) and the forced-overflow path call this.
func (c *DepthCounter) Reset() uint64 {
	prior := c.depth
	c.depth = 0
	return prior
}
