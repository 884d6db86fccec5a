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

import (
	"errors"
	"fmt"
)

// ErrOverflowExceeded is returned by DepthCounter.Increment when the next
// increment would exceed the configured maximum. The counter value is left
// unchanged; the condition is always recoverable via a reset and is never
// fatal to the sequence.
var ErrOverflowExceeded = errors.New("calculation depth overflow exceeded")

// ErrConfidenceOutOfRange is returned when an upstream confidence value
// falls outside [0,1]. The offending step is dropped at the boundary.
var ErrConfidenceOutOfRange = errors.New("confidence out of range [0,1]")

// InvalidChannelVectorError reports a channel vector rejected at the input
// boundary. The offending step is never admitted into the window.
type InvalidChannelVectorError struct {
	// Vector is the rejected input.
	Vector ChannelVector

	// Reason describes which invariant failed.
	Reason string
}

// Error implements the error interface.
func (e *InvalidChannelVectorError) Error() string {
	return fmt.Sprintf("invalid channel vector %v: %s", e.Vector, e.Reason)
}

// validateChannelVector checks the [0,1] component bounds and the sum-to-1
// invariant within tolerance. It returns the normalized vector on success.
func validateChannelVector(v ChannelVector, tolerance float64) (ChannelVector, error) {
	for i, c := range v {
		if c < 0 || c > 1 {
			return ChannelVector{}, &InvalidChannelVectorError{
				Vector: v,
				Reason: fmt.Sprintf("component %d = %g outside [0,1]", i, c),
			}
		}
	}
	sum := v.Sum()
	if sum == 0 {
		return ChannelVector{}, &InvalidChannelVectorError{
			Vector: v,
			Reason: "all components are zero",
		}
	}
	if diff := sum - 1; diff > tolerance || diff < -tolerance {
		return ChannelVector{}, &InvalidChannelVectorError{
			Vector: v,
			Reason: fmt.Sprintf("components sum to %g, want 1 within %g", sum, tolerance),
		}
	}
	return v.Normalized(), nil
}
