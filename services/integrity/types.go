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
	"math"
	"time"
)

// ChannelDimensions is the number of semantic channels carried by each
// reasoning unit.
const ChannelDimensions = 3

// ChannelVector is the three-component semantic descriptor attached to each
// reasoning unit. A valid vector has components in [0,1] that sum to 1
// within the configured tolerance.
type ChannelVector [ChannelDimensions]float64

// Sum returns the sum of the vector's components.
func (v ChannelVector) Sum() float64 {
	return v[0] + v[1] + v[2]
}

// Normalized returns a copy of the vector rescaled so its components sum
// to 1. A zero vector is returned unchanged; callers reject it during
// validation.
func (v ChannelVector) Normalized() ChannelVector {
	sum := v.Sum()
	if sum == 0 {
		return v
	}
	return ChannelVector{v[0] / sum, v[1] / sum, v[2] / sum}
}

// norm returns the Euclidean length of the vector.
func (v ChannelVector) norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// RiskTier classifies a bounded counter's proximity to overflow.
type RiskTier string

const (
	// RiskSafe means depth is below half of the configured maximum.
	RiskSafe RiskTier = "safe"

	// RiskWarning means depth has reached 50% of the maximum.
	RiskWarning RiskTier = "warning"

	// RiskCritical means depth has reached 90% of the maximum.
	RiskCritical RiskTier = "critical"

	// RiskImminent means depth has reached 99% of the maximum and an
	// overflow is expected within the current cycle.
	RiskImminent RiskTier = "imminent"
)

// Classification is the outcome of a divergence analysis over the window.
type Classification string

const (
	// ClassNormal means the recent units are consistent with history, or
	// there is not yet enough history to judge (insufficient history is
	// not an anomaly).
	ClassNormal Classification = "normal"

	// ClassWeak means baseline confidence has fallen below the configured
	// threshold but semantic drift is still within bounds.
	ClassWeak Classification = "weak"

	// ClassHallucinating means confidence is weak and either the channel
	// vectors have drifted beyond the divergence threshold or an overflow
	// reset occurred in the same step.
	ClassHallucinating Classification = "hallucinating"
)

// Action identifies a corrective measure taken by the intervener.
type Action string

const (
	// ActionNone records a checkpoint where no correction was needed.
	ActionNone Action = "no_action"

	// ActionResetCounter records a depth counter reset at a checkpoint.
	ActionResetCounter Action = "reset_counter"

	// ActionConfidenceBoost records the configured confidence correction
	// applied to the newest unit.
	ActionConfidenceBoost Action = "confidence_boost"

	// ActionFlagHallucination records that the newest unit was flagged as
	// hallucinating.
	ActionFlagHallucination Action = "flag_hallucination"

	// ActionForcedOverflowReset records an out-of-band counter reset forced
	// by a mid-cycle overflow, outside any checkpoint.
	ActionForcedOverflowReset Action = "forced_overflow_reset"
)

// ReasoningUnit is a snapshot of one reasoning step. Units are created by
// the pipeline from upstream inputs and owned by it until they are evicted
// from the SignalWindow; eviction is destruction.
type ReasoningUnit struct {
	// Position is the cycle position (1–9) the unit was produced at.
	Position int `json:"position"`

	// Channels is the normalized three-channel semantic descriptor.
	Channels ChannelVector `json:"channels"`

	// Confidence is the upstream model's confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// CalculationDepth is the bounded step counter value at admission.
	CalculationDepth uint64 `json:"calculation_depth"`

	// OverflowRisk is the counter's risk tier at admission.
	OverflowRisk RiskTier `json:"overflow_risk"`

	// Flagged is set by the intervener when the unit was classified as
	// hallucinating and corrected.
	Flagged bool `json:"flagged,omitempty"`
}

// InterventionRecord is the audit entry emitted by the intervener. Records
// are append-only: once emitted they are never modified.
type InterventionRecord struct {
	// SequenceID identifies the reasoning sequence the record belongs to.
	SequenceID string `json:"sequence_id"`

	// Position is the checkpoint position (3, 6, or 9) for checkpoint
	// interventions, or the current cycle position for forced resets.
	Position int `json:"position"`

	// StepIndex is the cumulative step count when the record was emitted.
	StepIndex uint64 `json:"step_index"`

	// Actions lists the corrective measures taken, primary action first.
	Actions []Action `json:"actions"`

	// Classification is the divergence analysis outcome, empty for forced
	// overflow resets (no analysis runs outside checkpoints).
	Classification Classification `json:"classification,omitempty"`

	// Divergence is the measured distance between the history and forecast
	// mean channel vectors.
	Divergence float64 `json:"divergence"`

	// RiskBefore and RiskAfter capture the counter's risk tier around the
	// intervention.
	RiskBefore RiskTier `json:"risk_before"`
	RiskAfter  RiskTier `json:"risk_after"`

	// ConfidenceBefore and ConfidenceAfter capture the newest unit's
	// confidence around the intervention.
	ConfidenceBefore float64 `json:"confidence_before"`
	ConfidenceAfter  float64 `json:"confidence_after"`

	// At is when the record was emitted.
	At time.Time `json:"at"`
}

// Action returns the primary action of the record, ActionNone if the
// record carries no actions.
func (r *InterventionRecord) Action() Action {
	if len(r.Actions) == 0 {
		return ActionNone
	}
	return r.Actions[0]
}

// Has reports whether the record includes the given action.
func (r *InterventionRecord) Has(a Action) bool {
	for _, act := range r.Actions {
		if act == a {
			return true
		}
	}
	return false
}

// StepResult is returned to the caller after every admitted step.
type StepResult struct {
	// Position is the cycle position after the advance.
	Position int `json:"position"`

	// StepIndex is the cumulative step count after the advance.
	StepIndex uint64 `json:"step_index"`

	// Checkpoint is the derived checkpoint position (3, 6, or 9) when this
	// step fired one, 0 otherwise.
	Checkpoint int `json:"checkpoint,omitempty"`

	// OverflowRisk is the counter's risk tier after the step.
	OverflowRisk RiskTier `json:"overflow_risk"`

	// Records holds the interventions emitted during this step: a forced
	// overflow reset, a checkpoint record, or (rarely) both.
	Records []InterventionRecord `json:"records,omitempty"`
}
