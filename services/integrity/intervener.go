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

import "time"

// Intervener applies corrective actions at checkpoint steps and issues the
// audit records for them. It is invoked only when the scheduler derives a
// checkpoint, plus the one out-of-band path: a forced reset after a
// mid-cycle counter overflow.
//
// Thread Safety: Safe for concurrent use across sequences; all mutable
// state lives in the counter and window passed per call.
type Intervener struct {
	cfg      InterventionConfig
	analyzer *Analyzer
	clock    func() time.Time
}

// NewIntervener creates an intervener using the given analyzer for
// classification. A nil config uses defaults.
func NewIntervener(cfg *InterventionConfig, analyzer *Analyzer) *Intervener {
	if cfg == nil {
		c := DefaultInterventionConfig()
		cfg = &c
	}
	return &Intervener{cfg: *cfg, analyzer: analyzer, clock: time.Now}
}

// Intervene runs the checkpoint procedure, in order: query the counter's
// risk tier, reset the counter when risk is Critical or Imminent, classify
// the window, correct the newest unit when it is hallucinating, and emit
// the audit record.
//
// Inputs:
//   - sequenceID: Owning sequence, recorded for the audit trail.
//   - checkpoint: The derived checkpoint position (3, 6, or 9).
//   - stepIndex: Cumulative step count at the checkpoint.
//   - counter: The sequence's depth counter.
//   - window: The sequence's signal window.
//   - overflowOccurred: True when a forced overflow reset happened earlier
//     in the same step; it feeds the hallucination rule.
//
// Outputs:
//   - InterventionRecord: The audit record, always emitted, with
//     ActionNone when nothing needed correcting.
func (iv *Intervener) Intervene(
	sequenceID string,
	checkpoint int,
	stepIndex uint64,
	counter *DepthCounter,
	window *SignalWindow,
	overflowOccurred bool,
) InterventionRecord {
	record := InterventionRecord{
		SequenceID: sequenceID,
		Position:   checkpoint,
		StepIndex:  stepIndex,
		RiskBefore: counter.RiskTier(),
		At:         iv.clock(),
	}

	if record.RiskBefore == RiskCritical || record.RiskBefore == RiskImminent {
		counter.Reset()
		record.Actions = append(record.Actions, ActionResetCounter)
	}

	analysis := iv.analyzer.Classify(window.ContextSlice(), window.ForecastSlice(), overflowOccurred)
	record.Classification = analysis.Classification
	record.Divergence = analysis.Divergence

	latest := window.Latest()
	if latest != nil {
		record.ConfidenceBefore = latest.Confidence
		record.ConfidenceAfter = latest.Confidence
	}

	if analysis.Classification == ClassHallucinating && latest != nil {
		iv.correct(latest, window.ContextSlice())
		latest.Flagged = true
		record.ConfidenceAfter = latest.Confidence
		record.Actions = append(record.Actions, ActionConfidenceBoost, ActionFlagHallucination)
	}

	if len(record.Actions) == 0 {
		record.Actions = []Action{ActionNone}
	}

	record.RiskAfter = counter.RiskTier()
	return record
}

// ForcedReset handles a counter overflow detected outside a checkpoint.
// The counter is reset immediately rather than waiting for the next
// checkpoint, and the reset is recorded as its own intervention.
//
// Outputs:
//   - InterventionRecord: Record with action ForcedOverflowReset and the
//     risk transition around the reset.
func (iv *Intervener) ForcedReset(
	sequenceID string,
	position int,
	stepIndex uint64,
	counter *DepthCounter,
	window *SignalWindow,
) InterventionRecord {
	record := InterventionRecord{
		SequenceID: sequenceID,
		Position:   position,
		StepIndex:  stepIndex,
		Actions:    []Action{ActionForcedOverflowReset},
		RiskBefore: counter.RiskTier(),
		At:         iv.clock(),
	}
	if latest := window.Latest(); latest != nil {
		record.ConfidenceBefore = latest.Confidence
		record.ConfidenceAfter = latest.Confidence
	}
	counter.Reset()
	record.RiskAfter = counter.RiskTier()
	return record
}

// correct pulls the unit's channel vector back toward the context mean and
// raises its confidence by the configured increment.
//
// The multiplier scales the unit's deviation from the context mean, not
// the raw components: scaling a sum-to-1 vector uniformly and then
// renormalizing would be a no-op. Contracting the deviation preserves the
// sum-to-1 invariant (the mean sums to 1, the deviation sums to 0), and
// the clamp-plus-renormalize afterwards guards the [0,1] bounds.
func (iv *Intervener) correct(unit *ReasoningUnit, contextSlice []ReasoningUnit) {
	if len(contextSlice) > 0 {
		mean := meanVector(contextSlice)
		var corrected ChannelVector
		for i := range corrected {
			c := mean[i] + (unit.Channels[i]-mean[i])*iv.cfg.CorrectionMultiplier
			if c < 0 {
				c = 0
			}
			if c > 1 {
				c = 1
			}
			corrected[i] = c
		}
		unit.Channels = corrected.Normalized()
	}

	unit.Confidence += iv.cfg.CorrectionIncrement
	if unit.Confidence > 1 {
		unit.Confidence = 1
	}
}
