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
	"context"
	"fmt"
)

// RecordSink receives intervention records as they are emitted. Emission
// order within a sequence is the order interventions happened. Sinks must
// not block for long; the pipeline calls them synchronously.
type RecordSink interface {
	// Emit delivers one record. Errors are the sink's problem to surface;
	// the pipeline does not fail a step over a sink error.
	Emit(ctx context.Context, record InterventionRecord) error
}

// Sequence is the per-reasoning-sequence pipeline: it owns a scheduler,
// depth counter, signal window, analyzer, and intervener, and drives them
// in a fixed order on every step.
//
// # Description
//
// Each upstream reasoning step enters through Step, which validates the
// inputs, advances the bounded depth counter (forcing a reset on
// overflow), advances the position cycle, admits the unit into the
// window, and runs the intervener when the cumulative step count lands on
// a checkpoint. A rejected step mutates nothing: the sequence observes
// only admitted steps.
//
// # Thread Safety
//
// NOT safe for concurrent use. A sequence has exactly one writer; run one
// Sequence per reasoning stream and serialize calls to it. Separate
// sequences share no state and need no coordination.
type Sequence struct {
	id         string
	cfg        *Config
	scheduler  *PositionScheduler
	counter    *DepthCounter
	window     *SignalWindow
	analyzer   *Analyzer
	intervener *Intervener
	sink       RecordSink
}

// NewSequence creates a sequence pipeline from the given configuration.
//
// Inputs:
//   - id: Caller-chosen sequence identifier, recorded on every
//     intervention.
//   - cfg: Engine configuration; nil uses DefaultConfig.
//   - sink: Optional destination for intervention records; nil drops them
//     (they are still returned in each StepResult).
//
// Outputs:
//   - *Sequence: Pipeline at position start, depth 0, empty window.
//   - error: Non-nil if the configuration is invalid.
func NewSequence(id string, cfg *Config, sink RecordSink) (*Sequence, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scheduler, err := NewPositionScheduler(cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", id, err)
	}
	counter, err := NewDepthCounter(cfg.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", id, err)
	}
	window, err := NewSignalWindow(cfg.WindowCapacity, cfg.ForecastSize)
	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", id, err)
	}

	analyzer := NewAnalyzer(&cfg.Analyzer)
	return &Sequence{
		id:         id,
		cfg:        cfg,
		scheduler:  scheduler,
		counter:    counter,
		window:     window,
		analyzer:   analyzer,
		intervener: NewIntervener(&cfg.Intervention, analyzer),
		sink:       sink,
	}, nil
}

// ID returns the sequence identifier.
func (s *Sequence) ID() string {
	return s.id
}

// Step runs one reasoning step through the pipeline.
//
// # Description
//
// The step proceeds in order:
//  1. Validate confidence and the channel vector. A failure rejects the
//     step before any state changes.
//  2. Increment the depth counter. On overflow the counter is force-reset
//     out of band, the reset is recorded, and the step continues.
//  3. Advance the position cycle and admit the unit into the window.
//  4. Derive the checkpoint from the cumulative step count; when one
//     fires, run the intervener.
//
// Inputs:
//   - ctx: Context for telemetry and sink delivery; the pipeline itself
//     does no I/O.
//   - channels: Three-channel semantic descriptor, components in [0,1]
//     summing to 1 within the configured tolerance.
//   - confidence: Upstream confidence in [0,1].
//
// Outputs:
//   - *StepResult: Position, step index, checkpoint, risk tier, and any
//     intervention records for the step.
//   - error: ErrConfidenceOutOfRange or *InvalidChannelVectorError on
//     rejection; the sequence state is unchanged in that case.
func (s *Sequence) Step(ctx context.Context, channels ChannelVector, confidence float64) (*StepResult, error) {
	ctx, span := StartStepSpan(ctx, s.id)
	defer span.End()

	if confidence < 0 || confidence > 1 {
		RecordStepRejected(ctx, "confidence_out_of_range")
		return nil, fmt.Errorf("sequence %s: %w", s.id, ErrConfidenceOutOfRange)
	}
	normalized, err := validateChannelVector(channels, s.cfg.VectorTolerance)
	if err != nil {
		RecordStepRejected(ctx, "invalid_channel_vector")
		return nil, fmt.Errorf("sequence %s: %w", s.id, err)
	}

	result := &StepResult{}

	overflowOccurred := false
	if err := s.counter.Increment(); err != nil {
		// Saturated counter: reset out of band, record it, and retry the
		// increment so this step is still counted from depth zero.
		record := s.intervener.ForcedReset(s.id, s.scheduler.Position(), s.scheduler.Steps(), s.counter, s.window)
		s.deliver(ctx, record)
		result.Records = append(result.Records, record)
		overflowOccurred = true
		if err := s.counter.Increment(); err != nil {
			return nil, fmt.Errorf("sequence %s: increment after forced reset: %w", s.id, err)
		}
	}

	position, stepIndex := s.scheduler.Advance()
	result.Position = position
	result.StepIndex = stepIndex
	result.OverflowRisk = s.counter.RiskTier()

	s.window.Push(ReasoningUnit{
		Position:         position,
		Channels:         normalized,
		Confidence:       confidence,
		CalculationDepth: s.counter.Depth(),
		OverflowRisk:     result.OverflowRisk,
	})
	RecordStep(ctx, position, s.counter.Depth(), confidence, result.OverflowRisk)

	if checkpoint, ok := s.scheduler.CheckpointFor(stepIndex); ok {
		result.Checkpoint = checkpoint
		record := s.intervener.Intervene(s.id, checkpoint, stepIndex, s.counter, s.window, overflowOccurred)
		s.deliver(ctx, record)
		result.Records = append(result.Records, record)
		result.OverflowRisk = s.counter.RiskTier()
		RecordCheckpoint(ctx, checkpoint, record.Classification, record.Divergence)
	}

	SetStepSpanResult(span, result)
	return result, nil
}

// Position returns the current cycle position.
func (s *Sequence) Position() int {
	return s.scheduler.Position()
}

// StepCount returns the cumulative admitted step count.
func (s *Sequence) StepCount() uint64 {
	return s.scheduler.Steps()
}

// Depth returns the current calculation depth.
func (s *Sequence) Depth() uint64 {
	return s.counter.Depth()
}

// Risk returns the counter's current risk tier.
func (s *Sequence) Risk() RiskTier {
	return s.counter.RiskTier()
}

// WindowLen returns the number of units currently retained.
func (s *Sequence) WindowLen() int {
	return s.window.Len()
}

// Analyze runs a divergence analysis over the current window without
// mutating anything. Callers use it to inspect drift between checkpoints.
func (s *Sequence) Analyze() Analysis {
	return s.analyzer.Classify(s.window.ContextSlice(), s.window.ForecastSlice(), false)
}

// deliver sends a record to the sink, if any, and records its metrics.
func (s *Sequence) deliver(ctx context.Context, record InterventionRecord) {
	RecordIntervention(ctx, &record)
	if s.sink == nil {
		return
	}
	_ = s.sink.Emit(ctx, record)
}
