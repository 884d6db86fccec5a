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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for integrity operations.
var (
	tracer = otel.Tracer("kodiak.integrity")
	meter  = otel.Meter("kodiak.integrity")
)

// Metrics for integrity operations.
var (
	// Step metrics
	stepsTotal          metric.Int64Counter
	stepsRejectedTotal  metric.Int64Counter
	depthHistogram      metric.Int64Histogram
	confidenceHistogram metric.Float64Histogram

	// Checkpoint metrics
	checkpointsTotal    metric.Int64Counter
	divergenceHistogram metric.Float64Histogram

	// Intervention metrics
	interventionsTotal metric.Int64Counter
	forcedResetsTotal  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		stepsTotal, err = meter.Int64Counter(
			"integrity_steps_total",
			metric.WithDescription("Total admitted reasoning steps by position"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		stepsRejectedTotal, err = meter.Int64Counter(
			"integrity_steps_rejected_total",
			metric.WithDescription("Total steps rejected at the input boundary by reason"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		depthHistogram, err = meter.Int64Histogram(
			"integrity_calculation_depth",
			metric.WithDescription("Calculation depth distribution at step admission"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		confidenceHistogram, err = meter.Float64Histogram(
			"integrity_confidence",
			metric.WithDescription("Admitted step confidence distribution"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkpointsTotal, err = meter.Int64Counter(
			"integrity_checkpoints_total",
			metric.WithDescription("Total checkpoint passes by checkpoint and classification"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		divergenceHistogram, err = meter.Float64Histogram(
			"integrity_divergence",
			metric.WithDescription("Divergence distribution measured at checkpoints"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		interventionsTotal, err = meter.Int64Counter(
			"integrity_interventions_total",
			metric.WithDescription("Total corrective actions by action"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		forcedResetsTotal, err = meter.Int64Counter(
			"integrity_forced_resets_total",
			metric.WithDescription("Total out-of-band counter resets forced by overflow"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// RecordStep records metrics for an admitted step.
//
// Thread Safety: Safe for concurrent use.
func RecordStep(ctx context.Context, position int, depth uint64, confidence float64, risk RiskTier) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Int("position", position),
		attribute.String("risk", string(risk)),
	)

	stepsTotal.Add(ctx, 1, attrs)
	depthHistogram.Record(ctx, int64(depth), attrs)
	confidenceHistogram.Record(ctx, confidence)
}

// RecordStepRejected records a step dropped at the input boundary.
//
// Thread Safety: Safe for concurrent use.
func RecordStepRejected(ctx context.Context, reason string) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("reason", reason))
	stepsRejectedTotal.Add(ctx, 1, attrs)
}

// RecordCheckpoint records a checkpoint pass and its analysis outcome.
//
// Thread Safety: Safe for concurrent use.
func RecordCheckpoint(ctx context.Context, checkpoint int, classification Classification, divergence float64) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Int("checkpoint", checkpoint),
		attribute.String("classification", string(classification)),
	)

	checkpointsTotal.Add(ctx, 1, attrs)
	divergenceHistogram.Record(ctx, divergence, attrs)
}

// RecordIntervention records each action of an intervention record.
//
// Thread Safety: Safe for concurrent use.
func RecordIntervention(ctx context.Context, record *InterventionRecord) {
	if err := initMetrics(); err != nil {
		return
	}
	if record == nil {
		return
	}

	for _, action := range record.Actions {
		attrs := metric.WithAttributes(
			attribute.String("action", string(action)),
			attribute.Int("position", record.Position),
		)
		interventionsTotal.Add(ctx, 1, attrs)
		if action == ActionForcedOverflowReset {
			forcedResetsTotal.Add(ctx, 1)
		}
	}
}

// StartStepSpan creates a span for one pipeline step.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span.
//
// Thread Safety: Safe for concurrent use.
func StartStepSpan(ctx context.Context, sequenceID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "integrity.step",
		trace.WithAttributes(
			attribute.String("integrity.sequence_id", sequenceID),
		),
	)
}

// SetStepSpanResult sets result attributes on a step span.
//
// Thread Safety: Safe for concurrent use.
func SetStepSpanResult(span trace.Span, result *StepResult) {
	if result == nil {
		return
	}

	span.SetAttributes(
		attribute.Int("integrity.position", result.Position),
		attribute.Int64("integrity.step_index", int64(result.StepIndex)),
		attribute.Int("integrity.checkpoint", result.Checkpoint),
		attribute.String("integrity.risk", string(result.OverflowRisk)),
		attribute.Int("integrity.interventions", len(result.Records)),
	)
}
