// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gateway

import "github.com/KodiakAI/KodiakGuard/services/integrity"

// CreateSequenceRequest is the body for POST /v1/sequences.
type CreateSequenceRequest struct {
	// Label is an optional human-readable tag echoed back in state reads.
	Label string `json:"label"`
}

// CreateSequenceResponse returns the new sequence's identity.
type CreateSequenceResponse struct {
	SequenceID string `json:"sequence_id"`
	Label      string `json:"label,omitempty"`
}

// StepRequest is the body for POST /v1/sequences/:id/steps.
type StepRequest struct {
	// Channels is the three-channel semantic descriptor; components in
	// [0,1] summing to 1.
	Channels [integrity.ChannelDimensions]float64 `json:"channels" binding:"required"`

	// Confidence is the upstream confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// StepResponse wraps the engine's step result.
type StepResponse struct {
	SequenceID string               `json:"sequence_id"`
	Result     integrity.StepResult `json:"result"`
}

// SequenceStateResponse is a read-only snapshot of a sequence.
type SequenceStateResponse struct {
	SequenceID     string                   `json:"sequence_id"`
	Label          string                   `json:"label,omitempty"`
	Position       int                      `json:"position"`
	StepCount      uint64                   `json:"step_count"`
	Depth          uint64                   `json:"depth"`
	Risk           integrity.RiskTier       `json:"risk"`
	WindowLen      int                      `json:"window_len"`
	Classification integrity.Classification `json:"classification"`
	Divergence     float64                  `json:"divergence"`
}

// InterventionsResponse lists a sequence's audit trail.
type InterventionsResponse struct {
	SequenceID string                         `json:"sequence_id"`
	Records    []integrity.InterventionRecord `json:"records"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
