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

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/KodiakAI/KodiakGuard/services/integrity"
)

// ServiceVersion is the gateway service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the integrity API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleCreateSequence handles POST /v1/sequences.
//
// Response:
//
//	201 Created: CreateSequenceResponse
//	400 Bad Request: Invalid body or label
//	500 Internal Server Error: Engine configuration failure
func (h *Handlers) HandleCreateSequence(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateSequence")

	// The body is optional; the label defaults to empty.
	var req CreateSequenceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Invalid request body",
				Code:  "INVALID_REQUEST",
			})
			return
		}
	}

	id, err := h.svc.CreateSequence(req.Label)
	if err != nil {
		if errors.Is(err, ErrInvalidLabel) {
			logger.Warn("Label rejected", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_LABEL",
			})
			return
		}
		logger.Error("Sequence creation failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "CREATE_FAILED",
		})
		return
	}

	logger.Info("Sequence created", "sequence_id", id)
	c.JSON(http.StatusCreated, CreateSequenceResponse{SequenceID: id, Label: req.Label})
}

// HandleStep handles POST /v1/sequences/:id/steps.
//
// Request Body:
//
//	StepRequest
//
// Response:
//
//	200 OK: StepResponse
//	400 Bad Request: Invalid body, confidence, or channel vector
//	404 Not Found: Unknown sequence
func (h *Handlers) HandleStep(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStep")

	id := c.Param("id")

	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.svc.Step(c.Request.Context(), id, integrity.ChannelVector(req.Channels), req.Confidence)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "STEP_FAILED"

		var vecErr *integrity.InvalidChannelVectorError
		switch {
		case errors.Is(err, ErrSequenceNotFound):
			statusCode = http.StatusNotFound
			errCode = "SEQUENCE_NOT_FOUND"
		case errors.Is(err, integrity.ErrConfidenceOutOfRange):
			statusCode = http.StatusBadRequest
			errCode = "CONFIDENCE_OUT_OF_RANGE"
		case errors.As(err, &vecErr):
			statusCode = http.StatusBadRequest
			errCode = "INVALID_CHANNEL_VECTOR"
		}

		logger.Warn("Step rejected", "sequence_id", id, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	c.JSON(http.StatusOK, StepResponse{SequenceID: id, Result: *result})
}

// HandleState handles GET /v1/sequences/:id.
//
// Response:
//
//	200 OK: SequenceStateResponse
//	404 Not Found: Unknown sequence
func (h *Handlers) HandleState(c *gin.Context) {
	id := c.Param("id")

	state, err := h.svc.State(id)
	if err != nil {
		h.notFoundOrInternal(c, id, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// HandleInterventions handles GET /v1/sequences/:id/interventions.
//
// Response:
//
//	200 OK: InterventionsResponse
//	404 Not Found: Unknown sequence
func (h *Handlers) HandleInterventions(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleInterventions")

	id := c.Param("id")
	records, err := h.svc.Interventions(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSequenceNotFound) {
			h.notFoundOrInternal(c, id, err)
			return
		}
		logger.Error("Audit read failed", "sequence_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "AUDIT_READ_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, InterventionsResponse{SequenceID: id, Records: records})
}

// HandleDeleteSequence handles DELETE /v1/sequences/:id.
//
// Response:
//
//	204 No Content
//	404 Not Found: Unknown sequence
func (h *Handlers) HandleDeleteSequence(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteSequence(id); err != nil {
		h.notFoundOrInternal(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: ServiceVersion})
}

// HandleReady handles GET /v1/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Version: ServiceVersion})
}

func (h *Handlers) notFoundOrInternal(c *gin.Context, id string, err error) {
	if errors.Is(err, ErrSequenceNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "SEQUENCE_NOT_FOUND",
		})
		return
	}
	slog.Error("Request failed", "sequence_id", id, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: err.Error(),
		Code:  "INTERNAL_ERROR",
	})
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
