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
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/KodiakAI/KodiakGuard/services/telemetry"
)

// RegisterRoutes registers all integrity API routes with the router group.
//
// Endpoints:
//
//	POST   /v1/sequences - Create a sequence
//	POST   /v1/sequences/:id/steps - Run one reasoning step
//	GET    /v1/sequences/:id - Read sequence state
//	GET    /v1/sequences/:id/interventions - Read the audit trail
//	DELETE /v1/sequences/:id - Retire a sequence
//	GET    /v1/health - Health check
//	GET    /v1/ready - Readiness check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	sequences := rg.Group("/sequences")
	{
		sequences.POST("", handlers.HandleCreateSequence)
		sequences.POST("/:id/steps", handlers.HandleStep)
		sequences.GET("/:id", handlers.HandleState)
		sequences.GET("/:id/interventions", handlers.HandleInterventions)
		sequences.DELETE("/:id", handlers.HandleDeleteSequence)
	}

	rg.GET("/health", handlers.HandleHealth)
	rg.GET("/ready", handlers.HandleReady)
}

// NewRouter assembles the gin engine with tracing middleware, the /v1 API
// group, and the Prometheus /metrics endpoint when the exporter is active.
func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("kodiakguard"))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)

	if metricsHandler := telemetry.MetricsHandler(); metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return router
}
