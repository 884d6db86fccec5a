// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package e2e exercises the full service stack in-process: HTTP router,
// sequence registry, integrity engine, collector, and the persistent
// badger audit store.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KodiakAI/KodiakGuard/services/gateway"
	"github.com/KodiakAI/KodiakGuard/services/integrity"
	"github.com/KodiakAI/KodiakGuard/services/integrity/audit"
	"github.com/KodiakAI/KodiakGuard/services/integrity/monitor"
)

const (
	pollWait = 5 * time.Second
	pollTick = 20 * time.Millisecond
)

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestGuardLifecycle drives a drifting reasoning sequence through the HTTP
// API, verifies the checkpoint correction, then reopens the audit store to
// confirm the trail survived the restart.
func TestGuardLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auditPath := filepath.Join(t.TempDir(), "audit")

	store, err := audit.OpenBadgerStore(audit.DefaultConfig(auditPath))
	require.NoError(t, err)

	collector := monitor.NewCollector(store, monitor.DefaultConfig())
	collector.Start(context.Background())

	cfg := integrity.DefaultConfig()
	cfg.WindowCapacity = 8
	cfg.ForecastSize = 2
	cfg.Analyzer.MinSamples = 2

	svc := gateway.NewService(cfg, store, collector)
	router := gateway.NewRouter(gateway.NewHandlers(svc))

	// Create the sequence.
	w := doJSON(t, router, http.MethodPost, "/v1/sequences", gateway.CreateSequenceRequest{Label: "e2e-drift"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created gateway.CreateSequenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.SequenceID

	step := func(channels [3]float64, confidence float64) gateway.StepResponse {
		t.Helper()
		w := doJSON(t, router, http.MethodPost, "/v1/sequences/"+id+"/steps", gateway.StepRequest{
			Channels:   channels,
			Confidence: confidence,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp gateway.StepResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	// Four low-confidence stable steps, then two drifted ones. The step-6
	// checkpoint sees a weak context with drift in the forecast view and
	// corrects it.
	for i := 0; i < 4; i++ {
		step([3]float64{0.8, 0.1, 0.1}, 0.3)
	}
	step([3]float64{0.1, 0.1, 0.8}, 0.3)
	last := step([3]float64{0.1, 0.1, 0.8}, 0.3)

	require.Equal(t, 6, last.Result.Checkpoint)
	require.Len(t, last.Result.Records, 1)
	corrected := last.Result.Records[0]
	assert.Equal(t, integrity.ClassHallucinating, corrected.Classification)
	assert.True(t, corrected.Has(integrity.ActionConfidenceBoost))
	assert.Greater(t, corrected.ConfidenceAfter, corrected.ConfidenceBefore)

	// Sequence state reflects the walk.
	w = doJSON(t, router, http.MethodGet, "/v1/sequences/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state gateway.SequenceStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, uint64(6), state.StepCount)
	assert.Equal(t, uint64(6), state.Depth)
	assert.Equal(t, 1, state.Position)
	assert.Equal(t, "e2e-drift", state.Label)

	// The collector persists asynchronously; wait for both checkpoint
	// records (step 3 and step 6) to land in the store.
	var trail gateway.InterventionsResponse
	require.Eventually(t, func() bool {
		w := doJSON(t, router, http.MethodGet, "/v1/sequences/"+id+"/interventions", nil)
		if w.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(w.Body.Bytes(), &trail); err != nil {
			return false
		}
		return len(trail.Records) == 2
	}, pollWait, pollTick)

	assert.Equal(t, uint64(3), trail.Records[0].StepIndex)
	assert.Equal(t, uint64(6), trail.Records[1].StepIndex)
	assert.Equal(t, integrity.ClassHallucinating, trail.Records[1].Classification)

	// Shut down and reopen the store: the audit trail must survive.
	require.NoError(t, collector.Stop())
	require.NoError(t, store.Close())

	reopened, err := audit.OpenBadgerStore(audit.DefaultConfig(auditPath))
	require.NoError(t, err)
	defer reopened.Close()

	persisted, err := reopened.List(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, trail.Records[0].StepIndex, persisted[0].StepIndex)
	assert.Equal(t, trail.Records[1].Classification, persisted[1].Classification)
}
