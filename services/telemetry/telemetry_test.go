// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NilContext(t *testing.T) {
	//nolint:staticcheck // deliberately exercising the nil-context guard
	_, err := Init(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "none"

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporters(t *testing.T) {
	t.Run("trace", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TraceExporter = "bogus"
		cfg.MetricExporter = "none"
		_, err := Init(context.Background(), cfg)
		assert.ErrorIs(t, err, ErrUnknownExporter)
	})

	t.Run("metric", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TraceExporter = "none"
		cfg.MetricExporter = "bogus"
		_, err := Init(context.Background(), cfg)
		assert.ErrorIs(t, err, ErrUnknownExporter)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "kodiakguard", cfg.ServiceName)
	assert.NotEmpty(t, cfg.Environment)
	assert.NotEmpty(t, cfg.MetricExporter)
}
