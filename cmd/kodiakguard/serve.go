// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/KodiakAI/KodiakGuard/pkg/logging"
	"github.com/KodiakAI/KodiakGuard/services/gateway"
	"github.com/KodiakAI/KodiakGuard/services/integrity"
	"github.com/KodiakAI/KodiakGuard/services/integrity/audit"
	"github.com/KodiakAI/KodiakGuard/services/integrity/monitor"
	"github.com/KodiakAI/KodiakGuard/services/telemetry"
)

// shutdownTimeout bounds graceful HTTP shutdown and telemetry flush.
const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := logging.New(logging.Config{Level: level, Service: "kodiakguard"})
	defer logger.Close()

	cfg := integrity.DefaultConfig()
	if serveConfig != "" {
		loaded, err := integrity.LoadConfig(serveConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logger.Info("Configuration loaded", "path", serveConfig)
	}

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	store, err := openAuditStore(logger)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer store.Close()

	var exporter logging.LogExporter
	if serveLogExport != "" {
		f, err := os.OpenFile(serveLogExport, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return fmt.Errorf("open log export file: %w", err)
		}
		defer f.Close()
		exporter = logging.NewWriterExporter(f)
		logger.Info("Intervention log export enabled", "path", serveLogExport)
	}

	collector := monitor.NewCollector(store, monitor.Config{Logger: logger, Exporter: exporter})
	collector.Start(ctx)

	svc := gateway.NewService(cfg, store, collector)
	router := gateway.NewRouter(gateway.NewHandlers(svc))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", servePort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "port", servePort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := collector.Stop(); err != nil {
		logger.Error("Collector shutdown failed", "error", err)
	}
	if err := telemetryShutdown(shutdownCtx); err != nil {
		logger.Error("Telemetry shutdown failed", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

// openAuditStore picks the store backend from the serve flags.
func openAuditStore(logger *logging.Logger) (audit.Store, error) {
	if serveInMemory {
		logger.Warn("Using in-memory audit store; records are lost on exit")
		return audit.OpenBadgerStore(audit.InMemoryConfig())
	}
	cfg := audit.DefaultConfig(serveAuditPath)
	cfg.Logger = logger.Slog()
	return audit.OpenBadgerStore(cfg)
}
