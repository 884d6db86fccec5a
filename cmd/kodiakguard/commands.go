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
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the CLI version, overridable at build time via
// -ldflags "-X main.Version=...".
var Version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "kodiakguard",
		Short: "A reasoning integrity service for LLM pipelines",
		Long: `KodiakGuard tracks reasoning sequences through a fixed position
cycle, bounds calculation depth, detects confidence and semantic drift,
and applies checkpoint corrections with a full audit trail.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the integrity API server",
		Long: `Starts the HTTP API on the configured port. Sequences are created
and stepped through the /v1/sequences endpoints; intervention records
are persisted to the audit store.`,
		RunE: runServe,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kodiakguard %s\n", Version)
		},
	}

	servePort      int
	serveConfig    string
	serveAuditPath string
	serveLogExport string
	serveInMemory  bool
	serveDebug     bool
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to a YAML engine config (defaults apply when empty)")
	serveCmd.Flags().StringVar(&serveAuditPath, "audit-path", "data/audit", "Directory for the persistent audit store")
	serveCmd.Flags().StringVar(&serveLogExport, "log-export", "", "Append intervention log entries to this file (second audit feed)")
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "Keep the audit store in memory (testing only)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging and gin debug mode")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
