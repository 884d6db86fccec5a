// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command kodiakguard runs the reasoning integrity service.
//
// The service tracks reasoning sequences through a fixed position cycle,
// bounds their calculation depth, detects confidence and semantic drift,
// and applies checkpoint corrections. Everything is exposed over an HTTP
// API with an append-only audit trail.
//
// Usage:
//
//	go run ./cmd/kodiakguard serve
//	go run ./cmd/kodiakguard serve --port 9090 --config guard.yaml
//	go run ./cmd/kodiakguard serve --in-memory
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/health
//
//	# Create a sequence
//	curl -X POST http://localhost:8080/v1/sequences \
//	  -H "Content-Type: application/json" \
//	  -d '{"label": "demo"}'
//
//	# Run a reasoning step
//	curl -X POST http://localhost:8080/v1/sequences/<id>/steps \
//	  -H "Content-Type: application/json" \
//	  -d '{"channels": [0.5, 0.3, 0.2], "confidence": 0.9}'
//
//	# Read the audit trail
//	curl http://localhost:8080/v1/sequences/<id>/interventions | jq
package main

import "log"

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
