// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// storage keys, log lines, or query parameters. Using these validators
// prevents injection attacks (key collisions, log forging, path traversal).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// labelPattern matches valid sequence labels.
// Allows: letters, digits, dots, hyphens, underscores, spaces between words.
// Max length: 64 characters.
var labelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\- ]{0,63}$`)

// ValidateLabel validates a user-supplied sequence label.
//
// Labels appear in audit records and log lines, so control characters
// and path separators are rejected. The empty label is valid; labels
// are optional.
//
// Valid labels:
//   - 0-64 characters
//   - Letters and digits
//   - Dots, underscores, hyphens, and interior spaces
//
// Returns an error if the label is invalid.
//
// Example:
//
//	if err := validation.ValidateLabel(req.Label); err != nil {
//	    return fmt.Errorf("invalid label: %w", err)
//	}
func ValidateLabel(label string) error {
	if label == "" {
		return nil
	}

	if !labelPattern.MatchString(label) {
		return fmt.Errorf("invalid label format: %q (must be 1-64 alphanumeric chars, dots, underscores, hyphens, or spaces)", label)
	}

	if strings.TrimSpace(label) != label {
		return fmt.Errorf("invalid label format: %q (no leading or trailing whitespace)", label)
	}

	return nil
}

// SanitizeLabel normalizes and validates a sequence label.
// Returns the trimmed label if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	safeLabel, err := validation.SanitizeLabel(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeLabel is trimmed and validated
func SanitizeLabel(label string) (string, error) {
	normalized := strings.TrimSpace(label)
	if err := ValidateLabel(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
