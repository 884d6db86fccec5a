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
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// defaultStartPosition is where every fresh scheduler begins its walk.
const defaultStartPosition = 1

// defaultCycleTable returns the fixed six-position cycle
// 1 → 2 → 4 → 8 → 7 → 5 → 1. A fresh map per call so callers can never
// alias a shared table.
func defaultCycleTable() map[int]int {
	return map[int]int{1: 2, 2: 4, 4: 8, 8: 7, 7: 5, 5: 1}
}

// defaultCheckpoints returns the digital roots that trigger an
// intervention pass. None of them are positions the cycle visits.
func defaultCheckpoints() []int {
	return []int{3, 6, 9}
}

// SchedulerConfig configures the position cycle.
type SchedulerConfig struct {
	// CycleTable maps each position to its successor. Must form a single
	// closed cycle containing StartPosition.
	// Default: 1→2→4→8→7→5→1
	CycleTable map[int]int `yaml:"cycle_table"`

	// StartPosition is the position before the first advance.
	// Default: 1
	StartPosition int `yaml:"start_position"`

	// Checkpoints is the set of digital roots that fire a checkpoint.
	// Each entry must be in [0,9].
	// Default: [3, 6, 9]
	Checkpoints []int `yaml:"checkpoints"`
}

// AnalyzerConfig configures divergence analysis and classification.
type AnalyzerConfig struct {
	// MinSamples is the minimum unit count required in both the context
	// and forecast slices before classification runs; below it everything
	// is Normal.
	// Default: 5 (the default forecast size)
	MinSamples int `yaml:"min_samples" validate:"gte=1"`

	// ConfidenceThreshold is the mean context confidence below which a
	// sequence is considered Weak.
	// Default: 0.5
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"gt=0,lte=1"`

	// DivergenceThreshold is the divergence above which a Weak sequence
	// escalates to Hallucinating.
	// Default: 0.3
	DivergenceThreshold float64 `yaml:"divergence_threshold" validate:"gt=0"`

	// Metric selects the distance function for divergence.
	// Default: cosine
	Metric DistanceMetric `yaml:"metric" validate:"oneof=cosine euclidean"`
}

// DefaultAnalyzerConfig returns analyzer defaults.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinSamples:          5,
		ConfidenceThreshold: 0.5,
		DivergenceThreshold: 0.3,
		Metric:              MetricCosine,
	}
}

// InterventionConfig configures the corrective action applied to a
// hallucinating unit.
type InterventionConfig struct {
	// CorrectionMultiplier scales the unit's deviation from the context
	// mean; values below 1 contract the unit toward established history.
	// Default: 0.5
	CorrectionMultiplier float64 `yaml:"correction_multiplier" validate:"gt=0,lte=1"`

	// CorrectionIncrement is added to the corrected unit's confidence,
	// capped at 1.
	// Default: 0.2
	CorrectionIncrement float64 `yaml:"correction_increment" validate:"gte=0,lte=1"`
}

// DefaultInterventionConfig returns intervention defaults.
func DefaultInterventionConfig() InterventionConfig {
	return InterventionConfig{
		CorrectionMultiplier: 0.5,
		CorrectionIncrement:  0.2,
	}
}

// Config holds the full per-sequence engine configuration.
type Config struct {
	// WindowCapacity is the maximum number of reasoning units retained.
	// Default: 20
	WindowCapacity int `yaml:"window_capacity" validate:"gte=2"`

	// ForecastSize is how many of the newest units form the forecast
	// view. Must be less than WindowCapacity.
	// Default: 5
	ForecastSize int `yaml:"forecast_size" validate:"gte=1"`

	// MaxDepth bounds the calculation depth counter.
	// Default: 1000
	MaxDepth uint64 `yaml:"max_depth" validate:"gte=1"`

	// VectorTolerance is the allowed deviation of a channel vector's
	// component sum from 1.0 before rejection.
	// Default: 1e-6
	VectorTolerance float64 `yaml:"vector_tolerance" validate:"gt=0"`

	// Scheduler configures the position cycle and checkpoint set.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Analyzer configures divergence analysis.
	Analyzer AnalyzerConfig `yaml:"analyzer"`

	// Intervention configures checkpoint corrections.
	Intervention InterventionConfig `yaml:"intervention"`
}

// DefaultConfig returns a Config with production defaults.
//
// Outputs:
//   - *Config: Configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		WindowCapacity:  20,
		ForecastSize:    5,
		MaxDepth:        1000,
		VectorTolerance: 1e-6,
		Scheduler: SchedulerConfig{
			CycleTable:    defaultCycleTable(),
			StartPosition: defaultStartPosition,
			Checkpoints:   defaultCheckpoints(),
		},
		Analyzer:     DefaultAnalyzerConfig(),
		Intervention: DefaultInterventionConfig(),
	}
}

// Validate checks the configuration, including the cross-field constraints
// the struct tags cannot express.
//
// Outputs:
//   - error: Non-nil with the first violated constraint.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("integrity config invalid: %w", err)
	}
	if c.ForecastSize >= c.WindowCapacity {
		return fmt.Errorf("forecast_size %d must be less than window_capacity %d",
			c.ForecastSize, c.WindowCapacity)
	}
	// The forecast view never holds more than ForecastSize units, so a
	// larger MinSamples would keep classification at Normal forever.
	if c.Analyzer.MinSamples > c.ForecastSize {
		return fmt.Errorf("analyzer min_samples %d must not exceed forecast_size %d",
			c.Analyzer.MinSamples, c.ForecastSize)
	}
	table := c.Scheduler.CycleTable
	if len(table) == 0 {
		table = defaultCycleTable()
	}
	start := c.Scheduler.StartPosition
	if start == 0 {
		start = defaultStartPosition
	}
	if err := validateCycleTable(table, start); err != nil {
		return fmt.Errorf("integrity config invalid: %w", err)
	}
	for _, cp := range c.Scheduler.Checkpoints {
		if cp < 0 || cp > 9 {
			return fmt.Errorf("integrity config invalid: checkpoint %d outside [0,9]", cp)
		}
	}
	return nil
}

// LoadConfig reads a YAML config file, layering it over DefaultConfig so a
// partial file only overrides what it names.
//
// Inputs:
//   - path: Path to the YAML file.
//
// Outputs:
//   - *Config: Validated configuration.
//   - error: Non-nil on read, parse, or validation failure.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read integrity config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse integrity config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
