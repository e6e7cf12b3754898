package ptrack

import (
	"errors"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(cfg *PipelineConfig)
	}{
		{"diameter", func(cfg *PipelineConfig) { cfg.Diameter = 4 }},
		{"diameter", func(cfg *PipelineConfig) { cfg.Diameter = 0 }},
		{"minmass", func(cfg *PipelineConfig) { cfg.MinMass = -1 }},
		{"separation", func(cfg *PipelineConfig) { cfg.Separation = 3 }},
		{"percentile", func(cfg *PipelineConfig) { cfg.Percentile = 100 }},
		{"search_range", func(cfg *PipelineConfig) { cfg.SearchRange = 0 }},
		{"memory", func(cfg *PipelineConfig) { cfg.Memory = -1 }},
		{"matching", func(cfg *PipelineConfig) { cfg.Matching = MatchingAlgorithm(42) }},
		{"fps", func(cfg *PipelineConfig) { cfg.FPS = 0 }},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		c.mutate(&cfg)
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Config with broken %s should fail with ErrInvalidConfig, got: %v", c.field, err)
			continue
		}
		var cfgErr *InvalidConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Error should be *InvalidConfigError: %v", err)
			continue
		}
		if cfgErr.Field != c.field {
			t.Errorf("Wrong field: %s, expected: %s", cfgErr.Field, c.field)
		}
	}
}

func TestParseMatchingAlgorithm(t *testing.T) {
	algo, err := ParseMatchingAlgorithm("greedy")
	if err != nil {
		t.Error(err)
		return
	}
	if algo != MatchingAlgorithmGreedy {
		t.Errorf("Wrong algorithm: %s, expected: %s", algo, MatchingAlgorithmGreedy)
	}
	if _, err = ParseMatchingAlgorithm("simplex"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Unknown algorithm should be rejected, got: %v", err)
	}
}
