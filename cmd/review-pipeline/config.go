package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

var allStages = []string{"analyze", "report"}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.BaseDir == "" {
		return errors.New("missing -base-dir")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch-size must be > 0")
	}
	if c.Delay < 0 {
		return errors.New("delay must be >= 0")
	}
	if c.MaxReviews < 0 || c.MaxBatches < 0 {
		return errors.New("max-reviews/max-batches must be >= 0")
	}
	if c.MaxShardBytes <= 0 {
		return errors.New("max-shard-bytes must be > 0")
	}
	if c.OnlyStage != "" && c.FromStage != "" {
		return errors.New("use only one of -only-stage or -from-stage")
	}
	for _, s := range []string{c.OnlyStage, c.FromStage} {
		if s != "" && !knownStage(s) {
			return fmt.Errorf("unknown stage %q (want analyze|report)", s)
		}
	}
	return nil
}

func knownStage(s string) bool {
	for _, st := range allStages {
		if st == s {
			return true
		}
	}
	return false
}

func defaultConfig() Config {
	return Config{
		InPath:        filepath.FromSlash("data/reviews.csv"),
		BaseDir:       "results",
		Provider:      "openai",
		Column:        "Review",
		BatchSize:     50,
		Delay:         2 * time.Second,
		MaxShardBytes: 100 * 1024,
	}
}
