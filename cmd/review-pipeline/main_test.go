package main

import (
	"flag"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("review-pipeline", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "data/reviews.csv",
		"-base-dir", "results/run1",
		"-provider", "anthropic",
		"-batch-size", "25",
		"-delay", "1s",
		"-max-batches", "4",
		"-max-shard-bytes", "2048",
		"-from-stage", "Report",
		"-sqlite",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.FromStage != "report" {
		t.Fatalf("FromStage=%q", cfg.FromStage)
	}
	if cfg.BatchSize != 25 || cfg.Delay != time.Second || cfg.MaxBatches != 4 {
		t.Fatalf("batch/delay/max-batches=%d/%s/%d", cfg.BatchSize, cfg.Delay, cfg.MaxBatches)
	}
	if !cfg.SQLite || cfg.MaxShardBytes != 2048 {
		t.Fatalf("SQLite=%v MaxShardBytes=%d", cfg.SQLite, cfg.MaxShardBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigValidate_Stages(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.OnlyStage = "analyze"
	cfg.FromStage = "report"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for both -only-stage and -from-stage")
	}

	cfg = defaultConfig()
	cfg.OnlyStage = "summarize"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
}

func TestStagesFrom(t *testing.T) {
	t.Parallel()

	if got := stagesFrom(allStages, "report"); !reflect.DeepEqual(got, []string{"report"}) {
		t.Fatalf("from report=%v", got)
	}
	if got := stagesFrom(allStages, " ANALYZE "); !reflect.DeepEqual(got, allStages) {
		t.Fatalf("from analyze=%v", got)
	}
	if got := stagesFrom(allStages, "nope"); !reflect.DeepEqual(got, allStages) {
		t.Fatalf("unknown=%v", got)
	}
}

func TestStageArgs(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.BaseDir = "results"
	cfg.Model = "gpt-4o"
	cfg.Debug = true
	cfg.SQLite = true
	l := newLayout(cfg.BaseDir)

	analyze := strings.Join(analyzeArgs(cfg, l), " ")
	for _, want := range []string{
		"run ./cmd/review-analyzer",
		"-checkpoint " + filepath.Join("results", "checkpoint.json"),
		"-batch-size 50",
		"-delay 2s",
		"-model gpt-4o",
		"-debug-dir " + filepath.Join("results", "debug"),
	} {
		if !strings.Contains(analyze, want) {
			t.Fatalf("analyze args missing %q: %s", want, analyze)
		}
	}

	report := strings.Join(reportArgs(cfg, l), " ")
	for _, want := range []string{
		"run ./cmd/review-report",
		"-report " + filepath.Join("results", "report.json"),
		"-out " + filepath.Join("results", "report"),
		"-sqlite " + filepath.Join("results", "report.db"),
		"-overwrite",
	} {
		if !strings.Contains(report, want) {
			t.Fatalf("report args missing %q: %s", want, report)
		}
	}
}
