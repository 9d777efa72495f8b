package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
	"github.com/theimaginaryfoundation/review-sentiment/analysis/fileutils"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stages := allStages
	if cfg.OnlyStage != "" {
		stages = []string{cfg.OnlyStage}
	} else if cfg.FromStage != "" {
		stages = stagesFrom(stages, cfg.FromStage)
	}

	l := newLayout(cfg.BaseDir)

	for _, stage := range stages {
		switch stage {
		case "analyze":
			// Back up the cursor before the analyzer rewrites it.
			backedUp, err := fileutils.BackupFileIfExists(l.checkpoint, l.checkpoint+".bak", true)
			if err != nil {
				fmt.Fprintln(os.Stderr, "failed backing up checkpoint:", err.Error())
				os.Exit(1)
			}
			if backedUp {
				fmt.Fprintln(os.Stdout, "backed up checkpoint:", l.checkpoint+".bak")
			}
			if err := runGo(ctx, analyzeArgs(cfg, l)...); err != nil {
				os.Exit(1)
			}
		case "report":
			if !fileutils.FileExists(l.report) {
				fmt.Fprintln(os.Stderr, "report stage needs report.json at", l.report)
				os.Exit(1)
			}
			if err := runGo(ctx, reportArgs(cfg, l)...); err != nil {
				os.Exit(1)
			}
		default:
			fmt.Fprintln(os.Stderr, "unknown stage:", stage)
			os.Exit(2)
		}
	}
}

type Config struct {
	InPath  string
	BaseDir string

	Provider string
	Model    string
	Column   string

	BatchSize  int
	Delay      time.Duration
	MaxReviews int
	MaxBatches int

	PromptFile string
	Debug      bool
	SQLite     bool

	MaxShardBytes int
	Top           int

	FromStage string
	OnlyStage string
}

// layout is where each stage reads and writes under -base-dir.
type layout struct {
	checkpoint string
	report     string
	debugDir   string
	metrics    string
	reportDir  string
	sqlite     string
}

func newLayout(base string) layout {
	base = filepath.Clean(base)
	return layout{
		checkpoint: filepath.Join(base, analysis.DefaultCheckpointFile),
		report:     filepath.Join(base, analysis.DefaultReportFile),
		debugDir:   filepath.Join(base, "debug"),
		metrics:    filepath.Join(base, "metrics.prom"),
		reportDir:  filepath.Join(base, "report"),
		sqlite:     filepath.Join(base, "report.db"),
	}
}

func analyzeArgs(cfg Config, l layout) []string {
	args := []string{
		"run", "./cmd/review-analyzer",
		"-in", cfg.InPath,
		"-out", cfg.BaseDir,
		"-checkpoint", l.checkpoint,
		"-report", l.report,
		"-provider", cfg.Provider,
		"-column", cfg.Column,
		"-batch-size", fmt.Sprintf("%d", cfg.BatchSize),
		"-delay", cfg.Delay.String(),
		"-max-reviews", fmt.Sprintf("%d", cfg.MaxReviews),
		"-max-batches", fmt.Sprintf("%d", cfg.MaxBatches),
		"-metrics-file", l.metrics,
	}
	if cfg.Model != "" {
		args = append(args, "-model", cfg.Model)
	}
	if cfg.PromptFile != "" {
		args = append(args, "-prompt-file", cfg.PromptFile)
	}
	if cfg.Debug {
		args = append(args, "-debug-dir", l.debugDir, "-log-debug")
	}
	return args
}

func reportArgs(cfg Config, l layout) []string {
	args := []string{
		"run", "./cmd/review-report",
		"-in", cfg.InPath,
		"-report", l.report,
		"-out", l.reportDir,
		"-column", cfg.Column,
		"-max-reviews", fmt.Sprintf("%d", cfg.MaxReviews),
		"-max-bytes", fmt.Sprintf("%d", cfg.MaxShardBytes),
		"-top", fmt.Sprintf("%d", cfg.Top),
	}
	if cfg.SQLite {
		args = append(args, "-sqlite", l.sqlite)
	}
	// The report is derived from report.json, so it is always rebuilt.
	args = append(args, "-overwrite")
	return args
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to the review dataset (.csv, .json, .jsonl, .txt)")
	fs.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "Base output directory (checkpoint, report, report pack)")

	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "LLM provider: openai|anthropic")
	fs.StringVar(&cfg.Model, "model", "", "Model override (default depends on -provider)")
	fs.StringVar(&cfg.Column, "column", cfg.Column, "CSV column / JSON field holding the review text")

	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Reviews per LLM call")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Pause between consecutive batches")
	fs.IntVar(&cfg.MaxReviews, "max-reviews", 0, "Load only the first N rows (0 = all)")
	fs.IntVar(&cfg.MaxBatches, "max-batches", 0, "Stop the analyze stage after N batches (0 = all)")

	fs.StringVar(&cfg.PromptFile, "prompt-file", "", "Optional path to a custom system prompt header")
	fs.BoolVar(&cfg.Debug, "debug", false, "Write per-batch dumps to <base-dir>/debug and log at debug level")
	fs.BoolVar(&cfg.SQLite, "sqlite", false, "Also export the report to <base-dir>/report.db")

	fs.IntVar(&cfg.MaxShardBytes, "max-shard-bytes", cfg.MaxShardBytes, "Max UTF-8 bytes per markdown shard file")
	fs.IntVar(&cfg.Top, "top", 0, "Only pack the N most mentioned entities (0 = all)")

	fs.StringVar(&cfg.FromStage, "from-stage", "", "Start at stage: analyze|report")
	fs.StringVar(&cfg.OnlyStage, "only-stage", "", "Run only one stage: analyze|report")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.FromStage = strings.ToLower(strings.TrimSpace(cfg.FromStage))
	cfg.OnlyStage = strings.ToLower(strings.TrimSpace(cfg.OnlyStage))
	if cfg.InPath != "" {
		cfg.InPath = filepath.Clean(cfg.InPath)
	}
	if cfg.BaseDir != "" {
		cfg.BaseDir = filepath.Clean(cfg.BaseDir)
	}
	if cfg.PromptFile != "" {
		cfg.PromptFile = filepath.Clean(cfg.PromptFile)
	}
	return cfg, nil
}

func runGo(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "command failed:", "go "+strings.Join(args, " "))
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		return err
	}
	fmt.Fprintln(os.Stdout, "ok:", "go "+strings.Join(args, " "), "(", time.Since(start).Round(time.Millisecond).String()+")")
	return nil
}

func stagesFrom(stages []string, from string) []string {
	from = strings.ToLower(strings.TrimSpace(from))
	for i, s := range stages {
		if s == from {
			return stages[i:]
		}
	}
	return stages
}
