package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

type Config struct {
	InPath         string
	OutDir         string
	CheckpointPath string
	ReportPath     string

	Provider string
	Model    string
	APIKey   string
	FlexTier bool
	NoRetry  bool

	Column     string
	MaxReviews int

	BatchSize  int
	Delay      time.Duration
	MaxBatches int

	PromptFile  string
	DebugDir    string
	MetricsFile string
	ConfigPath  string

	LogDebug bool
	LogHuman bool
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	switch c.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown -provider %q (want openai|anthropic)", c.Provider)
	}
	if c.Column == "" {
		return errors.New("missing -column")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch-size must be > 0")
	}
	if c.Delay < 0 {
		return errors.New("delay must be >= 0")
	}
	if c.MaxReviews < 0 {
		return errors.New("max-reviews must be >= 0")
	}
	if c.MaxBatches < 0 {
		return errors.New("max-batches must be >= 0")
	}
	if c.FlexTier && c.Provider != "openai" {
		return errors.New("-flex only applies to -provider openai")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutDir:    "results",
		Provider:  "openai",
		Column:    "Review",
		BatchSize: 50,
		Delay:     2 * time.Second,
	}
}

// fileConfig mirrors the flags for -config YAML files. Unset keys keep the flag default.
type fileConfig struct {
	In          *string `yaml:"in"`
	Out         *string `yaml:"out"`
	Checkpoint  *string `yaml:"checkpoint"`
	Report      *string `yaml:"report"`
	Provider    *string `yaml:"provider"`
	Model       *string `yaml:"model"`
	Flex        *bool   `yaml:"flex"`
	NoRetry     *bool   `yaml:"no_retry"`
	Column      *string `yaml:"column"`
	MaxReviews  *int    `yaml:"max_reviews"`
	BatchSize   *int    `yaml:"batch_size"`
	Delay       *string `yaml:"delay"`
	MaxBatches  *int    `yaml:"max_batches"`
	PromptFile  *string `yaml:"prompt_file"`
	DebugDir    *string `yaml:"debug_dir"`
	MetricsFile *string `yaml:"metrics_file"`
	LogDebug    *bool   `yaml:"log_debug"`
	LogHuman    *bool   `yaml:"log_human"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, fmt.Errorf("read -config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		// An empty file is a valid, empty config.
		if errors.Is(err, io.EOF) {
			return fc, nil
		}
		return fc, fmt.Errorf("parse -config %s: %w", path, err)
	}
	return fc, nil
}

// apply copies YAML values onto cfg for every flag the command line did not set.
func (fc fileConfig) apply(cfg *Config, set map[string]bool) error {
	setString := func(name string, dst *string, v *string) {
		if v != nil && !set[name] {
			*dst = *v
		}
	}
	setInt := func(name string, dst *int, v *int) {
		if v != nil && !set[name] {
			*dst = *v
		}
	}
	setBool := func(name string, dst *bool, v *bool) {
		if v != nil && !set[name] {
			*dst = *v
		}
	}

	setString("in", &cfg.InPath, fc.In)
	setString("out", &cfg.OutDir, fc.Out)
	setString("checkpoint", &cfg.CheckpointPath, fc.Checkpoint)
	setString("report", &cfg.ReportPath, fc.Report)
	setString("provider", &cfg.Provider, fc.Provider)
	setString("model", &cfg.Model, fc.Model)
	setBool("flex", &cfg.FlexTier, fc.Flex)
	setBool("no-retry", &cfg.NoRetry, fc.NoRetry)
	setString("column", &cfg.Column, fc.Column)
	setInt("max-reviews", &cfg.MaxReviews, fc.MaxReviews)
	setInt("batch-size", &cfg.BatchSize, fc.BatchSize)
	setInt("max-batches", &cfg.MaxBatches, fc.MaxBatches)
	setString("prompt-file", &cfg.PromptFile, fc.PromptFile)
	setString("debug-dir", &cfg.DebugDir, fc.DebugDir)
	setString("metrics-file", &cfg.MetricsFile, fc.MetricsFile)
	setBool("log-debug", &cfg.LogDebug, fc.LogDebug)
	setBool("log-human", &cfg.LogHuman, fc.LogHuman)

	if fc.Delay != nil && !set["delay"] {
		d, err := time.ParseDuration(*fc.Delay)
		if err != nil {
			return fmt.Errorf("-config delay: %w", err)
		}
		cfg.Delay = d
	}
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to the review dataset (.csv, .json, .jsonl, .txt)")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for checkpoint.json + report.json")
	fs.StringVar(&cfg.CheckpointPath, "checkpoint", "", "Optional path for checkpoint.json (default: <out>/checkpoint.json)")
	fs.StringVar(&cfg.ReportPath, "report", "", "Optional path for report.json (default: <out>/report.json)")

	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "LLM provider: openai|anthropic")
	fs.StringVar(&cfg.Model, "model", "", "Model override (default depends on -provider)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides OPENAI_API_KEY / ANTHROPIC_API_KEY env var)")
	fs.BoolVar(&cfg.FlexTier, "flex", false, "Use the OpenAI flex service tier")
	fs.BoolVar(&cfg.NoRetry, "no-retry", false, "Fail a batch on the first rate-limit or 5xx instead of waiting and retrying")

	fs.StringVar(&cfg.Column, "column", cfg.Column, "CSV column / JSON field holding the review text")
	fs.IntVar(&cfg.MaxReviews, "max-reviews", 0, "Load only the first N rows (0 = all)")

	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Reviews per LLM call (must match an existing checkpoint)")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Pause between consecutive batches")
	fs.IntVar(&cfg.MaxBatches, "max-batches", 0, "Stop after N processed batches; rerun to continue (0 = all)")

	fs.StringVar(&cfg.PromptFile, "prompt-file", "", "Optional path to a file containing a custom system prompt header (the output contract is always appended)")
	fs.StringVar(&cfg.DebugDir, "debug-dir", "", "Optional directory for per-batch query/response dumps")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Optional path for a Prometheus textfile with run metrics")
	fs.StringVar(&cfg.ConfigPath, "config", "", "Optional YAML file with flag defaults (explicit flags win)")

	fs.BoolVar(&cfg.LogDebug, "log-debug", false, "Enable debug logging")
	fs.BoolVar(&cfg.LogHuman, "log-human", false, "Human-readable console logs instead of JSON")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ConfigPath != "" {
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		fc, err := loadFileConfig(filepath.Clean(cfg.ConfigPath))
		if err != nil {
			return Config{}, err
		}
		if err := fc.apply(&cfg, set); err != nil {
			return Config{}, err
		}
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.InPath != "" {
		cfg.InPath = filepath.Clean(cfg.InPath)
	}
	if cfg.OutDir != "" {
		cfg.OutDir = filepath.Clean(cfg.OutDir)
	}
	if cfg.CheckpointPath == "" {
		cfg.CheckpointPath = filepath.Join(cfg.OutDir, analysis.DefaultCheckpointFile)
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = filepath.Join(cfg.OutDir, analysis.DefaultReportFile)
	}
	cfg.CheckpointPath = filepath.Clean(cfg.CheckpointPath)
	cfg.ReportPath = filepath.Clean(cfg.ReportPath)
	if cfg.PromptFile != "" {
		cfg.PromptFile = filepath.Clean(cfg.PromptFile)
	}
	if cfg.DebugDir != "" {
		cfg.DebugDir = filepath.Clean(cfg.DebugDir)
	}
	return cfg, nil
}
