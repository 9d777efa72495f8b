package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

type Config struct {
	InPath     string
	ReportPath string
	OutDir     string
	Column     string
	MaxReviews int

	Entity    string
	Sentiment string

	SQLitePath string

	MaxBytes      int
	Top           int
	SampleReviews int
	Overwrite     bool

	LogDebug bool
	LogHuman bool
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.ReportPath == "" {
		return errors.New("missing -report")
	}
	if c.Entity != "" {
		if _, err := analysis.ParseSentiment(c.Sentiment); err != nil {
			return err
		}
		return nil
	}
	if c.Sentiment != "" {
		return errors.New("-sentiment requires -entity")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.MaxBytes <= 0 {
		return errors.New("max-bytes must be > 0")
	}
	if c.Top < 0 || c.SampleReviews < 0 || c.MaxReviews < 0 {
		return errors.New("top/sample-reviews/max-reviews must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		ReportPath:    filepath.Join("results", analysis.DefaultReportFile),
		OutDir:        filepath.Join("results", "report"),
		Column:        "Review",
		MaxBytes:      100 * 1024,
		SampleReviews: 3,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to the review dataset the report was built from")
	fs.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "Path to report.json written by review-analyzer")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for coverage.json, unattended.jsonl, entity_index.jsonl and markdown shards")
	fs.StringVar(&cfg.Column, "column", cfg.Column, "CSV column / JSON field holding the review text")
	fs.IntVar(&cfg.MaxReviews, "max-reviews", 0, "Load only the first N rows (0 = all); match the analyzer run")

	fs.StringVar(&cfg.Entity, "entity", "", "Print the reviews recorded for this entity and exit")
	fs.StringVar(&cfg.Sentiment, "sentiment", "", "Sentiment for -entity: positive|negative")

	fs.StringVar(&cfg.SQLitePath, "sqlite", "", "Optional SQLite database to export entities and review links into")

	fs.IntVar(&cfg.MaxBytes, "max-bytes", cfg.MaxBytes, "Max UTF-8 bytes per markdown shard file")
	fs.IntVar(&cfg.Top, "top", 0, "Only pack the N most mentioned entities (0 = all)")
	fs.IntVar(&cfg.SampleReviews, "sample-reviews", cfg.SampleReviews, "Review quotes per sentiment under each entity (0 disables)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing report outputs")

	fs.BoolVar(&cfg.LogDebug, "log-debug", false, "Enable debug logging")
	fs.BoolVar(&cfg.LogHuman, "log-human", false, "Human-readable console logs instead of JSON")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Entity = strings.TrimSpace(cfg.Entity)
	cfg.Sentiment = strings.ToLower(strings.TrimSpace(cfg.Sentiment))
	if cfg.InPath != "" {
		cfg.InPath = filepath.Clean(cfg.InPath)
	}
	if cfg.ReportPath != "" {
		cfg.ReportPath = filepath.Clean(cfg.ReportPath)
	}
	if cfg.OutDir != "" {
		cfg.OutDir = filepath.Clean(cfg.OutDir)
	}
	if cfg.SQLitePath != "" {
		cfg.SQLitePath = filepath.Clean(cfg.SQLitePath)
	}
	return cfg, nil
}
