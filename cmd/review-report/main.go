package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
	"github.com/theimaginaryfoundation/review-sentiment/analysis/fileutils"
	"github.com/theimaginaryfoundation/review-sentiment/analysis/logging"
	"github.com/theimaginaryfoundation/review-sentiment/analysis/sqlitestore"
)

const (
	coverageFile   = "coverage.json"
	unattendedFile = "unattended.jsonl"
	entityIndex    = "entity_index.jsonl"
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

	log := logging.WithRun(logging.New(os.Stderr, cfg.LogDebug, cfg.LogHuman), "review-report", uuid.NewString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, store, err := loadInputs(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if cfg.Entity != "" {
		if err := printEntityReviews(os.Stdout, store, src, cfg.Entity, cfg.Sentiment); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	}

	sum, err := writeReport(ctx, cfg, store, src, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "entities=%d shards=%d covered=%d total=%d ratio=%.4f out=%s sqlite=%s\n",
		sum.Entities, sum.Shards, sum.Coverage.Covered, sum.Coverage.Total, sum.Coverage.Ratio, cfg.OutDir, orNone(cfg.SQLitePath))
}

// loadInputs reads the dataset and the report. When checkpoint.json sits next to the report its
// entity order is used; otherwise entities are ordered by name.
func loadInputs(ctx context.Context, cfg Config) (*analysis.ReviewSource, *analysis.Store, error) {
	if !fileutils.FileExists(cfg.ReportPath) {
		return nil, nil, fmt.Errorf("report not found: %s", cfg.ReportPath)
	}
	src, err := analysis.LoadReviews(ctx, cfg.InPath, analysis.LoadOptions{
		Column:     cfg.Column,
		MaxReviews: cfg.MaxReviews,
	})
	if err != nil {
		return nil, nil, err
	}

	// checkpoint.json is optional; without it entities are ordered by name.
	m := analysis.NewCheckpointManager(filepath.Dir(cfg.ReportPath))
	m.ReportPath = cfg.ReportPath
	store, err := m.Load()
	if err != nil {
		return nil, nil, err
	}
	return src, store, nil
}

func printEntityReviews(w io.Writer, store *analysis.Store, src *analysis.ReviewSource, entity, sentiment string) error {
	s, err := analysis.ParseSentiment(sentiment)
	if err != nil {
		return err
	}
	reviews, err := analysis.EntityReviews(store, src, entity, s)
	if err != nil {
		return err
	}
	for _, r := range reviews {
		if _, err := fmt.Fprintf(w, "review-%d: %s\n", r.ID, fileutils.SingleLine(r.Text)); err != nil {
			return err
		}
	}
	return nil
}

type reportSummary struct {
	Entities int
	Shards   int
	Coverage analysis.Coverage
}

func writeReport(ctx context.Context, cfg Config, store *analysis.Store, src *analysis.ReviewSource, log zerolog.Logger) (reportSummary, error) {
	var sum reportSummary
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return sum, fmt.Errorf("mkdir -out: %w", err)
	}

	cov := analysis.ComputeCoverage(src.IDs(), store)
	sum.Coverage = cov
	covPath := filepath.Join(cfg.OutDir, coverageFile)
	if !cfg.Overwrite && fileutils.FileExists(covPath) {
		return sum, fmt.Errorf("output exists: %s (pass -overwrite)", covPath)
	}
	if err := fileutils.WriteJSONFileAtomic(covPath, cov, true); err != nil {
		return sum, fmt.Errorf("write %s: %w", coverageFile, err)
	}
	if err := analysis.WriteJSONL(filepath.Join(cfg.OutDir, unattendedFile), analysis.UnattendedReviews(cov, src), cfg.Overwrite); err != nil {
		return sum, err
	}
	log.Info().Int("total", cov.Total).Int("covered", cov.Covered).Float64("ratio", cov.Ratio).Msg("coverage computed")

	records, err := analysis.WriteReportShards(store, src, analysis.ReportPackOptions{
		OutDir:        cfg.OutDir,
		MaxBytes:      cfg.MaxBytes,
		Overwrite:     cfg.Overwrite,
		SampleReviews: cfg.SampleReviews,
		Top:           cfg.Top,
	})
	if err != nil {
		return sum, err
	}
	if err := analysis.WriteJSONL(filepath.Join(cfg.OutDir, entityIndex), records, cfg.Overwrite); err != nil {
		return sum, err
	}
	sum.Entities = len(records)
	shards := map[string]struct{}{}
	for _, r := range records {
		shards[r.ShardFile] = struct{}{}
	}
	sum.Shards = len(shards)

	if cfg.SQLitePath != "" {
		if err := exportSQLite(ctx, cfg.SQLitePath, store, src, log); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func exportSQLite(ctx context.Context, path string, store *analysis.Store, src *analysis.ReviewSource, log zerolog.Logger) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir -sqlite: %w", err)
		}
	}
	db, err := sqlitestore.InitDB(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()

	if err := sqlitestore.Export(ctx, db, store, src); err != nil {
		return err
	}
	top, err := sqlitestore.TopEntities(ctx, db, 5)
	if err != nil {
		return fmt.Errorf("query top entities: %w", err)
	}
	for _, e := range top {
		log.Debug().Str("entity", e.Name).Int("positive", e.Positive).Int("negative", e.Negative).Msg("top entity")
	}
	unattended, err := sqlitestore.UnattendedReviewIDs(ctx, db)
	if err != nil {
		return fmt.Errorf("query unattended reviews: %w", err)
	}
	log.Info().Str("path", path).Int("entities", store.Len()).Int("unattended", len(unattended)).Msg("sqlite export written")
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
