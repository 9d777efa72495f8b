package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
	"github.com/theimaginaryfoundation/review-sentiment/analysis/logging"
	"github.com/theimaginaryfoundation/review-sentiment/analysis/metrics"
	"github.com/theimaginaryfoundation/review-sentiment/analysis/provider"
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

	// A missing .env is fine; the key may come from the environment or -api-key.
	_ = godotenv.Load()

	apiKey := resolveAPIKey(cfg)
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "missing %s (or pass -api-key)\n", apiKeyEnv(cfg.Provider))
		os.Exit(2)
	}

	runID := uuid.NewString()
	base := logging.New(os.Stderr, cfg.LogDebug, cfg.LogHuman)
	log := logging.WithRun(base, "review-analyzer", runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{filepath.Dir(cfg.CheckpointPath), filepath.Dir(cfg.ReportPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("mkdir -out: %w", err).Error())
			os.Exit(2)
		}
	}

	src, err := analysis.LoadReviews(ctx, cfg.InPath, analysis.LoadOptions{
		Column:     cfg.Column,
		MaxReviews: cfg.MaxReviews,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	log.Info().Str("in", cfg.InPath).Int("rows", src.Total()).Int("reviews", src.Len()).Msg("reviews loaded")

	promptOpts, err := promptOptions(cfg.PromptFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	extractor, model, err := newExtractor(cfg, apiKey, &log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	m := metrics.NewRunMetrics(cfg.Provider, model)
	analyzer, err := analysis.NewAnalyzer(extractor, &analysis.CheckpointManager{
		CheckpointPath: cfg.CheckpointPath,
		ReportPath:     cfg.ReportPath,
	}, analysis.Options{
		BatchSize:  cfg.BatchSize,
		Delay:      cfg.Delay,
		MaxBatches: cfg.MaxBatches,
		Prompt:     promptOpts,
		DebugDir:   cfg.DebugDir,
		RunID:      runID,
		Logger:     &base,
		Recorder:   m,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	res, runErr := analyzer.Run(ctx, src)

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("metrics textfile not written")
		}
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr.Error())
		var cfgErr *analysis.ConfigError
		if errors.As(runErr, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout, summaryLine(res, cfg))
	if res.State == analysis.StateFailed {
		if res.BatchErr != nil {
			fmt.Fprintln(os.Stderr, res.BatchErr.Error())
		}
		os.Exit(1)
	}
}

func apiKeyEnv(providerName string) string {
	if providerName == "anthropic" {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func resolveAPIKey(cfg Config) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return os.Getenv(apiKeyEnv(cfg.Provider))
}

// newExtractor builds the provider-backed extractor and reports the model it will call.
func newExtractor(cfg Config, apiKey string, log *zerolog.Logger) (analysis.Extractor, string, error) {
	switch cfg.Provider {
	case "openai":
		client := openai.NewClient(option.WithAPIKey(apiKey))
		ex, err := provider.NewOpenAIExtractor(&client, provider.OpenAIOptions{
			Model:    cfg.Model,
			FlexTier: cfg.FlexTier,
			Retry:    retryPolicy(cfg),
		})
		if err != nil {
			return nil, "", err
		}
		return ex, modelOrDefault(cfg.Model, provider.DefaultOpenAIModel), nil
	case "anthropic":
		client := anthropic.NewClient(anthropicoption.WithAPIKey(apiKey))
		ex, err := provider.NewAnthropicExtractor(&client, provider.AnthropicOptions{
			Model:  cfg.Model,
			Retry:  retryPolicy(cfg),
			Logger: log,
		})
		if err != nil {
			return nil, "", err
		}
		return ex, modelOrDefault(cfg.Model, provider.DefaultAnthropicModel), nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func retryPolicy(cfg Config) provider.RetryPolicy {
	if cfg.NoRetry {
		return provider.NoRetry()
	}
	return provider.DefaultRetryPolicy()
}

func modelOrDefault(model, def string) string {
	if model == "" {
		return def
	}
	return model
}

func summaryLine(res analysis.RunResult, cfg Config) string {
	last := "none"
	if res.LastBatchIdx != nil {
		last = fmt.Sprintf("%d", *res.LastBatchIdx)
	}
	return fmt.Sprintf("run_id=%s state=%s batches=%d skipped=%d processed=%d new_entities=%d entities=%d last_batch_idx=%s checkpoint=%s report=%s",
		res.RunID, res.State, res.TotalBatches, res.SkippedBatches, res.Processed, res.NewEntities, res.Entities, last, cfg.CheckpointPath, cfg.ReportPath)
}
