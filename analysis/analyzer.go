package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Extractor sends one prompt to a language model and returns its raw text response.
type Extractor interface {
	Extract(ctx context.Context, p Prompt) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, p Prompt) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, p Prompt) (string, error) { return f(ctx, p) }

// State is the analyzer's position in its run loop.
type State string

const (
	StateIdle              State = "IDLE"
	StateLoadingCheckpoint State = "LOADING_CHECKPOINT"
	StatePlanning          State = "PLANNING"
	StatePrompting         State = "PROMPTING"
	StateCallingLLM        State = "CALLING_LLM"
	StateParsing           State = "PARSING"
	StateMerging           State = "MERGING"
	StatePersisting        State = "PERSISTING"
	StateDone              State = "DONE"
	StateFailed            State = "FAILED"

	// StatePaused ends a run that stopped at MaxBatches with work remaining; it resumes like any other run.
	StatePaused State = "PAUSED"
)

// Batch outcomes passed to Recorder.BatchDone.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Recorder receives run measurements. A nil Recorder in Options disables them.
type Recorder interface {
	BatchDone(outcome string, reviews int)
	ExtractDuration(d time.Duration, err error)
	EntityCount(n int)
}

type nopRecorder struct{}

func (nopRecorder) BatchDone(string, int) {}
func (nopRecorder) ExtractDuration(time.Duration, error) {}
func (nopRecorder) EntityCount(int) {}

// Options configures an Analyzer.
type Options struct {
	BatchSize int

	// Delay is slept after each persisted batch when more batches remain.
	Delay time.Duration

	// MaxBatches stops the run after this many processed batches (0 = no limit).
	MaxBatches int

	Prompt PromptOptions

	// DebugDir enables per-batch dumps (see BatchDump).
	DebugDir string

	// RunID tags log lines and dumps.
	RunID string

	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger

	Recorder Recorder

	// Sleep overrides the context-aware delay (tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) Validate() error {
	if o.BatchSize <= 0 {
		return &ConfigError{Field: "batch_size", Err: fmt.Errorf("must be > 0 (got %d)", o.BatchSize)}
	}
	if o.Delay < 0 {
		return &ConfigError{Field: "delay", Err: fmt.Errorf("must be >= 0 (got %s)", o.Delay)}
	}
	if o.MaxBatches < 0 {
		return &ConfigError{Field: "max_batches", Err: fmt.Errorf("must be >= 0 (got %d)", o.MaxBatches)}
	}
	return nil
}

// RunResult summarizes one Run.
type RunResult struct {
	RunID string
	State State

	TotalBatches   int
	SkippedBatches int
	Processed      int

	NewEntities  int
	Entities     int
	LastBatchIdx *int

	// BatchErr is set when State is StateFailed: the batch that was abandoned and why.
	BatchErr *BatchError

	Store *Store
}

// Analyzer drives the batch loop: plan, prompt, extract, parse, merge, persist.
// Runs are strictly sequential; one batch is in flight at a time.
type Analyzer struct {
	extractor   Extractor
	checkpoints *CheckpointManager
	opts        Options
	log         zerolog.Logger
	rec         Recorder
	sleep       func(ctx context.Context, d time.Duration) error
	state       State
}

func NewAnalyzer(extractor Extractor, checkpoints *CheckpointManager, opts Options) (*Analyzer, error) {
	if extractor == nil {
		return nil, errors.New("NewAnalyzer: extractor is nil")
	}
	if checkpoints == nil {
		return nil, errors.New("NewAnalyzer: checkpoint manager is nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("NewAnalyzer: %w", err)
	}

	a := &Analyzer{
		extractor:   extractor,
		checkpoints: checkpoints,
		opts:        opts,
		log:         zerolog.Nop(),
		rec:         nopRecorder{},
		sleep:       sleepContext,
		state:       StateIdle,
	}
	if opts.Logger != nil {
		a.log = *opts.Logger
	}
	if opts.RunID != "" {
		a.log = a.log.With().Str("run_id", opts.RunID).Logger()
	}
	if opts.Recorder != nil {
		a.rec = opts.Recorder
	}
	if opts.Sleep != nil {
		a.sleep = opts.Sleep
	}
	return a, nil
}

// State returns the current state.
func (a *Analyzer) State() State { return a.state }

func (a *Analyzer) setState(s State) {
	a.state = s
	a.log.Debug().Str("state", string(s)).Msg("state transition")
}

// Run processes every pending batch of src.
//
// Extractor and parse failures (and context cancellation) don't return an error: the run ends in
// StateFailed with BatchErr set, nothing is persisted for the failed batch, and a later Run resumes at
// it. Errors are returned for configuration problems (a *ConfigError, raised before any extractor
// call) and for checkpoint load/save failures.
func (a *Analyzer) Run(ctx context.Context, src *ReviewSource) (RunResult, error) {
	res := RunResult{RunID: a.opts.RunID, State: StateFailed}
	if ctx == nil {
		return res, errors.New("Analyzer.Run: ctx is nil")
	}

	a.setState(StateLoadingCheckpoint)
	store, err := a.checkpoints.Load()
	if err != nil {
		a.setState(StateFailed)
		return res, fmt.Errorf("Analyzer.Run: %w", err)
	}
	res.Store = store
	if err := store.EnsureBatchSize(a.opts.BatchSize); err != nil {
		a.setState(StateFailed)
		return res, fmt.Errorf("Analyzer.Run: %w", err)
	}
	a.rec.EntityCount(store.Len())

	a.setState(StatePlanning)
	batches, err := PlanBatches(src.Len(), a.opts.BatchSize)
	if err != nil {
		a.setState(StateFailed)
		return res, fmt.Errorf("Analyzer.Run: %w", err)
	}
	pending := PendingBatches(batches, store.LastBatchIdx())
	res.TotalBatches = len(batches)
	res.SkippedBatches = len(batches) - len(pending)
	for i := 0; i < res.SkippedBatches; i++ {
		a.rec.BatchDone(OutcomeSkipped, 0)
	}

	a.log.Info().
		Int("reviews", src.Len()).
		Int("batch_size", a.opts.BatchSize).
		Int("batches", len(batches)).
		Int("pending", len(pending)).
		Int("entities", store.Len()).
		Msg("run planned")

	finish := func(s State) (RunResult, error) {
		a.setState(s)
		res.State = s
		res.Entities = store.Len()
		res.LastBatchIdx = store.LastBatchIdx()
		return res, nil
	}

	for i, b := range pending {
		if err := ctx.Err(); err != nil {
			res.BatchErr = &BatchError{Batch: b, Stage: a.state, Err: err}
			a.log.Warn().Err(err).Int("batch", b.Index).Msg("run cancelled")
			return finish(StateFailed)
		}
		if a.opts.MaxBatches > 0 && res.Processed >= a.opts.MaxBatches {
			a.log.Info().Int("processed", res.Processed).Int("remaining", len(pending)-i).Msg("batch limit reached")
			return finish(StatePaused)
		}

		added, batchErr, err := a.runBatch(ctx, store, src, b, res.Processed == 0)
		if err != nil {
			a.setState(StateFailed)
			res.Entities = store.Len()
			return res, fmt.Errorf("Analyzer.Run: %w", err)
		}
		if batchErr != nil {
			res.BatchErr = batchErr
			return finish(StateFailed)
		}
		res.Processed++
		res.NewEntities += len(added)

		if i < len(pending)-1 && a.opts.Delay > 0 {
			// A cancelled sleep is picked up by the ctx check at the top of the loop.
			_ = a.sleep(ctx, a.opts.Delay)
		}
	}
	return finish(StateDone)
}

// runBatch returns a *BatchError for recoverable failures and a plain error for fatal ones.
func (a *Analyzer) runBatch(ctx context.Context, store *Store, src *ReviewSource, b Batch, first bool) ([]string, *BatchError, error) {
	reviews := src.Slice(b.Start, b.End)
	log := a.log.With().
		Int("batch", b.Index).
		Int("review_start", b.Start).
		Int("review_end", b.End).
		Logger()

	dump := BatchDump{RunID: a.opts.RunID, Batch: b.Index, ReviewStart: b.Start, ReviewEnd: b.End}
	if len(reviews) > 0 {
		dump.FirstReviewID = reviews[0].ID
		dump.LastReviewID = reviews[len(reviews)-1].ID
	}

	a.setState(StatePrompting)
	prompt := BuildPrompt(store.Names(), reviews, a.opts.Prompt)
	dump.Query = prompt.Render()
	if first {
		log.Debug().Str("prompt", dump.Query).Msg("first prompt")
	}

	fail := func(stage State, err error) ([]string, *BatchError, error) {
		a.rec.BatchDone(OutcomeFailed, len(reviews))
		dump.Error = err.Error()
		a.writeDump(log, dump)
		log.Error().Err(err).Str("stage", string(stage)).Msg("batch failed; stopping run")
		return nil, &BatchError{Batch: b, Stage: stage, Err: err}, nil
	}

	a.setState(StateCallingLLM)
	started := time.Now()
	raw, err := a.extractor.Extract(ctx, prompt)
	a.rec.ExtractDuration(time.Since(started), err)
	dump.Response = raw
	if err != nil {
		return fail(StateCallingLLM, err)
	}

	a.setState(StateParsing)
	ex, err := ParseExtraction(raw)
	if err != nil {
		return fail(StateParsing, err)
	}
	if outside := ex.IDsOutside(reviews); len(outside) > 0 {
		log.Warn().Ints("review_ids", outside).Msg("response references reviews outside the batch")
	}

	a.setState(StateMerging)
	added := store.MergeExtraction(ex)
	if err := store.Advance(b.Start); err != nil {
		return nil, nil, err
	}

	a.setState(StatePersisting)
	if err := a.checkpoints.Save(store); err != nil {
		return nil, nil, err
	}
	a.rec.BatchDone(OutcomeSucceeded, len(reviews))
	a.rec.EntityCount(store.Len())

	dump.NewEntities = added
	a.writeDump(log, dump)

	log.Info().
		Int("entities", len(ex.Entities)).
		Strs("entity_names", ex.Names()).
		Int("new_entities", len(added)).
		Int("vocabulary", store.Len()).
		Dur("extract_ms", time.Since(started)).
		Msg("batch complete")
	return added, nil, nil
}

func (a *Analyzer) writeDump(log zerolog.Logger, d BatchDump) {
	if a.opts.DebugDir == "" {
		return
	}
	if err := WriteBatchDump(a.opts.DebugDir, d); err != nil {
		log.Warn().Err(err).Msg("write batch dump")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
