package simulation

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"agora/internal/llm"
	"agora/internal/logging"
	"agora/internal/metrics"
)

// MaxReactionsPerRun is the hard ceiling on sampled personas per run,
// enforced regardless of the requested reaction count.
const MaxReactionsPerRun = 50

// Options tunes orchestrator behavior.
type Options struct {
	// ReactionConcurrency bounds in-flight reaction calls across the whole
	// run. Zero or negative means unbounded, which can put
	// VariantCount * MaxReactionsPerRun calls in flight at once.
	ReactionConcurrency int

	// MaxReactionFailures is the per-variant tolerance for failed reaction
	// calls. Zero keeps the fail-fast contract: one failed reaction fails
	// the whole run.
	MaxReactionFailures int

	// Temperature used for variant generation and persona reactions.
	// Highlight summaries use their own fixed temperature.
	Temperature float64
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		ReactionConcurrency: 32,
		MaxReactionFailures: 0,
		Temperature:         1,
	}
}

// RunRequest is one simulation run's validated input.
type RunRequest struct {
	Idea          string
	Personas      []Persona
	ReactionCount int
}

// Orchestrator drives a full simulation run: generate variants, sample
// personas, fan out reactions per variant, aggregate, pick the winner.
type Orchestrator struct {
	generator  *Generator
	sampler    *Sampler
	reactions  *ReactionClient
	summarizer *Summarizer
	opts       Options
	metrics    *metrics.Metrics
	logger     logging.Logger
}

// NewOrchestrator wires the simulation components around one model client.
func NewOrchestrator(client llm.Client, opts Options, m *metrics.Metrics, logger logging.Logger) *Orchestrator {
	logger = logging.OrNop(logger)
	return &Orchestrator{
		generator:  NewGenerator(client, opts.Temperature, logger),
		sampler:    NewSampler(),
		reactions:  NewReactionClient(client, opts.Temperature),
		summarizer: NewSummarizer(client),
		opts:       opts,
		metrics:    m,
		logger:     logger,
	}
}

// SetSampler replaces the persona sampler, e.g. with a seeded one in tests.
func (o *Orchestrator) SetSampler(sampler *Sampler) {
	if sampler != nil {
		o.sampler = sampler
	}
}

// Run executes a full simulation. Progress callbacks fire as individual
// reactions finish, sharing one monotonic counter across all variants. Any
// unrecovered component failure aborts the run with no partial result.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest, onProgress ProgressFunc) (*SimulationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	o.metrics.RunStarted()
	status := "error"
	defer func() { o.metrics.RunFinished(status) }()

	started := time.Now()
	o.logger.Info("simulation run started: %d personas available, %d reactions requested",
		len(req.Personas), req.ReactionCount)

	variants, err := runStage(ctx, o.metrics, "generate", func(ctx context.Context) ([]string, error) {
		return o.generator.Generate(ctx, req.Idea)
	})
	if err != nil {
		return nil, err
	}

	sampleCount := req.ReactionCount
	if sampleCount > MaxReactionsPerRun {
		sampleCount = MaxReactionsPerRun
	}
	sampled := o.sampler.Sample(req.Personas, sampleCount)
	o.logger.Debug("sampled %d personas for the panel", len(sampled))

	results, err := runStage(ctx, o.metrics, "simulate", func(ctx context.Context) ([]VariantResult, error) {
		return o.simulateAll(ctx, variants, sampled, onProgress)
	})
	if err != nil {
		return nil, err
	}

	best := bestVariantIndex(results)

	status = "success"
	o.logger.Info("simulation run finished in %v: best variant #%d (score %d)",
		time.Since(started).Round(time.Millisecond), best+1, results[best].Score)

	return &SimulationResult{
		BestVariantIndex: best,
		Variants:         results,
	}, nil
}

// simulateAll fans out every variant concurrently against the same sampled
// panel, forwarding a shared completed-reaction counter to onProgress.
func (o *Orchestrator) simulateAll(ctx context.Context, variants []string, sampled []Persona, onProgress ProgressFunc) ([]VariantResult, error) {
	var sem *semaphore.Weighted
	if o.opts.ReactionConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(o.opts.ReactionConcurrency))
	}

	simulator := NewSimulator(o.reactions, o.summarizer, sem, o.opts.MaxReactionFailures, o.metrics, o.logger)

	totalReactions := len(variants) * len(sampled)

	// One counter shared by every variant; callbacks fire in strict counter
	// order so consumers can stream them as-is.
	var progressMu sync.Mutex
	completed := 0
	recordProgress := func(_, _ int) {
		progressMu.Lock()
		completed++
		if onProgress != nil {
			onProgress(completed, totalReactions)
		}
		progressMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]VariantResult, len(variants))

	for i, variant := range variants {
		g.Go(func() error {
			result, err := simulator.Simulate(gctx, variant, sampled, recordProgress)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// runStage wraps one orchestration stage with duration metrics.
func runStage[T any](ctx context.Context, m *metrics.Metrics, stage string, fn func(ctx context.Context) (T, error)) (T, error) {
	started := time.Now()
	out, err := fn(ctx)
	m.ObserveStage(stage, stageStatus(err), time.Since(started))
	return out, err
}

func stageStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// bestVariantIndex picks the maximum score, first occurrence winning ties.
func bestVariantIndex(results []VariantResult) int {
	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[best].Score {
			best = i
		}
	}
	return best
}

func validateRequest(req RunRequest) error {
	idea := strings.TrimSpace(req.Idea)
	if idea == "" {
		return &ValidationError{Field: "idea", Reason: "must not be empty"}
	}
	if req.ReactionCount <= 0 {
		return &ValidationError{Field: "reactionCount", Reason: "must be positive"}
	}
	if len(req.Personas) == 0 {
		return &ValidationError{Field: "personas", Reason: "at least one persona is required"}
	}
	return nil
}
