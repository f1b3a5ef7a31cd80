package simulation

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"agora/internal/logging"
	"agora/internal/metrics"
)

// Simulator runs one variant against a persona panel: every reaction call
// issued concurrently, replies restored to persona-input order, score and
// highlights computed from the full set.
type Simulator struct {
	reactions   *ReactionClient
	summarizer  *Summarizer
	sem         *semaphore.Weighted // shared reaction-call cap, may be nil
	maxFailures int                 // tolerated failed reactions per variant
	metrics     *metrics.Metrics
	logger      logging.Logger
}

// NewSimulator builds a Simulator. sem bounds concurrent reaction calls
// across every variant sharing it; nil means unbounded. maxFailures above
// zero lets a variant complete with up to that many reactions dropped from
// the tally instead of failing the run.
func NewSimulator(reactions *ReactionClient, summarizer *Summarizer, sem *semaphore.Weighted, maxFailures int, m *metrics.Metrics, logger logging.Logger) *Simulator {
	return &Simulator{
		reactions:   reactions,
		summarizer:  summarizer,
		sem:         sem,
		maxFailures: maxFailures,
		metrics:     m,
		logger:      logging.OrNop(logger),
	}
}

// Simulate collects one reply per persona, concurrently, then aggregates.
// The progress callback fires once per finished reaction, in completion
// order; the returned reply list follows the input persona order.
func (s *Simulator) Simulate(ctx context.Context, variantText string, personas []Persona, onProgress ProgressFunc) (VariantResult, error) {
	total := len(personas)
	replies := make([]*PersonaReply, total)

	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	completed := 0
	failures := 0

	for i, persona := range personas {
		g.Go(func() error {
			if s.sem != nil {
				if err := s.sem.Acquire(gctx, 1); err != nil {
					return err
				}
			}
			reply, err := s.reactions.React(gctx, variantText, persona)
			if s.sem != nil {
				s.sem.Release(1)
			}

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				s.metrics.ReactionObserved("error")
				failures++
				if failures > s.maxFailures {
					return err
				}
				s.logger.Warn("dropping failed reaction for persona %s (%d/%d tolerated): %v",
					persona.ID, failures, s.maxFailures, err)
			} else {
				s.metrics.ReactionObserved("ok")
				replies[i] = &reply
			}

			completed++
			if onProgress != nil {
				onProgress(completed, total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return VariantResult{}, err
	}

	collected := make([]PersonaReply, 0, total)
	for _, reply := range replies {
		if reply != nil {
			collected = append(collected, *reply)
		}
	}
	if len(collected) == 0 {
		return VariantResult{}, &ReactionError{Err: errors.New("every reaction for this variant failed")}
	}

	score := Score(collected)

	highlights, err := s.summarizer.Summarize(ctx, collected)
	if err != nil {
		return VariantResult{}, err
	}

	return VariantResult{
		Text:       variantText,
		Score:      score,
		Highlights: highlights,
		Replies:    collected,
	}, nil
}
