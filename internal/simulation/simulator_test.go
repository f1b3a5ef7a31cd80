package simulation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"agora/internal/llm"
)

const testHighlightsResponse = "POSITIVE: Praise.\nNEUTRAL: Questions.\nNEGATIVE: Doubts."

// isHighlightsPrompt distinguishes the summary call from reaction calls when
// one mock serves a whole variant simulation.
func isHighlightsPrompt(prompt string) bool {
	return strings.Contains(prompt, "POSITIVE REPLIES:")
}

func newTestSimulator(mock *llm.MockClient, sem *semaphore.Weighted, maxFailures int) *Simulator {
	return NewSimulator(NewReactionClient(mock, 1), NewSummarizer(mock), sem, maxFailures, nil, nil)
}

func TestSimulateRestoresPersonaOrder(t *testing.T) {
	personas := []Persona{
		{ID: "a", Name: "Alpha", Description: "first"},
		{ID: "b", Name: "Bravo", Description: "second"},
		{ID: "c", Name: "Charlie", Description: "third"},
	}

	// Later personas answer sooner, so completion order is the reverse of
	// input order.
	delays := map[string]time.Duration{"Alpha": 30 * time.Millisecond, "Bravo": 15 * time.Millisecond, "Charlie": 0}

	mock := llm.NewMockClient("test-model")
	mock.RespondFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isHighlightsPrompt(req.Prompt) {
			return &llm.CompletionResponse{Content: testHighlightsResponse}, nil
		}
		for name, delay := range delays {
			if strings.Contains(req.Prompt, name) {
				time.Sleep(delay)
				return &llm.CompletionResponse{Content: "reply from " + name + "\npositive"}, nil
			}
		}
		return nil, errors.New("unexpected prompt")
	}

	var mu sync.Mutex
	var progress [][2]int
	onProgress := func(completed, total int) {
		mu.Lock()
		progress = append(progress, [2]int{completed, total})
		mu.Unlock()
	}

	sim := newTestSimulator(mock, nil, 0)
	result, err := sim.Simulate(context.Background(), "variant text", personas, onProgress)

	require.NoError(t, err)
	require.Len(t, result.Replies, 3)
	assert.Equal(t, "a", result.Replies[0].PersonaID)
	assert.Equal(t, "b", result.Replies[1].PersonaID)
	assert.Equal(t, "c", result.Replies[2].PersonaID)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, "Praise.", result.Highlights.Positive)

	require.Len(t, progress, 3)
	for i, p := range progress {
		assert.Equal(t, i+1, p[0], "completed counter must be monotonic")
		assert.Equal(t, 3, p[1])
	}
}

func TestSimulateFailFastOnReactionError(t *testing.T) {
	personas := []Persona{
		{ID: "a", Name: "Alpha", Description: "first"},
		{ID: "b", Name: "Bravo", Description: "second"},
	}

	cause := errors.New("model exploded")
	mock := llm.NewMockClient("test-model")
	mock.RespondFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if strings.Contains(req.Prompt, "Bravo") {
			return nil, cause
		}
		return &llm.CompletionResponse{Content: "fine\npositive"}, nil
	}

	sim := newTestSimulator(mock, nil, 0)
	_, err := sim.Simulate(context.Background(), "variant", personas, nil)

	var reactErr *ReactionError
	require.ErrorAs(t, err, &reactErr)
	assert.Equal(t, "b", reactErr.PersonaID)
	assert.ErrorIs(t, err, cause)
}

func TestSimulateToleratesFailuresWithinBudget(t *testing.T) {
	personas := []Persona{
		{ID: "a", Name: "Alpha", Description: "first"},
		{ID: "b", Name: "Bravo", Description: "second"},
		{ID: "c", Name: "Charlie", Description: "third"},
	}

	mock := llm.NewMockClient("test-model")
	mock.RespondFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isHighlightsPrompt(req.Prompt) {
			return &llm.CompletionResponse{Content: testHighlightsResponse}, nil
		}
		if strings.Contains(req.Prompt, "Bravo") {
			return nil, errors.New("flaky persona")
		}
		return &llm.CompletionResponse{Content: "fine\nneutral"}, nil
	}

	sim := newTestSimulator(mock, nil, 1)
	result, err := sim.Simulate(context.Background(), "variant", personas, nil)

	require.NoError(t, err)
	require.Len(t, result.Replies, 2)
	assert.Equal(t, "a", result.Replies[0].PersonaID)
	assert.Equal(t, "c", result.Replies[1].PersonaID)
	assert.Equal(t, 0, result.Score)
}

func TestSimulateFailsWhenEveryReactionFails(t *testing.T) {
	personas := makePersonas(3)

	mock := llm.NewMockClient("test-model")
	mock.RespondFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, errors.New("down for maintenance")
	}

	sim := newTestSimulator(mock, nil, 3)
	_, err := sim.Simulate(context.Background(), "variant", personas, nil)

	var reactErr *ReactionError
	require.ErrorAs(t, err, &reactErr)
}

func TestSimulateHonorsSemaphoreBound(t *testing.T) {
	personas := makePersonas(6)

	var inflight, maxInflight atomic.Int64
	mock := llm.NewMockClient("test-model")
	mock.RespondFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isHighlightsPrompt(req.Prompt) {
			return &llm.CompletionResponse{Content: testHighlightsResponse}, nil
		}
		cur := inflight.Add(1)
		for {
			seen := maxInflight.Load()
			if cur <= seen || maxInflight.CompareAndSwap(seen, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
		return &llm.CompletionResponse{Content: "ok\nneutral"}, nil
	}

	sim := newTestSimulator(mock, semaphore.NewWeighted(2), 0)
	_, err := sim.Simulate(context.Background(), "variant", personas, nil)

	require.NoError(t, err)
	assert.LessOrEqual(t, maxInflight.Load(), int64(2))
}
