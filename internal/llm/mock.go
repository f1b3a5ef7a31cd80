package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient implements Client for testing with scripted responses.
//
// When RespondFunc is set it decides every call; otherwise responses are
// popped from the queue in order. Calls records every request received.
type MockClient struct {
	mu          sync.Mutex
	ModelName   string
	RespondFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	queue       []*CompletionResponse
	Calls       []CompletionRequest
}

// NewMockClient creates a mock client with an empty script.
func NewMockClient(model string) *MockClient {
	return &MockClient{ModelName: model}
}

// Enqueue appends scripted response contents returned by subsequent calls.
func (m *MockClient) Enqueue(contents ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, content := range contents {
		m.queue = append(m.queue, &CompletionResponse{
			Content:    content,
			StopReason: "stop",
			Usage:      TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		})
	}
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.RespondFunc
	var next *CompletionResponse
	if fn == nil {
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return nil, fmt.Errorf("mock client: no scripted response left")
		}
		next = m.queue[0]
		m.queue = m.queue[1:]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return next, nil
}

func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// CallCount returns how many requests the mock has served.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
