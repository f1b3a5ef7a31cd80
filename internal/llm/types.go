package llm

import "context"

// Config holds the settings needed to reach an OpenAI-compatible
// chat-completions endpoint.
type Config struct {
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int // seconds
	MaxRetries int
	Headers    map[string]string
}

// CompletionRequest is one text-completion call: prompt in, text out.
type CompletionRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TokenUsage reports token accounting for one completion call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the text returned by the model service.
type CompletionResponse struct {
	Content    string
	StopReason string
	Usage      TokenUsage
}

// Client is the contract every model-service client fulfills. Any
// text-completion service is substitutable behind it.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Model() string
}

// UsageTrackingClient is implemented by clients that can report token usage
// per call, e.g. to feed cost metrics.
type UsageTrackingClient interface {
	SetUsageCallback(callback func(usage TokenUsage, model string))
}
