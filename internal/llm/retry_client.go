package llm

import (
	"context"
	"time"

	"agora/internal/errors"
	"agora/internal/logging"
)

// retryClient wraps a model client with retry logic for transient failures.
type retryClient struct {
	underlying  Client
	retryConfig errors.RetryConfig
	logger      logging.Logger
}

// NewRetryClient wraps a model client with exponential-backoff retries.
// Permanent failures (bad key, unknown model) surface immediately.
func NewRetryClient(client Client, retryConfig errors.RetryConfig) Client {
	return &retryClient{
		underlying:  client,
		retryConfig: retryConfig,
		logger:      logging.NewComponentLogger("llm-retry"),
	}
}

func (c *retryClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	startTime := time.Now()

	resp, err := errors.RetryWithResult(ctx, c.retryConfig, c.logger, func(ctx context.Context) (*CompletionResponse, error) {
		return c.underlying.Complete(ctx, req)
	})

	if err != nil {
		c.logger.Warn("model request failed after %v: %v", time.Since(startTime).Round(time.Millisecond), err)
		return nil, err
	}

	if elapsed := time.Since(startTime); elapsed > 5*time.Second {
		c.logger.Debug("model request succeeded after %v", elapsed)
	}

	return resp, nil
}

func (c *retryClient) Model() string {
	return c.underlying.Model()
}

// SetUsageCallback forwards usage tracking to the underlying client.
func (c *retryClient) SetUsageCallback(callback func(usage TokenUsage, model string)) {
	if trackingClient, ok := c.underlying.(UsageTrackingClient); ok {
		trackingClient.SetUsageCallback(callback)
	}
}
