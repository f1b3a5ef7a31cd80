package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agora/internal/errors"
	"agora/internal/httpclient"
	"agora/internal/logging"
)

const maxResponseBytes = 4 << 20

// OpenAI API compatible client
type openaiClient struct {
	model         string
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	logger        logging.Logger
	headers       map[string]string
	usageCallback func(usage TokenUsage, model string)
}

// NewOpenAIClient constructs a client that speaks the OpenAI-compatible chat
// completions API using the provided configuration. The underlying transport
// is guarded by a circuit breaker so a flapping upstream fails fast.
func NewOpenAIClient(config Config) (Client, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}

	timeout := 120 * time.Second
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}

	logger := logging.NewComponentLogger("llm-openai")

	return &openaiClient{
		model:      config.Model,
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpclient.NewWithCircuitBreaker(timeout, logger, "llm-"+config.Model, errors.DefaultCircuitBreakerConfig()),
		logger:     logger,
		headers:    config.Headers,
	}, nil
}

func (c *openaiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	oaiReq := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "user", "content": req.Prompt},
		},
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
		"stream":      false,
	}

	body, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	c.logger.Debug("=== LLM Request ===")
	c.logger.Debug("URL: POST %s", endpoint)
	c.logger.Debug("Model: %s", c.model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("HTTP request failed: %v", err)
		return nil, wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("=== LLM Response ===")
	c.logger.Debug("Status: %d %s", resp.StatusCode, resp.Status)

	respBody, err := httpclient.ReadAllWithLimit(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("Error response body: %s", string(respBody))
		return nil, mapHTTPError(resp.StatusCode, resp.Status, respBody, resp.Header)
	}

	var oaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		c.logger.Debug("Failed to decode response: %v", err)
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if oaiResp.Error != nil && oaiResp.Error.Message != "" {
		errMsg := oaiResp.Error.Message
		if oaiResp.Error.Type != "" {
			errMsg = fmt.Sprintf("%s: %s", oaiResp.Error.Type, oaiResp.Error.Message)
		}
		return nil, mapHTTPError(resp.StatusCode, resp.Status, []byte(errMsg), resp.Header)
	}

	if len(oaiResp.Choices) == 0 {
		c.logger.Debug("No choices in response")
		return nil, errors.NewTransientError(stderrors.New("no choices in response"), "model returned an empty response")
	}

	result := &CompletionResponse{
		Content:    oaiResp.Choices[0].Message.Content,
		StopReason: oaiResp.Choices[0].FinishReason,
		Usage: TokenUsage{
			PromptTokens:     oaiResp.Usage.PromptTokens,
			CompletionTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:      oaiResp.Usage.TotalTokens,
		},
	}

	if c.usageCallback != nil {
		c.usageCallback(result.Usage, c.model)
	}

	c.logger.Debug("Stop Reason: %s", result.StopReason)
	c.logger.Debug("Content Length: %d chars", len(result.Content))
	c.logger.Debug("Usage: %d prompt + %d completion = %d total tokens",
		result.Usage.PromptTokens,
		result.Usage.CompletionTokens,
		result.Usage.TotalTokens)

	return result, nil
}

func (c *openaiClient) Model() string {
	return c.model
}

// SetUsageCallback implements UsageTrackingClient.
func (c *openaiClient) SetUsageCallback(callback func(usage TokenUsage, model string)) {
	c.usageCallback = callback
}

// mapHTTPError converts an upstream HTTP failure into the retry taxonomy.
func mapHTTPError(statusCode int, status string, body []byte, header http.Header) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 512 {
		detail = detail[:512]
	}
	statusErr := errors.NewHTTPStatusError(statusCode, status, detail)

	switch {
	case statusCode == http.StatusTooManyRequests:
		message := "model API rate limit reached"
		if retryAfter := strings.TrimSpace(header.Get("Retry-After")); retryAfter != "" {
			if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
				message = fmt.Sprintf("model API rate limit reached, retry after %ds", secs)
			}
		}
		return errors.NewTransientError(statusErr, message)
	case statusCode >= 500:
		return errors.NewTransientError(statusErr, fmt.Sprintf("model service error (%d)", statusCode))
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return errors.NewPermanentError(statusErr, "model API authentication failed, check the API key")
	case statusCode == http.StatusNotFound:
		return errors.NewPermanentError(statusErr, "model or endpoint not found, verify the model name")
	default:
		return errors.NewPermanentError(statusErr, fmt.Sprintf("model request rejected (%d): %s", statusCode, detail))
	}
}

// wrapRequestError classifies transport-level failures. Context cancellation
// passes through untouched so callers can distinguish their own deadlines.
func wrapRequestError(err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.IsDegraded(err) || errors.IsTransient(err) || errors.IsPermanent(err) {
		return err
	}
	return errors.NewTransientError(err, fmt.Sprintf("model request failed: %v", err))
}
