package httpclient

import (
	"net/http"
	"time"

	"agora/internal/errors"
	"agora/internal/logging"
)

// New returns an http.Client configured for outbound requests.
func New(timeout time.Duration, logger logging.Logger) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: loggingTransport{base: baseTransport(), logger: logging.OrNop(logger)},
	}
}

// NewWithCircuitBreaker builds an HTTP client guarded by a circuit breaker.
func NewWithCircuitBreaker(timeout time.Duration, logger logging.Logger, name string, config errors.CircuitBreakerConfig) *http.Client {
	client := New(timeout, logger)
	client.Transport = WrapTransportWithCircuitBreaker(client.Transport, name, config)
	return client
}

func baseTransport() http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	return base.Clone()
}

type loggingTransport struct {
	base   http.RoundTripper
	logger logging.Logger
}

func (t loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(started).Round(time.Millisecond)
	if err != nil {
		t.logger.Debug("%s %s failed after %v: %v", req.Method, req.URL.Host, elapsed, err)
		return nil, err
	}
	t.logger.Debug("%s %s -> %d in %v", req.Method, req.URL.Host, resp.StatusCode, elapsed)
	return resp, nil
}
