package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

// Transport sends one HTTP request. *http.Client satisfies it. A Transport
// reports network faults as errors and returns every HTTP response, whatever
// its status, to the caller.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// idleCloser is implemented by transports holding pooled connections.
type idleCloser interface {
	CloseIdleConnections()
}

// HTTPTransportConfig configures the default transport.
type HTTPTransportConfig struct {
	// Client is the underlying HTTP client.
	// Default: a new client with Timeout
	Client *http.Client

	// Timeout for each attempt when Client is nil.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries after a network error, or a gateway failure of an idempotent
	// request. Negative disables retries.
	// Default: 3
	MaxRetries int

	// RetryDelay before the first retry; later retries back off exponentially.
	// Default: 500 milliseconds
	RetryDelay time.Duration

	Logger hclog.Logger
}

// HTTPTransport is the default Transport. It retries requests that failed
// with a network error, and GET, HEAD and OPTIONS requests answered with a
// 502, 503 or 504. Every attempt is recorded in the client metrics. Other
// responses are returned as-is.
type HTTPTransport struct {
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     hclog.Logger
}

var _ Transport = (*HTTPTransport)(nil)

var errBodyNotRewindable = errors.New("request body cannot be replayed")

// NewHTTPTransport creates the default transport.
func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	return &HTTPTransport{
		client:     cfg.Client,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// retryableStatus reports whether a response status is worth another attempt.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}

	return false
}

// safeMethod reports whether a request may be repeated after the server has
// seen it. A gateway failure does not tell whether a write was applied.
func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}

	return false
}

// Do sends req, retrying on network errors, and on gateway failures of safe
// methods, until the retry budget or the request context runs out. When the
// budget is spent on gateway failures the last response is returned.
func (t *HTTPTransport) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.retryDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(t.maxRetries)), ctx)

	var (
		resp    *http.Response
		last    *http.Response
		attempt int
	)

	discard := func() {
		if last != nil {
			_, _ = io.Copy(io.Discard, last.Body)
			last.Body.Close()
			last = nil
		}
	}

	operation := func() error {
		attempt++
		discard()

		r := req
		if attempt > 1 && req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return backoff.Permanent(errBodyNotRewindable)
			}

			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to replay request body: %w", err))
			}

			r = req.Clone(ctx)
			r.Body = body
		}

		start := time.Now()
		res, err := t.client.Do(r)
		observeAttempt(req.Method, res, err, start)

		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}

			return err
		}

		if retryableStatus(res.StatusCode) && safeMethod(req.Method) {
			last = res
			return fmt.Errorf("server answered %d", res.StatusCode)
		}

		resp = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		RetriesTotal.WithLabelValues(req.Method).Inc()
		t.logger.Debug("retrying request",
			"method", req.Method, "path", req.URL.Path, "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if last != nil && ctx.Err() == nil {
			return last, nil
		}

		discard()
		return nil, err
	}

	return resp, nil
}

// CloseIdleConnections releases pooled connections held by the underlying
// client.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}
