package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// flakyClient fails the first failures attempts with a network error and
// then answers 200, echoing the request body.
func flakyClient(failures int32, attempts *atomic.Int32, bodies *[]string) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		n := attempts.Add(1)

		if req.Body != nil {
			data, _ := io.ReadAll(req.Body)
			*bodies = append(*bodies, string(data))
		}

		if n <= failures {
			return nil, errors.New("connection reset by peer")
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{}`)),
			Request:    req,
		}, nil
	})}
}

func TestHTTPTransportRetriesNetworkErrors(t *testing.T) {
	var (
		attempts atomic.Int32
		bodies   []string
	)

	transport := NewHTTPTransport(HTTPTransportConfig{
		Client:     flakyClient(2, &attempts, &bodies),
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	retries := testutil.ToFloat64(RetriesTotal.WithLabelValues(http.MethodPost))
	failedAttempts := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodPost, codeTransportError))
	okAttempts := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodPost, "200"))

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, "http://api.test/reports", bytes.NewReader([]byte(`{"key":"value"}`)))
	require.NoError(t, err)

	resp, err := transport.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, attempts.Load())
	assert.Equal(t, []string{`{"key":"value"}`, `{"key":"value"}`, `{"key":"value"}`}, bodies, "body replayed on every attempt")

	assert.Equal(t, retries+2, testutil.ToFloat64(RetriesTotal.WithLabelValues(http.MethodPost)))
	assert.Equal(t, failedAttempts+2, testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodPost, codeTransportError)))
	assert.Equal(t, okAttempts+1, testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodPost, "200")))
}

func TestHTTPTransportGivesUpAfterMaxRetries(t *testing.T) {
	var (
		attempts atomic.Int32
		bodies   []string
	)

	transport := NewHTTPTransport(HTTPTransportConfig{
		Client:     flakyClient(10, &attempts, &bodies),
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://api.test/account", nil)
	require.NoError(t, err)

	_, err = transport.Do(req)
	assert.ErrorContains(t, err, "connection reset by peer")
	assert.EqualValues(t, 3, attempts.Load())
}

func TestHTTPTransportRetriesDisabled(t *testing.T) {
	var (
		attempts atomic.Int32
		bodies   []string
	)

	transport := NewHTTPTransport(HTTPTransportConfig{
		Client:     flakyClient(1, &attempts, &bodies),
		MaxRetries: -1,
	})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://api.test/account", nil)
	require.NoError(t, err)

	_, err = transport.Do(req)
	assert.Error(t, err)
	assert.EqualValues(t, 1, attempts.Load())
}

func TestHTTPTransportDoesNotRetryHTTPErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	transport := NewHTTPTransport(HTTPTransportConfig{RetryDelay: time.Millisecond})
	defer transport.CloseIdleConnections()

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "500"))

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/account", nil)
	require.NoError(t, err)

	resp, err := transport.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.EqualValues(t, 1, attempts.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "500")))
}

func TestHTTPTransportRetriesGatewayFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := NewHTTPTransport(HTTPTransportConfig{RetryDelay: time.Millisecond})
	defer transport.CloseIdleConnections()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/ping", nil)
	require.NoError(t, err)

	resp, err := transport.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestHTTPTransportReturnsLastGatewayFailure(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	transport := NewHTTPTransport(HTTPTransportConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	defer transport.CloseIdleConnections()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/ping", nil)
	require.NoError(t, err)

	resp, err := transport.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "upstream down", string(body))
	assert.EqualValues(t, 2, attempts.Load())
}

func TestHTTPTransportDoesNotRepeatWritesOnGatewayFailure(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			var attempts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			transport := NewHTTPTransport(HTTPTransportConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
			defer transport.CloseIdleConnections()

			before := testutil.ToFloat64(RetriesTotal.WithLabelValues(method))

			req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+"/reports", strings.NewReader(`{"name":"x"}`))
			require.NoError(t, err)

			resp, err := transport.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			assert.EqualValues(t, 1, attempts.Load())
			assert.Equal(t, before, testutil.ToFloat64(RetriesTotal.WithLabelValues(method)))
		})
	}
}

func TestHTTPTransportUnreplayableBody(t *testing.T) {
	var (
		attempts atomic.Int32
		bodies   []string
	)

	transport := NewHTTPTransport(HTTPTransportConfig{
		Client:     flakyClient(1, &attempts, &bodies),
		RetryDelay: time.Millisecond,
	})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, "http://api.test/reports", io.NopCloser(strings.NewReader("{}")))
	require.NoError(t, err)
	req.GetBody = nil

	_, err = transport.Do(req)
	assert.ErrorIs(t, err, errBodyNotRewindable)
	assert.EqualValues(t, 1, attempts.Load())
}

func TestMetricsRegistryGathersClientMetrics(t *testing.T) {
	RequestsTotal.WithLabelValues(http.MethodOptions, "204").Inc()

	families, err := MetricsRegistry.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}

	assert.Contains(t, names, "mopinion_client_requests_total")
}
