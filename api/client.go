package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mopinion/mopinion-go/types"
)

// Client is an authenticated Mopinion API client. It owns its transport and
// the session signing key obtained when it was created. A Client issues one
// request at a time; it is not meant to be shared between goroutines that
// call it concurrently.
type Client struct {
	baseURL        string
	transport      Transport
	publicKey      string
	signatureToken string
	defaults       RequestArguments
	logger         hclog.Logger
}

// RequestOptions carries the optional parts of a call. Empty argument fields
// fall back to the client defaults.
type RequestOptions struct {
	Method             string
	Version            string
	Verbosity          string
	ContentNegotiation string

	// Body is encoded as JSON and signed.
	Body any

	// Query parameters appended to the URL.
	Query url.Values
}

// NewClient validates cfg, exchanges the key pair for a session signing key
// and returns a ready client. When the exchange fails no client is returned
// and the transport's idle connections are released.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	creds := cfg.Credentials()
	if err := creds.Validate(); err != nil {
		return nil, &ValidationError{Code: CodeInvalidCredentials, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	defaults, err := NewRequestArguments("", cfg.Version, cfg.Verbosity, cfg.ContentNegotiation)
	if err != nil {
		return nil, err
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(HTTPTransportConfig{
			Timeout:    cfg.timeout(),
			MaxRetries: cfg.MaxRetries,
			Logger:     cfg.Logger.Named("transport"),
		})
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		transport: transport,
		publicKey: creds.PublicKey,
		defaults:  defaults,
		logger:    cfg.Logger,
	}

	token, err := c.bootstrap(ctx, creds)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.signatureToken = token
	c.logger.Debug("obtained signature token", "public_key", creds.Masked())

	return c, nil
}

// bootstrap exchanges the key pair for the session signing key.
func (c *Client) bootstrap(ctx context.Context, creds types.Credentials) (string, error) {
	endpoint := MustParseEndpoint(TokenPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint.Path, nil)
	if err != nil {
		return "", &AuthenticationBootstrapError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Authorization", basicAuthorization(creds))

	_, body, err := c.roundTrip(req)
	if err != nil {
		return "", &AuthenticationBootstrapError{Err: err}
	}

	var tokenResp struct {
		Token *string `json:"token"`
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &AuthenticationBootstrapError{Err: fmt.Errorf("malformed token response: %w", err)}
	}

	if tokenResp.Token == nil || *tokenResp.Token == "" {
		return "", &AuthenticationBootstrapError{Err: errors.New("malformed token response: no token field")}
	}

	return *tokenResp.Token, nil
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PublicKey returns the public key the client signs with.
func (c *Client) PublicKey() string {
	return c.publicKey
}

// Defaults returns the request arguments used for fields a call leaves empty.
func (c *Client) Defaults() RequestArguments {
	return c.defaults
}

// Close releases the connections held by the client's transport.
func (c *Client) Close() {
	if closer, ok := c.transport.(idleCloser); ok {
		closer.CloseIdleConnections()
	}
}

// Arguments resolves opts against the client defaults and validates them.
func (c *Client) Arguments(opts RequestOptions) (RequestArguments, error) {
	args := RequestArguments{
		Method:             types.Method(opts.Method),
		Version:            types.Version(opts.Version),
		Verbosity:          types.Verbosity(opts.Verbosity),
		ContentNegotiation: types.ContentNegotiation(opts.ContentNegotiation),
	}.withDefaults(c.defaults).normalize()

	if err := args.Validate(); err != nil {
		return RequestArguments{}, err
	}

	return args, nil
}

// Request validates path and opts, then performs a signed call.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	endpoint, err := ParseEndpoint(path)
	if err != nil {
		return nil, err
	}

	args, err := c.Arguments(opts)
	if err != nil {
		return nil, err
	}

	return c.Do(ctx, endpoint, args, opts.Body, opts.Query)
}

// Resource composes the endpoint for l, then performs a signed call.
func (c *Client) Resource(ctx context.Context, l ResourceLocator, opts RequestOptions) (*Response, error) {
	endpoint, err := BuildResourceEndpoint(l)
	if err != nil {
		return nil, err
	}

	args, err := c.Arguments(opts)
	if err != nil {
		return nil, err
	}

	return c.Do(ctx, endpoint, args, opts.Body, opts.Query)
}

// Do signs and sends one request. Every authenticated call goes through it.
// A non-2xx response or a transport fault is returned as a *RequestError.
func (c *Client) Do(ctx context.Context, endpoint Endpoint, args RequestArguments, body any, query url.Values) (*Response, error) {
	if endpoint.IsZero() {
		return nil, &ValidationError{Code: CodeEndpointNotSupported, Field: "endpoint", Err: errors.New("endpoint is empty")}
	}

	args = args.normalize()
	if err := args.Validate(); err != nil {
		return nil, err
	}

	data, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, endpoint, args, data, query)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("dispatching request",
		"method", req.Method, "endpoint", endpoint.String(), "version", args.Version, "verbosity", args.Verbosity)

	resp, respBody, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		Endpoint:   endpoint,
	}, nil
}

// newRequest builds the signed HTTP request. It is the only place the
// authentication headers are set.
func (c *Client) newRequest(ctx context.Context, endpoint Endpoint, args RequestArguments, data []byte, query url.Values) (*http.Request, error) {
	apiURL, err := url.Parse(c.baseURL + endpoint.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	// The signature covers endpoint.Path, so it must reach the server as is.
	if apiURL.Fragment != "" || apiURL.RawQuery != "" || !strings.HasSuffix(apiURL.EscapedPath(), endpoint.Path) {
		return nil, &ValidationError{
			Code: CodeEndpointNotSupported, Field: "endpoint", Value: endpoint.Path,
			Err: errors.New("endpoint path is not sent verbatim"),
		}
	}

	apiURL.RawQuery = mergeQuery(endpoint.RawQuery, query)

	var reqBody io.Reader
	if data != nil {
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, args.Method.HTTP(), apiURL.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Auth-Token", Sign(c.signatureToken, c.publicKey, endpoint, data))
	req.Header.Set("version", string(args.Version))
	req.Header.Set("verbosity", string(args.Verbosity))
	req.Header.Set("Accept", string(args.ContentNegotiation))

	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// mergeQuery appends the parameters in extra that raw does not already carry.
// raw is kept verbatim.
func mergeQuery(raw string, extra url.Values) string {
	existing, _ := url.ParseQuery(raw)

	add := url.Values{}
	for key, values := range extra {
		if _, ok := existing[key]; ok {
			continue
		}
		add[key] = values
	}

	switch {
	case len(add) == 0:
		return raw
	case raw == "":
		return add.Encode()
	default:
		return raw + "&" + add.Encode()
	}
}

// roundTrip sends req and reads the body. Non-2xx statuses become a
// *RequestError carrying the server's message when one can be extracted.
func (c *Client) roundTrip(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, nil, &RequestError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &RequestError{
			Method: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode,
			Err: fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &RequestError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}

		// Try to extract error message from JSON response.
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Meta    struct {
				Message string `json:"message"`
			} `json:"_meta"`
		}

		if json.Unmarshal(respBody, &errResp) == nil {
			switch {
			case errResp.Error != "":
				reqErr.Message = errResp.Error
			case errResp.Message != "":
				reqErr.Message = errResp.Message
			case errResp.Meta.Message != "":
				reqErr.Message = errResp.Meta.Message
			}
		}

		return nil, nil, reqErr
	}

	return resp, respBody, nil
}

// Get makes an authenticated GET request and decodes the response into result.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.call(ctx, path, RequestOptions{Method: http.MethodGet}, result)
}

// Post makes an authenticated POST request.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.call(ctx, path, RequestOptions{Method: http.MethodPost, Body: body}, result)
}

// Put makes an authenticated PUT request.
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	return c.call(ctx, path, RequestOptions{Method: http.MethodPut, Body: body}, result)
}

// Delete makes an authenticated DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.call(ctx, path, RequestOptions{Method: http.MethodDelete}, nil)
}

func (c *Client) call(ctx context.Context, path string, opts RequestOptions, result any) error {
	resp, err := c.Request(ctx, path, opts)
	if err != nil {
		return err
	}

	if result == nil {
		return nil
	}

	return resp.Decode(result)
}

// Ping calls the availability endpoint.
func (c *Client) Ping(ctx context.Context) (*types.PingResponse, error) {
	var ping types.PingResponse
	if err := c.Get(ctx, PingPath, &ping); err != nil {
		return nil, err
	}

	return &ping, nil
}

// IsAvailable reports whether the API answers the availability endpoint.
func (c *Client) IsAvailable(ctx context.Context) bool {
	ping, err := c.Ping(ctx)
	if err != nil {
		c.logger.Debug("API unavailable", "error", err)
		return false
	}

	return ping.Code == http.StatusOK || ping.Response == "pong"
}
