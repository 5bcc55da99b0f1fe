// Package apitest provides a stub Mopinion API server and helpers for tests
// against the live API.
//
// The stub implements the token exchange and verifies the X-Auth-Token of
// every other request the way the real server does, so a client that signs
// incorrectly receives 401 responses.
package apitest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Default stub credentials and session token.
const (
	PublicKey  = "PUBLIC_KEY"
	PrivateKey = "PRIVATE_KEY"
	Token      = "token"
)

// RecordedRequest is a request received by the stub, body included.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Server is a stub Mopinion API.
type Server struct {
	*httptest.Server

	router chi.Router

	mu          sync.Mutex
	requests    []RecordedRequest
	publicKey   string
	privateKey  string
	token       string
	tokenStatus int
	tokenBody   any
	verify      bool
}

// Option configures a Server.
type Option func(*Server)

// WithCredentials sets the key pair the token endpoint accepts.
func WithCredentials(publicKey, privateKey string) Option {
	return func(s *Server) {
		s.publicKey = publicKey
		s.privateKey = privateKey
	}
}

// WithToken sets the session token handed out by the token endpoint.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithTokenResponse makes the token endpoint answer with status and body
// instead of a token.
func WithTokenResponse(status int, body any) Option {
	return func(s *Server) {
		s.tokenStatus = status
		s.tokenBody = body
	}
}

// WithoutSignatureCheck disables X-Auth-Token verification.
func WithoutSignatureCheck() Option {
	return func(s *Server) {
		s.verify = false
	}
}

// NewServer starts a stub server that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		router:     chi.NewRouter(),
		publicKey:  PublicKey,
		privateKey: PrivateKey,
		token:      Token,
		verify:     true,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(s.record)
	s.router.Get("/token", s.handleToken)
	s.router.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			WriteJSON(w, http.StatusOK, map[string]any{"code": 200, "response": "pong", "version": "2.0.0"})
		})
	})

	s.Server = httptest.NewServer(s.router)
	t.Cleanup(s.Close)

	return s
}

// Handle registers an authenticated handler for method and chi pattern.
func (s *Server) Handle(method, pattern string, h http.HandlerFunc) {
	s.router.With(s.authenticate).Method(method, pattern, h)
}

// JSON registers a handler answering with a fixed status and JSON body.
func (s *Server) JSON(method, pattern string, status int, body any) {
	s.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Pages registers GET pattern to serve pages[n-1] for ?page=n (default 1).
// Pages past the end answer 404.
func (s *Server) Pages(pattern string, pages ...any) {
	s.Handle(http.MethodGet, pattern, func(w http.ResponseWriter, r *http.Request) {
		n := 1
		if p := r.URL.Query().Get("page"); p != "" {
			var err error
			if n, err = strconv.Atoi(p); err != nil {
				WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid page"})
				return
			}
		}

		if n < 1 || n > len(pages) {
			WriteJSON(w, http.StatusNotFound, map[string]any{"error": "page not found"})
			return
		}

		WriteJSON(w, http.StatusOK, pages[n-1])
	})
}

// Requests returns every request received so far, in order.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)

	return out
}

// Count returns how many requests the stub has received.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// Last returns the most recent request.
func (s *Server) Last() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return RecordedRequest{}
	}

	return s.requests[len(s.requests)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.tokenStatus != 0 {
		WriteJSON(w, s.tokenStatus, s.tokenBody)
		return
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(s.publicKey+":"+s.privateKey))
	if r.Header.Get("Authorization") != want {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"token": s.token})
}

// authenticate rejects requests whose X-Auth-Token does not match the
// signature of the request path, query and body under the session token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verify {
			body, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(strings.NewReader(string(body)))

			if !s.validToken(r, body) {
				WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid X-Auth-Token"})
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) validToken(r *http.Request, body []byte) bool {
	got := r.Header.Get("X-Auth-Token")

	// The signed endpoint may or may not carry the query string, depending on
	// whether it came from a cursor; accept either. The path is signed as sent.
	path := r.URL.EscapedPath()
	candidates := []string{path}
	if r.URL.RawQuery != "" {
		candidates = append(candidates, path+"?"+r.URL.RawQuery)
		if prefix, _, ok := strings.Cut(r.URL.RawQuery, "&"); ok {
			candidates = append(candidates, path+"?"+prefix)
		}
	}

	for _, endpoint := range candidates {
		if hmac.Equal([]byte(got), []byte(ExpectedToken(s.token, s.publicKey, endpoint, body))) {
			return true
		}
	}

	return false
}

// ExpectedToken computes the X-Auth-Token the server expects for endpoint and
// body under token.
func ExpectedToken(token, publicKey, endpoint string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write([]byte(endpoint + "|"))
	mac.Write(body)

	return base64.StdEncoding.EncodeToString([]byte(publicKey + ":" + hex.EncodeToString(mac.Sum(nil))))
}

// WriteJSON writes body as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
