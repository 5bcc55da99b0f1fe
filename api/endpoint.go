package api

import (
	"fmt"
	"regexp"
	"strings"
)

// TokenPath is the endpoint used to exchange credentials for a signing key.
const TokenPath = "/token"

// PingPath is the availability endpoint.
const PingPath = "/ping"

// idPattern matches one path segment made of characters that travel
// unchanged on the wire: unreserved and sub-delimiter characters, ':', '@'
// and percent-escapes. Whitespace, '#' and control characters are excluded,
// so the signed path is exactly the requested path.
const idPattern = `(?:[A-Za-z0-9._~!$&'()*+,;=:@-]|%[0-9A-Fa-f]{2})+`

// endpointPatterns is the complete set of addressable endpoints.
// {id} is an idPattern segment, {int} a signed integer literal.
var endpointPatterns = []string{
	`/token`,
	`/ping`,
	`/account`,
	`/deployments`,
	`/deployments/` + idPattern,
	`/datasets`,
	`/datasets/[-+]?[0-9]+`,
	`/datasets/[-+]?[0-9]+/fields`,
	`/datasets/[-+]?[0-9]+/feedback`,
	`/datasets/[-+]?[0-9]+/feedback/` + idPattern,
	`/reports`,
	`/reports/[-+]?[0-9]+`,
	`/reports/[-+]?[0-9]+/fields`,
	`/reports/[-+]?[0-9]+/feedback`,
	`/reports/[-+]?[0-9]+/feedback/` + idPattern,
}

var endpointRegexp = regexp.MustCompile(`(?i)^(?:` + strings.Join(endpointPatterns, "|") + `)$`)

// Endpoint is a path that has been checked against the endpoint grammar.
// The zero value is not a valid endpoint; use ParseEndpoint.
type Endpoint struct {
	Path     string
	RawQuery string
}

// ParseEndpoint validates path against the endpoint grammar. A query suffix,
// as carried by pagination cursors, is kept in RawQuery and not matched.
func ParseEndpoint(path string) (Endpoint, error) {
	p, q, _ := strings.Cut(path, "?")

	if !strings.HasPrefix(p, "/") {
		return Endpoint{}, &ValidationError{
			Code:  CodeEndpointNotSupported,
			Field: "endpoint",
			Value: path,
			Err:   fmt.Errorf("endpoint must start with '/'"),
		}
	}

	if !endpointRegexp.MatchString(p) {
		return Endpoint{}, &ValidationError{
			Code:  CodeEndpointNotSupported,
			Field: "endpoint",
			Value: path,
			Err:   fmt.Errorf("resource %q is not supported", p),
		}
	}

	if strings.ContainsAny(q, "# \t\r\n") {
		return Endpoint{}, &ValidationError{
			Code:  CodeEndpointNotSupported,
			Field: "endpoint",
			Value: path,
			Err:   fmt.Errorf("query %q is not sent verbatim", q),
		}
	}

	return Endpoint{Path: p, RawQuery: q}, nil
}

// MustParseEndpoint is like ParseEndpoint but panics on error. It is meant for
// package-level constants.
func MustParseEndpoint(path string) Endpoint {
	e, err := ParseEndpoint(path)
	if err != nil {
		panic(err)
	}

	return e
}

// String returns the endpoint as it is signed and addressed, including the
// query suffix when present.
func (e Endpoint) String() string {
	if e.RawQuery == "" {
		return e.Path
	}

	return e.Path + "?" + e.RawQuery
}

// IsZero reports whether e was never validated.
func (e Endpoint) IsZero() bool {
	return e.Path == ""
}
