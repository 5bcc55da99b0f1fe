// Package types defines common types used across the SDK.
package types

import (
	"fmt"
	"strings"
)

// Credentials holds the API key pair issued for a Mopinion account.
type Credentials struct {
	PublicKey  string
	PrivateKey string
}

// Validate reports whether both keys are present.
func (c Credentials) Validate() error {
	if c.PublicKey == "" {
		return fmt.Errorf("public key is required")
	}

	if c.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}

	return nil
}

// Masked returns the public key with everything but the last four characters
// hidden, suitable for log messages.
func (c Credentials) Masked() string {
	if len(c.PublicKey) <= 4 {
		return strings.Repeat("*", len(c.PublicKey))
	}

	return strings.Repeat("*", len(c.PublicKey)-4) + c.PublicKey[len(c.PublicKey)-4:]
}

// Method enumerates the HTTP methods the API accepts.
type Method string

const (
	MethodGet     Method = "get"
	MethodPost    Method = "post"
	MethodPut     Method = "put"
	MethodDelete  Method = "delete"
	MethodOptions Method = "options"
)

// Methods lists every allowed method.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodOptions}

// HTTP returns the method in the upper-case form used on the wire.
func (m Method) HTTP() string {
	return strings.ToUpper(string(m))
}

// Version enumerates the known API versions.
type Version string

const (
	Version1_18_14 Version = "1.18.14"
	Version2_0_0   Version = "2.0.0"
)

// Versions lists the known API versions, oldest first.
var Versions = []Version{Version1_18_14, Version2_0_0}

// LatestVersion is the version used when none is requested.
const LatestVersion = Version2_0_0

// Verbosity controls how much of the response envelope the API returns.
type Verbosity string

const (
	// VerbosityQuiet omits the _meta envelope.
	VerbosityQuiet  Verbosity = "quiet"
	VerbosityNormal Verbosity = "normal"
	VerbosityFull   Verbosity = "full"
)

// Verbosities lists every verbosity level.
var Verbosities = []Verbosity{VerbosityQuiet, VerbosityNormal, VerbosityFull}

// Paginates reports whether responses at this level carry the _meta envelope
// needed to follow pagination cursors.
func (v Verbosity) Paginates() bool {
	return v == VerbosityNormal || v == VerbosityFull
}

// ContentNegotiation enumerates the response media types.
type ContentNegotiation string

const (
	ContentJSON ContentNegotiation = "application/json"
	ContentYAML ContentNegotiation = "application/x-yaml"
)

// ContentNegotiations lists every supported media type.
var ContentNegotiations = []ContentNegotiation{ContentJSON, ContentYAML}
