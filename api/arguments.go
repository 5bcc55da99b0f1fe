package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mopinion/mopinion-go/types"
)

// RequestArguments are the per-call settings sent alongside every signed
// request. Build them with NewRequestArguments so defaults and validation
// are applied.
type RequestArguments struct {
	Method             types.Method             `json:"method"`
	Version            types.Version            `json:"version"`
	Verbosity          types.Verbosity          `json:"verbosity"`
	ContentNegotiation types.ContentNegotiation `json:"content_negotiation"`
}

// DefaultRequestArguments returns the arguments used when a caller supplies
// none: GET, latest version, normal verbosity, JSON.
func DefaultRequestArguments() RequestArguments {
	return RequestArguments{
		Method:             types.MethodGet,
		Version:            types.LatestVersion,
		Verbosity:          types.VerbosityNormal,
		ContentNegotiation: types.ContentJSON,
	}
}

// NewRequestArguments validates the four request settings. Empty values take
// their defaults. Method, verbosity and content negotiation are matched
// case-insensitively; the version must match exactly.
func NewRequestArguments(method, version, verbosity, contentNegotiation string) (RequestArguments, error) {
	args := RequestArguments{
		Method:             types.Method(method),
		Version:            types.Version(version),
		Verbosity:          types.Verbosity(verbosity),
		ContentNegotiation: types.ContentNegotiation(contentNegotiation),
	}.withDefaults(DefaultRequestArguments()).normalize()

	if err := args.Validate(); err != nil {
		return RequestArguments{}, err
	}

	return args, nil
}

// withDefaults fills the empty fields of a from d.
func (a RequestArguments) withDefaults(d RequestArguments) RequestArguments {
	if a.Method == "" {
		a.Method = d.Method
	}
	if a.Version == "" {
		a.Version = d.Version
	}
	if a.Verbosity == "" {
		a.Verbosity = d.Verbosity
	}
	if a.ContentNegotiation == "" {
		a.ContentNegotiation = d.ContentNegotiation
	}

	return a
}

// normalize lower-cases the case-insensitive fields.
func (a RequestArguments) normalize() RequestArguments {
	a.Method = types.Method(strings.ToLower(string(a.Method)))
	a.Verbosity = types.Verbosity(strings.ToLower(string(a.Verbosity)))
	a.ContentNegotiation = types.ContentNegotiation(strings.ToLower(string(a.ContentNegotiation)))

	return a
}

// Validate checks every field against its enumerated set, ignoring case where
// the field is case-insensitive. All violations are reported together.
func (a RequestArguments) Validate() error {
	a = a.normalize()

	err := validation.ValidateStruct(&a,
		validation.Field(&a.Method, validation.Required, validation.In(anySlice(types.Methods)...)),
		validation.Field(&a.Version, validation.Required, validation.In(anySlice(types.Versions)...)),
		validation.Field(&a.Verbosity, validation.Required, validation.In(anySlice(types.Verbosities)...)),
		validation.Field(&a.ContentNegotiation, validation.Required, validation.In(anySlice(types.ContentNegotiations)...)),
	)
	if err == nil {
		return nil
	}

	vErr := &ValidationError{Code: CodeInvalidArgument, Err: err}

	// Name the offending field when there is exactly one.
	if errs, ok := err.(validation.Errors); ok && len(errs) == 1 {
		for field := range errs {
			vErr.Field = field
			vErr.Value = a.value(field)
		}
	}

	return vErr
}

func (a RequestArguments) value(field string) string {
	switch field {
	case "method":
		return string(a.Method)
	case "version":
		return string(a.Version)
	case "verbosity":
		return string(a.Verbosity)
	case "content_negotiation":
		return string(a.ContentNegotiation)
	}

	return ""
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}

	return out
}
