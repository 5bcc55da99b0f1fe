package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mopinion/mopinion-go/types"
)

func TestNewRequestArgumentsDefaults(t *testing.T) {
	args, err := NewRequestArguments("", "", "", "")
	require.NoError(t, err)

	assert.Equal(t, types.MethodGet, args.Method)
	assert.Equal(t, types.Version2_0_0, args.Version)
	assert.Equal(t, types.VerbosityNormal, args.Verbosity)
	assert.Equal(t, types.ContentJSON, args.ContentNegotiation)
	assert.Equal(t, DefaultRequestArguments(), args)
}

func TestNewRequestArgumentsNormalisesCase(t *testing.T) {
	args, err := NewRequestArguments("POST", "1.18.14", "FULL", "Application/X-YAML")
	require.NoError(t, err)

	assert.Equal(t, types.MethodPost, args.Method)
	assert.Equal(t, "POST", args.Method.HTTP())
	assert.Equal(t, types.Version1_18_14, args.Version)
	assert.Equal(t, types.VerbosityFull, args.Verbosity)
	assert.Equal(t, types.ContentYAML, args.ContentNegotiation)
}

func TestNewRequestArgumentsRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		version   string
		verbosity string
		content   string
		field     string
	}{
		{name: "method", method: "patch", field: "method"},
		{name: "version", version: "3.0.0", field: "version"},
		{name: "verbosity", verbosity: "loud", field: "verbosity"},
		{name: "content negotiation", content: "text/html", field: "content_negotiation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequestArguments(tt.method, tt.version, tt.verbosity, tt.content)
			require.Error(t, err)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, CodeInvalidArgument, vErr.Code)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestNewRequestArgumentsReportsEveryViolation(t *testing.T) {
	_, err := NewRequestArguments("patch", "0.1", "loud", "text/html")
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, vErr.Field)

	for _, field := range []string{"method", "version", "verbosity", "content_negotiation"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestRequestArgumentsValidateIgnoresCase(t *testing.T) {
	args := RequestArguments{
		Method:             "GET",
		Version:            types.Version2_0_0,
		Verbosity:          "Full",
		ContentNegotiation: "APPLICATION/JSON",
	}
	assert.NoError(t, args.Validate())

	args.Version = "2.0.0-RC"
	assert.True(t, IsValidationError(args.Validate(), CodeInvalidArgument))

	assert.True(t, IsValidationError(RequestArguments{}.Validate(), CodeInvalidArgument), "empty fields stay invalid")
}
