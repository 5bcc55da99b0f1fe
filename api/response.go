package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/mopinion/mopinion-go/types"
)

// Response is a successful (2xx) API response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Endpoint is the endpoint the response was requested from.
	Endpoint Endpoint
}

// ContentType returns the negotiated media type of the body. Bodies without a
// recognised Content-Type are treated as JSON.
func (r *Response) ContentType() types.ContentNegotiation {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return types.ContentJSON
	}

	switch mediaType {
	case string(types.ContentYAML), "application/yaml", "text/yaml", "text/x-yaml":
		return types.ContentYAML
	}

	return types.ContentJSON
}

// Decode unmarshals the body into v using the decoder matching ContentType.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}

	var err error
	if r.ContentType() == types.ContentYAML {
		err = yaml.Unmarshal(r.Body, v)
	} else {
		err = json.Unmarshal(r.Body, v)
	}

	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Map decodes the body into a generic map.
func (r *Response) Map() (map[string]any, error) {
	m := make(map[string]any)
	if err := r.Decode(&m); err != nil {
		return nil, err
	}

	return m, nil
}

// Meta returns the _meta envelope, or nil when the body carries none
// (as with quiet verbosity).
func (r *Response) Meta() (*types.Meta, error) {
	var env types.Envelope
	if err := r.Decode(&env); err != nil {
		return nil, err
	}

	return env.Meta, nil
}
