package types

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Link is a pagination cursor taken from the _meta envelope. The API sends
// either an endpoint string or false; both false and null decode to "".
type Link string

// Present reports whether the link points somewhere.
func (l Link) Present() bool {
	return l != ""
}

// UnmarshalJSON accepts a string, false or null.
func (l *Link) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	return l.set(v)
}

// UnmarshalYAML accepts a string, false or null.
func (l *Link) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}

	return l.set(v)
}

func (l *Link) set(v any) error {
	switch val := v.(type) {
	case nil:
		*l = ""
	case bool:
		if val {
			return fmt.Errorf("link: unexpected value true")
		}
		*l = ""
	case string:
		*l = Link(val)
	default:
		return fmt.Errorf("link: unexpected type %T", v)
	}

	return nil
}

// Meta is the _meta envelope returned at normal and full verbosity.
type Meta struct {
	Code     int    `json:"code,omitempty" yaml:"code,omitempty"`
	HasMore  bool   `json:"has_more" yaml:"has_more"`
	Next     Link   `json:"next" yaml:"next"`
	Previous Link   `json:"previous" yaml:"previous"`
	Total    int    `json:"total,omitempty" yaml:"total,omitempty"`
	Count    int    `json:"count,omitempty" yaml:"count,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Envelope is the part of every response body the SDK itself reads.
type Envelope struct {
	Meta *Meta `json:"_meta,omitempty" yaml:"_meta,omitempty"`
}

// PingResponse is the body of GET /ping.
type PingResponse struct {
	Code     int    `json:"code" yaml:"code"`
	Response string `json:"response" yaml:"response"`
	Version  string `json:"version" yaml:"version"`
}
