package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mopinion/mopinion-go/types"
)

// Sign derives the X-Auth-Token for one request:
//
//	digest = hex(HMAC-SHA256(sessionToken, endpoint + "|" + body))
//	token  = base64(publicKey + ":" + digest)
//
// It is a pure function; body must be the exact bytes sent on the wire.
func Sign(sessionToken, publicKey string, endpoint Endpoint, body []byte) string {
	mac := hmac.New(sha256.New, []byte(sessionToken))
	mac.Write([]byte(endpoint.String()))
	mac.Write([]byte("|"))
	mac.Write(body)
	digest := hex.EncodeToString(mac.Sum(nil))

	return base64.StdEncoding.EncodeToString([]byte(publicKey + ":" + digest))
}

// basicAuthorization returns the Authorization header value for the token
// exchange.
func basicAuthorization(creds types.Credentials) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds.PublicKey+":"+creds.PrivateKey))
}

// encodeBody renders a request body as compact JSON. Nil bodies and bodies
// that encode to null, {} or [] are treated as absent and yield nil.
// Byte slices and json.RawMessage are compacted but otherwise sent as given.
func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	var (
		data []byte
		err  error
	)

	switch b := body.(type) {
	case []byte:
		data, err = compact(b)
	case json.RawMessage:
		data, err = compact(b)
	default:
		data, err = json.Marshal(body)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	switch string(data) {
	case "", "null", "{}", "[]":
		return nil, nil
	}

	return data, nil
}

func compact(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
