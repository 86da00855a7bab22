// Package bridge implements the native-messaging side of the host: a single
// reader loop that owns the inbound stream, a correlator that serializes
// HTTP-originated exchanges with the peer, and a dispatcher for in-band
// control messages.
package bridge

import (
	"encoding/json"
	"errors"
)

var (
	// ErrExchangeTimeout is returned by Submit when the peer did not answer
	// within the configured bound.
	ErrExchangeTimeout = errors.New("bridge exchange timed out")
	// ErrPeerDisconnected is returned by Submit when the peer closed the
	// channel before or while the exchange was in flight.
	ErrPeerDisconnected = errors.New("peer disconnected")
)

// Request is the envelope forwarded to the peer for one HTTP request.
type Request struct {
	Type    string            `json:"type"`
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// NewRequest builds an http_request envelope.
func NewRequest(method, path string, headers map[string]string, body string) *Request {
	if headers == nil {
		headers = map[string]string{}
	}
	return &Request{
		Type:    "http_request",
		Method:  method,
		Path:    path,
		Headers: headers,
		Body:    body,
	}
}

// Response is the envelope produced by the peer for one exchange. Body is
// kept raw so the HTTP layer can relay arbitrary JSON untouched.
type Response struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}
