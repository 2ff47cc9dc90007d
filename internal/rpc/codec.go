// Package rpc defines the lemon.v1.InsightService wire contract: request and
// response messages, procedure names, a JSON codec for connect, and the
// handler and client constructors.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec marshals plain Go messages as JSON. It replaces connect's protojson
// codec under the same "json" name, so Connect clients and curl can talk to
// the service with Content-Type application/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
