// Package rpc serves the todo and account operations as Connect unary
// procedures. Messages are plain structs carried by a JSON codec.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec marshals plain Go structs. It replaces Connect's protobuf-only
// "json" codec on both handlers and clients.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// WithJSON is the option clients of this package must pass to connect.NewClient.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
