// Package apiconnect wires the tripsplit API messages into Connect handlers and clients.
//
// Messages are plain Go structs, so every handler and client is built with the JSON
// codec defined here in place of Connect's protobuf codecs.
package apiconnect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is the codec name negotiated in the Content-Type (application/json).
const CodecName = "json"

// JSONCodec marshals API messages with encoding/json.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return CodecName }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
}
