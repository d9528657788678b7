// Package codec encodes access log records.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedCodec = errors.New("unsupported codec")
)

// Codec defines the interface for encoding records
type Codec interface {
	// Encode encodes a value to bytes
	Encode(v any) ([]byte, error)

	// Name returns the codec name
	Name() string
}

// Codec names accepted by GetCodec
const (
	NameJSON     = "json"
	NameProtobuf = "proto"
)

// GetCodec returns a codec by name
func GetCodec(name string) (Codec, error) {
	switch name {
	case NameJSON:
		return &JSONCodec{}, nil
	case NameProtobuf, "protobuf":
		return &ProtobufCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, name)
	}
}

// JSONCodec implements JSON encoding
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Name() string {
	return NameJSON
}
