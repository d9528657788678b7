package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtobufCodec implements Protocol Buffers encoding.
// Plain maps are carried as google.protobuf.Struct.
type ProtobufCodec struct{}

func (c *ProtobufCodec) Encode(v any) ([]byte, error) {
	switch msg := v.(type) {
	case proto.Message:
		return proto.Marshal(msg)
	case map[string]any:
		s, err := structpb.NewStruct(msg)
		if err != nil {
			return nil, fmt.Errorf("convert map to struct: %w", err)
		}
		return proto.Marshal(s)
	default:
		return nil, fmt.Errorf("value must implement proto.Message interface, got %T", v)
	}
}

func (c *ProtobufCodec) Name() string {
	return NameProtobuf
}
