package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// Protobuf encodes proto.Message values. Unmarshal accepts either a message
// (decoded in place) or a pointer to a message pointer, which is allocated.
type Protobuf struct{}

func (Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: protobuf cannot marshal %T", v)
	}
	return proto.Marshal(m)
}

func (Protobuf) Unmarshal(b []byte, dst any) error {
	if m, ok := dst.(proto.Message); ok {
		return proto.Unmarshal(b, m)
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Pointer {
		return fmt.Errorf("codec: protobuf cannot unmarshal into %T", dst)
	}
	msg := reflect.New(rv.Elem().Type().Elem())
	m, ok := msg.Interface().(proto.Message)
	if !ok {
		return fmt.Errorf("codec: protobuf cannot unmarshal into %T", dst)
	}
	if err := proto.Unmarshal(b, m); err != nil {
		return err
	}
	rv.Elem().Set(msg)
	return nil
}
