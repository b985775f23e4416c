package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendTagString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendTagBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendTagFixed64(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, v)
}

func consumeString(b []byte, typ protowire.Type) (string, []byte, error) {
	if typ != protowire.BytesType {
		return "", nil, fmt.Errorf("wire: expected bytes-typed field for string, got %v", typ)
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", nil, fmt.Errorf("wire: consuming string: %w", protowire.ParseError(n))
	}
	return v, b[n:], nil
}

func consumeBytesField(b []byte, typ protowire.Type) ([]byte, []byte, error) {
	if typ != protowire.BytesType {
		return nil, nil, fmt.Errorf("wire: expected bytes-typed field, got %v", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, nil, fmt.Errorf("wire: consuming bytes: %w", protowire.ParseError(n))
	}
	return v, b[n:], nil
}

func consumeFixed64(b []byte, typ protowire.Type) (uint64, []byte, error) {
	if typ != protowire.Fixed64Type {
		return 0, nil, fmt.Errorf("wire: expected fixed64-typed field, got %v", typ)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, nil, fmt.Errorf("wire: consuming fixed64: %w", protowire.ParseError(n))
	}
	return v, b[n:], nil
}

func consumeVarint(b []byte, typ protowire.Type) (uint64, []byte, error) {
	if typ != protowire.VarintType {
		return 0, nil, fmt.Errorf("wire: expected varint-typed field, got %v", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, nil, fmt.Errorf("wire: consuming varint: %w", protowire.ParseError(n))
	}
	return v, b[n:], nil
}

// skipField discards a field's payload regardless of its wire type, used
// when decoding a message that may contain fields from a newer schema
// version than this codec knows about.
func skipField(b []byte, typ protowire.Type) ([]byte, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return nil, fmt.Errorf("wire: skipping field: %w", protowire.ParseError(n))
	}
	return b[n:], nil
}
