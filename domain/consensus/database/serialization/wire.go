// Package serialization converts consensus records to and from the
// protobuf wire format they are stored in.
package serialization

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// fieldHandler consumes the value of one field from b and returns the number
// of bytes consumed. It returns a negative number for fields it does not
// know, which are then skipped.
type fieldHandler func(number protowire.Number, wireType protowire.Type, b []byte) (int, error)

func consumeMessage(b []byte, handle fieldHandler) error {
	for len(b) > 0 {
		number, wireType, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.WithStack(protowire.ParseError(n))
		}
		b = b[n:]

		n, err := handle(number, wireType, b)
		if err != nil {
			return errors.Wrapf(err, "field %d", number)
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(number, wireType, b)
			if n < 0 {
				return errors.WithStack(protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

func expectType(wireType protowire.Type, expected protowire.Type) error {
	if wireType != expected {
		return errors.Errorf("unexpected wire type %d, expected %d", wireType, expected)
	}
	return nil
}

func consumeVarint(wireType protowire.Type, b []byte, value *uint64) (int, error) {
	err := expectType(wireType, protowire.VarintType)
	if err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, errors.WithStack(protowire.ParseError(n))
	}
	*value = v
	return n, nil
}

func consumeBytes(wireType protowire.Type, b []byte, value *[]byte) (int, error) {
	err := expectType(wireType, protowire.BytesType)
	if err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, errors.WithStack(protowire.ParseError(n))
	}
	*value = v
	return n, nil
}

func appendVarintField(b []byte, number protowire.Number, value uint64) []byte {
	if value == 0 {
		return b
	}
	b = protowire.AppendTag(b, number, protowire.VarintType)
	return protowire.AppendVarint(b, value)
}

func appendBytesField(b []byte, number protowire.Number, value []byte) []byte {
	if len(value) == 0 {
		return b
	}
	b = protowire.AppendTag(b, number, protowire.BytesType)
	return protowire.AppendBytes(b, value)
}

// appendMessageField appends an embedded message even when it is empty,
// since repeated entries are positional.
func appendMessageField(b []byte, number protowire.Number, message []byte) []byte {
	b = protowire.AppendTag(b, number, protowire.BytesType)
	return protowire.AppendBytes(b, message)
}
