package binaryserialization

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const heightLength = 8

// SerializeHeight serializes a block height as big-endian so that keys
// holding heights are sorted by height.
func SerializeHeight(height uint64) []byte {
	heightBytes := make([]byte, heightLength)
	binary.BigEndian.PutUint64(heightBytes, height)
	return heightBytes
}

// DeserializeHeight deserializes a height serialized by SerializeHeight
func DeserializeHeight(heightBytes []byte) (uint64, error) {
	if len(heightBytes) != heightLength {
		return 0, errors.Errorf("invalid height length. Want: %d, got: %d", heightLength, len(heightBytes))
	}
	return binary.BigEndian.Uint64(heightBytes), nil
}
