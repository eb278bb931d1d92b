package serialization

import (
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	tipHashField   protowire.Number = 1
	tipHeightField protowire.Number = 2
)

// SerializeTip serializes the tip of a coin view.
func SerializeTip(hash *externalapi.DomainHash, height uint64) []byte {
	var b []byte
	b = appendBytesField(b, tipHashField, hash.ByteSlice())
	return appendVarintField(b, tipHeightField, height)
}

// DeserializeTip deserializes a tip serialized by SerializeTip.
func DeserializeTip(b []byte) (hash *externalapi.DomainHash, height uint64, err error) {
	err = consumeMessage(b, func(number protowire.Number, wireType protowire.Type, b []byte) (int, error) {
		switch number {
		case tipHashField:
			var hashBytes []byte
			n, err := consumeBytes(wireType, b, &hashBytes)
			if err != nil {
				return 0, err
			}
			hash, err = externalapi.NewDomainHashFromByteSlice(hashBytes)
			return n, err
		case tipHeightField:
			return consumeVarint(wireType, b, &height)
		default:
			return -1, nil
		}
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "malformed tip")
	}
	if hash == nil {
		hash = externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{})
	}
	return hash, height, nil
}
