package serialization

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// errNoEncodingForType signifies that there's no encoding for the given type.
var errNoEncodingForType = errors.New("there's no encoding for this type")

// WriteElement writes the little endian representation of element to w.
// Byte slices are prefixed with their length.
func WriteElement(w io.Writer, element interface{}) error {
	var err error
	switch e := element.(type) {
	case int32:
		err = writeUint32(w, uint32(e))
	case uint32:
		err = writeUint32(w, e)
	case uint64:
		err = writeUint64(w, e)
	case bool:
		value := uint8(0x00)
		if e {
			value = 0x01
		}
		_, err = w.Write([]byte{value})
	case externalapi.DomainHash:
		_, err = w.Write(e.ByteSlice())
	case *externalapi.DomainHash:
		_, err = w.Write(e.ByteSlice())
	case externalapi.DomainTransactionID:
		_, err = w.Write(e.ByteSlice())
	case *externalapi.DomainTransactionID:
		_, err = w.Write(e.ByteSlice())
	case []byte:
		err = writeUint64(w, uint64(len(e)))
		if err == nil {
			_, err = w.Write(e)
		}
	default:
		return errors.Wrapf(errNoEncodingForType, "couldn't find a way to write type %T", element)
	}
	return errors.WithStack(err)
}

// WriteElements writes multiple items to w. It is equivalent to multiple
// calls to WriteElement.
func WriteElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := WriteElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeUint32(w io.Writer, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	_, err := w.Write(buf[:])
	return err
}
