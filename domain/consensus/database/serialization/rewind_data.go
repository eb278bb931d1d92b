package serialization

import (
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	rewindDataHeightField              protowire.Number = 1
	rewindDataPreviousBlockHashField   protowire.Number = 2
	rewindDataTransactionToRemoveField  protowire.Number = 3
	rewindDataOutputsToRestoreField    protowire.Number = 4
)

// SerializeRewindData serializes the rewind data of a block.
func SerializeRewindData(rewindData *externalapi.RewindData) []byte {
	var b []byte
	b = appendVarintField(b, rewindDataHeightField, rewindData.Height)
	b = appendBytesField(b, rewindDataPreviousBlockHashField, rewindData.PreviousBlockHash.ByteSlice())
	for i := range rewindData.TransactionsToRemove {
		b = appendMessageField(b, rewindDataTransactionToRemoveField, rewindData.TransactionsToRemove[i].ByteSlice())
	}
	for _, unspentOutputs := range rewindData.OutputsToRestore {
		b = appendMessageField(b, rewindDataOutputsToRestoreField, appendUnspentOutputs(nil, unspentOutputs))
	}
	return b
}

// DeserializeRewindData deserializes rewind data serialized by
// SerializeRewindData.
func DeserializeRewindData(b []byte) (*externalapi.RewindData, error) {
	rewindData := &externalapi.RewindData{}
	err := consumeMessage(b, func(number protowire.Number, wireType protowire.Type, b []byte) (int, error) {
		var value []byte
		switch number {
		case rewindDataHeightField:
			var height uint64
			n, err := consumeVarint(wireType, b, &height)
			rewindData.Height = height
			return n, err
		case rewindDataPreviousBlockHashField:
			n, err := consumeBytes(wireType, b, &value)
			if err != nil {
				return 0, err
			}
			hash, err := externalapi.NewDomainHashFromByteSlice(value)
			if err != nil {
				return 0, err
			}
			rewindData.PreviousBlockHash = *hash
			return n, nil
		case rewindDataTransactionToRemoveField:
			n, err := consumeBytes(wireType, b, &value)
			if err != nil {
				return 0, err
			}
			transactionID, err := externalapi.NewDomainTransactionIDFromByteSlice(value)
			if err != nil {
				return 0, err
			}
			rewindData.TransactionsToRemove = append(rewindData.TransactionsToRemove, *transactionID)
			return n, nil
		case rewindDataOutputsToRestoreField:
			n, err := consumeBytes(wireType, b, &value)
			if err != nil {
				return 0, err
			}
			unspentOutputs, err := DeserializeUnspentOutputs(value)
			if err != nil {
				return 0, err
			}
			rewindData.OutputsToRestore = append(rewindData.OutputsToRestore, unspentOutputs)
			return n, nil
		default:
			return -1, nil
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "malformed rewind data")
	}
	return rewindData, nil
}
