package serialization

import (
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	unspentOutputsTransactionIDField protowire.Number = 1
	unspentOutputsHeightField        protowire.Number = 2
	unspentOutputsIsCoinbaseField    protowire.Number = 3
	unspentOutputsIsCoinstakeField   protowire.Number = 4
	unspentOutputsTimeField          protowire.Number = 5
	unspentOutputsOutputField        protowire.Number = 6

	outputSpentField           protowire.Number = 1
	outputValueField           protowire.Number = 2
	outputScriptPublicKeyField protowire.Number = 3
)

// SerializeUnspentOutputs serializes a UTXO record.
func SerializeUnspentOutputs(unspentOutputs *externalapi.UnspentOutputs) []byte {
	return appendUnspentOutputs(nil, unspentOutputs)
}

func appendUnspentOutputs(b []byte, unspentOutputs *externalapi.UnspentOutputs) []byte {
	b = appendBytesField(b, unspentOutputsTransactionIDField, unspentOutputs.TransactionID.ByteSlice())
	b = appendVarintField(b, unspentOutputsHeightField, unspentOutputs.Height)
	b = appendVarintField(b, unspentOutputsIsCoinbaseField, protowire.EncodeBool(unspentOutputs.IsCoinbase))
	b = appendVarintField(b, unspentOutputsIsCoinstakeField, protowire.EncodeBool(unspentOutputs.IsCoinstake))
	b = appendVarintField(b, unspentOutputsTimeField, uint64(unspentOutputs.Time))
	for _, output := range unspentOutputs.Outputs {
		b = appendMessageField(b, unspentOutputsOutputField, serializeOutput(output))
	}
	return b
}

func serializeOutput(output *externalapi.DomainTransactionOutput) []byte {
	if output == nil {
		return appendVarintField(nil, outputSpentField, protowire.EncodeBool(true))
	}
	var b []byte
	b = appendVarintField(b, outputValueField, output.Value)
	return appendBytesField(b, outputScriptPublicKeyField, output.ScriptPublicKey)
}

// DeserializeUnspentOutputs deserializes a UTXO record serialized by
// SerializeUnspentOutputs.
func DeserializeUnspentOutputs(b []byte) (*externalapi.UnspentOutputs, error) {
	unspentOutputs := &externalapi.UnspentOutputs{}
	hasTransactionID := false
	err := consumeMessage(b, func(number protowire.Number, wireType protowire.Type, b []byte) (int, error) {
		var value uint64
		switch number {
		case unspentOutputsTransactionIDField:
			var transactionIDBytes []byte
			n, err := consumeBytes(wireType, b, &transactionIDBytes)
			if err != nil {
				return 0, err
			}
			transactionID, err := externalapi.NewDomainTransactionIDFromByteSlice(transactionIDBytes)
			if err != nil {
				return 0, err
			}
			unspentOutputs.TransactionID = *transactionID
			hasTransactionID = true
			return n, nil
		case unspentOutputsHeightField:
			n, err := consumeVarint(wireType, b, &value)
			unspentOutputs.Height = value
			return n, err
		case unspentOutputsIsCoinbaseField:
			n, err := consumeVarint(wireType, b, &value)
			unspentOutputs.IsCoinbase = protowire.DecodeBool(value)
			return n, err
		case unspentOutputsIsCoinstakeField:
			n, err := consumeVarint(wireType, b, &value)
			unspentOutputs.IsCoinstake = protowire.DecodeBool(value)
			return n, err
		case unspentOutputsTimeField:
			n, err := consumeVarint(wireType, b, &value)
			unspentOutputs.Time = uint32(value)
			return n, err
		case unspentOutputsOutputField:
			var outputBytes []byte
			n, err := consumeBytes(wireType, b, &outputBytes)
			if err != nil {
				return 0, err
			}
			output, err := deserializeOutput(outputBytes)
			if err != nil {
				return 0, err
			}
			unspentOutputs.Outputs = append(unspentOutputs.Outputs, output)
			return n, nil
		default:
			return -1, nil
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "malformed unspent outputs")
	}
	if !hasTransactionID {
		return nil, errors.New("malformed unspent outputs: missing transaction ID")
	}
	return unspentOutputs, nil
}

func deserializeOutput(b []byte) (*externalapi.DomainTransactionOutput, error) {
	output := &externalapi.DomainTransactionOutput{}
	spent := false
	err := consumeMessage(b, func(number protowire.Number, wireType protowire.Type, b []byte) (int, error) {
		var value uint64
		switch number {
		case outputSpentField:
			n, err := consumeVarint(wireType, b, &value)
			spent = protowire.DecodeBool(value)
			return n, err
		case outputValueField:
			n, err := consumeVarint(wireType, b, &value)
			output.Value = value
			return n, err
		case outputScriptPublicKeyField:
			var script []byte
			n, err := consumeBytes(wireType, b, &script)
			output.ScriptPublicKey = append([]byte(nil), script...)
			return n, err
		default:
			return -1, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if spent {
		return nil, nil
	}
	return output, nil
}
