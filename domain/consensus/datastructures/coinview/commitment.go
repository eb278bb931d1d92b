package coinview

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/kaspanet/go-muhash"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// Commitment returns a MuHash commitment to every unspent output of the
// iterated UTXO set. It does not depend on the iteration order, so equal
// UTXO sets have equal commitments whatever layer holds them.
func Commitment(ctx context.Context, coins model.CoinIterator) (*externalapi.DomainHash, error) {
	multiset := muhash.NewMuHash()
	err := coins.ForEachCoin(ctx, func(unspentOutputs *externalapi.UnspentOutputs) error {
		for index, output := range unspentOutputs.Outputs {
			if output != nil {
				multiset.Add(serializeCommittedOutput(unspentOutputs, uint32(index), output))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	finalized := multiset.Finalize()
	return externalapi.NewDomainHashFromByteArray(finalized.AsArray()), nil
}

func serializeCommittedOutput(unspentOutputs *externalapi.UnspentOutputs, index uint32,
	output *externalapi.DomainTransactionOutput) []byte {

	var buffer bytes.Buffer
	buffer.Write(unspentOutputs.TransactionID.ByteSlice())
	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], index)
	buffer.Write(scratch[:4])
	binary.LittleEndian.PutUint64(scratch[:], unspentOutputs.Height)
	buffer.Write(scratch[:])
	var flags byte
	if unspentOutputs.IsCoinbase {
		flags |= 1
	}
	if unspentOutputs.IsCoinstake {
		flags |= 2
	}
	buffer.WriteByte(flags)
	binary.LittleEndian.PutUint64(scratch[:], output.Value)
	buffer.Write(scratch[:])
	buffer.Write(output.ScriptPublicKey)
	return buffer.Bytes()
}
