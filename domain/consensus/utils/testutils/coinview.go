package testutils

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/database/serialization"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
)

// HashFromUint returns a hash whose first bytes encode n.
func HashFromUint(n uint64) *externalapi.DomainHash {
	var hashBytes [externalapi.DomainHashSize]byte
	for i := 0; i < 8; i++ {
		hashBytes[i] = byte(n >> (8 * i))
	}
	hashBytes[externalapi.DomainHashSize-1] = 0xee
	return externalapi.NewDomainHashFromByteArray(&hashBytes)
}

// NewCoinbase returns a coinbase paying the given values. seed makes the
// transaction ID unique.
func NewCoinbase(seed uint32, values ...uint64) *externalapi.DomainTransaction {
	return &externalapi.DomainTransaction{
		Version: 1,
		Time:    seed,
		Inputs: []*externalapi.DomainTransactionInput{{
			PreviousOutpoint: externalapi.DomainOutpoint{Index: externalapi.NullOutpointIndex},
			SignatureScript:  []byte{0x04, byte(seed), byte(seed >> 8), byte(seed >> 16), byte(seed >> 24)},
		}},
		Outputs: newOutputs(values),
	}
}

// NewSpend returns a transaction spending the given outpoints into outputs of
// the given values.
func NewSpend(outpoints []*externalapi.DomainOutpoint, values ...uint64) *externalapi.DomainTransaction {
	inputs := make([]*externalapi.DomainTransactionInput, len(outpoints))
	for i, outpoint := range outpoints {
		inputs[i] = &externalapi.DomainTransactionInput{PreviousOutpoint: *outpoint}
	}
	return &externalapi.DomainTransaction{
		Version: 1,
		Inputs:  inputs,
		Outputs: newOutputs(values),
	}
}

func newOutputs(values []uint64) []*externalapi.DomainTransactionOutput {
	outputs := make([]*externalapi.DomainTransactionOutput, len(values))
	for i, value := range values {
		outputs[i] = &externalapi.DomainTransactionOutput{Value: value, ScriptPublicKey: []byte{0x51}}
	}
	return outputs
}

// ConnectTransactions applies transactions to view as the block blockHash at
// height on top of the view's current tip. Inputs other than coinbase inputs
// must spend existing outputs.
func ConnectTransactions(ctx context.Context, view model.CoinView, blockHash *externalapi.DomainHash,
	height uint64, transactions []*externalapi.DomainTransaction) error {

	tipHash, err := view.TipHash(ctx)
	if err != nil {
		return err
	}

	var referenced []*externalapi.DomainTransactionID
	for _, tx := range transactions {
		if tx.IsCoinBase() {
			continue
		}
		for _, input := range tx.Inputs {
			transactionID := input.PreviousOutpoint.TransactionID
			referenced = append(referenced, &transactionID)
		}
	}
	response, err := view.FetchCoins(ctx, referenced)
	if err != nil {
		return err
	}

	unspentOutputSet := model.NewUnspentOutputSet()
	unspentOutputSet.SetCoins(referenced, response.UnspentOutputs)
	for _, tx := range transactions {
		if !tx.IsCoinBase() {
			for _, input := range tx.Inputs {
				_, ok := unspentOutputSet.Spend(&input.PreviousOutpoint)
				if !ok {
					return errors.Errorf("outpoint %s is not spendable", input.PreviousOutpoint)
				}
			}
		}
		unspentOutputSet.AddTransaction(tx, consensushashing.TransactionID(tx), height)
	}

	return view.SaveChanges(ctx, unspentOutputSet.ModifiedOutputs(), unspentOutputSet.OriginalOutputs(),
		tipHash, blockHash, height, nil)
}

// DumpCoins returns the serialized records of the UTXO set in iteration
// order.
func DumpCoins(ctx context.Context, coins model.CoinIterator) ([][]byte, error) {
	var dump [][]byte
	err := coins.ForEachCoin(ctx, func(unspentOutputs *externalapi.UnspentOutputs) error {
		dump = append(dump, serialization.SerializeUnspentOutputs(unspentOutputs))
		return nil
	})
	return dump, err
}
