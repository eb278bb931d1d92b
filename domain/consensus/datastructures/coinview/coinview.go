// Package coinview holds the helpers shared by the layers of a coin view
// stack.
package coinview

import (
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// FindLayer walks the stack from view inwards and returns the first layer of
// the given kind.
func FindLayer(view model.CoinViewLayer, kind model.CoinViewLayerKind) (model.CoinViewLayer, bool) {
	for layer := view; layer != nil; layer = layer.Inner() {
		if layer.Kind() == kind {
			return layer, true
		}
	}
	return nil, false
}

// BuildRewindData builds the rewind data of a block connected at height on
// top of previousBlockHash. original holds the pre-block state of the
// records the block spent from. Modified records without an original were
// created by the block and are removed on rewind.
func BuildRewindData(height uint64, previousBlockHash *externalapi.DomainHash,
	modified []*externalapi.UnspentOutputs, original []*externalapi.UnspentOutputs) *externalapi.RewindData {

	originals := make(map[externalapi.DomainTransactionID]struct{}, len(original))
	rewindData := &externalapi.RewindData{
		Height:            height,
		PreviousBlockHash: *previousBlockHash,
		OutputsToRestore:  make([]*externalapi.UnspentOutputs, 0, len(original)),
	}
	for _, unspentOutputs := range original {
		originals[unspentOutputs.TransactionID] = struct{}{}
		rewindData.OutputsToRestore = append(rewindData.OutputsToRestore, unspentOutputs.Clone())
	}
	for _, unspentOutputs := range modified {
		if _, ok := originals[unspentOutputs.TransactionID]; !ok {
			rewindData.TransactionsToRemove = append(rewindData.TransactionsToRemove, unspentOutputs.TransactionID)
		}
	}
	return rewindData
}
