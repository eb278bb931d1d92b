package externalapi

import (
	"fmt"
)

// UnspentOutputs is the UTXO record of one transaction. A nil slot in
// Outputs marks a spent output. Slots only go from present to spent, except
// when a rewind restores an earlier record.
type UnspentOutputs struct {
	TransactionID DomainTransactionID
	Height        uint64
	IsCoinbase    bool
	IsCoinstake   bool
	Time          uint32
	Outputs       []*DomainTransactionOutput
}

// NewUnspentOutputs creates the UTXO record of a transaction connected at the
// given height.
func NewUnspentOutputs(tx *DomainTransaction, transactionID *DomainTransactionID, height uint64) *UnspentOutputs {
	outputs := make([]*DomainTransactionOutput, len(tx.Outputs))
	for i, output := range tx.Outputs {
		outputs[i] = output.Clone()
	}
	return &UnspentOutputs{
		TransactionID: *transactionID,
		Height:        height,
		IsCoinbase:    tx.IsCoinBase(),
		IsCoinstake:   tx.IsCoinStake(),
		Time:          tx.Time,
		Outputs:       outputs,
	}
}

// IsAvailable returns whether the output at index exists and is unspent.
func (uo *UnspentOutputs) IsAvailable(index uint32) bool {
	return index < uint32(len(uo.Outputs)) && uo.Outputs[index] != nil
}

// Spend marks the output at index as spent and returns it. It returns false
// if the output does not exist or was already spent.
func (uo *UnspentOutputs) Spend(index uint32) (*DomainTransactionOutput, bool) {
	if !uo.IsAvailable(index) {
		return nil, false
	}
	output := uo.Outputs[index]
	uo.Outputs[index] = nil
	return output, true
}

// UnspentCount returns the number of unspent outputs.
func (uo *UnspentOutputs) UnspentCount() int {
	count := 0
	for _, output := range uo.Outputs {
		if output != nil {
			count++
		}
	}
	return count
}

// IsPrunable returns whether every output was spent, in which case the
// record can be removed from the UTXO set.
func (uo *UnspentOutputs) IsPrunable() bool {
	return uo.UnspentCount() == 0
}

// Clone returns a deep clone of UnspentOutputs
func (uo *UnspentOutputs) Clone() *UnspentOutputs {
	if uo == nil {
		return nil
	}
	outputsClone := make([]*DomainTransactionOutput, len(uo.Outputs))
	for i, output := range uo.Outputs {
		outputsClone[i] = output.Clone()
	}
	clone := *uo
	clone.Outputs = outputsClone
	return &clone
}

// Equal returns whether uo equals to other
func (uo *UnspentOutputs) Equal(other *UnspentOutputs) bool {
	if uo == nil || other == nil {
		return uo == other
	}
	if uo.TransactionID != other.TransactionID ||
		uo.Height != other.Height ||
		uo.IsCoinbase != other.IsCoinbase ||
		uo.IsCoinstake != other.IsCoinstake ||
		uo.Time != other.Time ||
		len(uo.Outputs) != len(other.Outputs) {
		return false
	}
	for i, output := range uo.Outputs {
		if !output.Equal(other.Outputs[i]) {
			return false
		}
	}
	return true
}

func (uo *UnspentOutputs) String() string {
	return fmt.Sprintf("UnspentOutputs{TransactionID: %s, Height: %d, Unspent: %d/%d}",
		uo.TransactionID, uo.Height, uo.UnspentCount(), len(uo.Outputs))
}

// RewindData is recorded when a block is connected and holds what is needed
// to disconnect it: the records as they were before the block spent from
// them, the transactions the block created, and the tip to return to.
type RewindData struct {
	Height               uint64
	PreviousBlockHash    DomainHash
	TransactionsToRemove []DomainTransactionID
	OutputsToRestore     []*UnspentOutputs
}

// Clone returns a deep clone of RewindData
func (rd *RewindData) Clone() *RewindData {
	if rd == nil {
		return nil
	}
	transactionsClone := make([]DomainTransactionID, len(rd.TransactionsToRemove))
	copy(transactionsClone, rd.TransactionsToRemove)
	outputsClone := make([]*UnspentOutputs, len(rd.OutputsToRestore))
	for i, outputs := range rd.OutputsToRestore {
		outputsClone[i] = outputs.Clone()
	}
	return &RewindData{
		Height:               rd.Height,
		PreviousBlockHash:    rd.PreviousBlockHash,
		TransactionsToRemove: transactionsClone,
		OutputsToRestore:     outputsClone,
	}
}

// Equal returns whether rd equals to other
func (rd *RewindData) Equal(other *RewindData) bool {
	if rd == nil || other == nil {
		return rd == other
	}
	if rd.Height != other.Height || rd.PreviousBlockHash != other.PreviousBlockHash ||
		len(rd.TransactionsToRemove) != len(other.TransactionsToRemove) ||
		len(rd.OutputsToRestore) != len(other.OutputsToRestore) {
		return false
	}
	for i, transactionID := range rd.TransactionsToRemove {
		if transactionID != other.TransactionsToRemove[i] {
			return false
		}
	}
	for i, outputs := range rd.OutputsToRestore {
		if !outputs.Equal(other.OutputsToRestore[i]) {
			return false
		}
	}
	return true
}
