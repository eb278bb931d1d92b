package model

import (
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// UnspentOutputSet is the working set of UTXO records a block validation
// reads and mutates. It remembers the state each record had when it was
// loaded so that the changes can be saved together with their rewind data.
type UnspentOutputSet struct {
	records   map[externalapi.DomainTransactionID]*externalapi.UnspentOutputs
	originals map[externalapi.DomainTransactionID]*externalapi.UnspentOutputs
	modified  map[externalapi.DomainTransactionID]struct{}
	order     []externalapi.DomainTransactionID
}

// NewUnspentOutputSet creates an empty UnspentOutputSet.
func NewUnspentOutputSet() *UnspentOutputSet {
	return &UnspentOutputSet{
		records:   make(map[externalapi.DomainTransactionID]*externalapi.UnspentOutputs),
		originals: make(map[externalapi.DomainTransactionID]*externalapi.UnspentOutputs),
		modified:  make(map[externalapi.DomainTransactionID]struct{}),
	}
}

// SetCoins loads records fetched from a coin view. records[i] belongs to
// transactionIDs[i] and is nil when the view does not have it.
func (s *UnspentOutputSet) SetCoins(transactionIDs []*externalapi.DomainTransactionID,
	records []*externalapi.UnspentOutputs) {

	for i, transactionID := range transactionIDs {
		if _, ok := s.records[*transactionID]; ok {
			continue
		}
		s.order = append(s.order, *transactionID)
		record := records[i]
		if record == nil {
			s.records[*transactionID] = nil
			continue
		}
		s.records[*transactionID] = record.Clone()
		s.originals[*transactionID] = record.Clone()
	}
}

// IsLoaded returns whether the transaction was looked up already.
func (s *UnspentOutputSet) IsLoaded(transactionID *externalapi.DomainTransactionID) bool {
	_, ok := s.records[*transactionID]
	return ok
}

// AccessCoins returns the record of the transaction, or nil.
func (s *UnspentOutputSet) AccessCoins(transactionID *externalapi.DomainTransactionID) *externalapi.UnspentOutputs {
	return s.records[*transactionID]
}

// GetOutput returns the unspent output referenced by outpoint together with
// its record.
func (s *UnspentOutputSet) GetOutput(outpoint *externalapi.DomainOutpoint) (
	*externalapi.DomainTransactionOutput, *externalapi.UnspentOutputs, bool) {

	record := s.records[outpoint.TransactionID]
	if record == nil || !record.IsAvailable(outpoint.Index) {
		return nil, nil, false
	}
	return record.Outputs[outpoint.Index], record, true
}

// Spend marks the referenced output as spent and returns it.
func (s *UnspentOutputSet) Spend(outpoint *externalapi.DomainOutpoint) (*externalapi.DomainTransactionOutput, bool) {
	record := s.records[outpoint.TransactionID]
	if record == nil {
		return nil, false
	}
	output, ok := record.Spend(outpoint.Index)
	if !ok {
		return nil, false
	}
	s.modified[outpoint.TransactionID] = struct{}{}
	return output, true
}

// AddTransaction adds the outputs of a transaction connected at height.
func (s *UnspentOutputSet) AddTransaction(tx *externalapi.DomainTransaction,
	transactionID *externalapi.DomainTransactionID, height uint64) {

	if _, ok := s.records[*transactionID]; !ok {
		s.order = append(s.order, *transactionID)
	}
	s.records[*transactionID] = externalapi.NewUnspentOutputs(tx, transactionID, height)
	s.modified[*transactionID] = struct{}{}
}

// WasSpentFromExisting returns whether the outpoint belongs to a record that
// existed before the current block.
func (s *UnspentOutputSet) WasSpentFromExisting(outpoint *externalapi.DomainOutpoint) bool {
	original, ok := s.originals[outpoint.TransactionID]
	return ok && original.IsAvailable(outpoint.Index)
}

// ModifiedOutputs returns clones of the records changed since they were loaded,
// in load order.
func (s *UnspentOutputSet) ModifiedOutputs() []*externalapi.UnspentOutputs {
	modified := make([]*externalapi.UnspentOutputs, 0, len(s.modified))
	for _, transactionID := range s.order {
		if _, ok := s.modified[transactionID]; ok {
			modified = append(modified, s.records[transactionID].Clone())
		}
	}
	return modified
}

// OriginalOutputs returns the loaded state of the changed records that
// existed before, in load order.
func (s *UnspentOutputSet) OriginalOutputs() []*externalapi.UnspentOutputs {
	originals := make([]*externalapi.UnspentOutputs, 0, len(s.modified))
	for _, transactionID := range s.order {
		if _, ok := s.modified[transactionID]; !ok {
			continue
		}
		if original, ok := s.originals[transactionID]; ok {
			originals = append(originals, original.Clone())
		}
	}
	return originals
}
