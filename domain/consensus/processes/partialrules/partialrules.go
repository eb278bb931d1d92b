// Package partialrules holds the rules of the partial phase, which check
// the block content without the coin view.
package partialrules

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/ruleerrors"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
)

// New returns the partial rules in execution order.
func New(params *chaincfg.Params) []model.Rule {
	return []model.Rule{
		&CoinbasePositionRule{},
		&TransactionSanityRule{maxMoney: params.MaxMoney},
		&DuplicateTransactionsRule{},
	}
}

func blockToValidate(vc *model.ValidationContext) (*externalapi.DomainBlock, error) {
	if vc.BlockToValidate == nil {
		return nil, errors.Errorf("no block to validate for header %s", vc.ChainedHeaderToValidate.Hash)
	}
	return vc.BlockToValidate, nil
}

// CoinbasePositionRule ensures the first transaction is the only coinbase
// and that a coinstake can only be the second transaction.
type CoinbasePositionRule struct{}

// Name implements model.Rule
func (r *CoinbasePositionRule) Name() string { return "CoinbasePositionRule" }

// Phases implements model.Rule
func (r *CoinbasePositionRule) Phases() model.Phases { return model.PhasePartial }

// CanSkipValidation implements model.Rule
func (r *CoinbasePositionRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *CoinbasePositionRule) Run(_ context.Context, vc *model.ValidationContext) error {
	block, err := blockToValidate(vc)
	if err != nil {
		return err
	}
	if len(block.Transactions) == 0 || !block.Transactions[0].IsCoinBase() {
		return errors.Wrapf(ruleerrors.ErrFirstTxNotCoinbase, "first transaction in block is not a coinbase")
	}
	for i, tx := range block.Transactions[1:] {
		index := i + 1
		if tx.IsCoinBase() {
			return errors.Wrapf(ruleerrors.ErrMultipleCoinbases, "block contains second coinbase at "+
				"index %d", index)
		}
		if tx.IsCoinStake() && index != 1 {
			return errors.Wrapf(ruleerrors.ErrCoinstakeWrongPosition, "coinstake at index %d", index)
		}
	}
	return nil
}

// TransactionSanityRule checks every transaction on its own.
type TransactionSanityRule struct {
	maxMoney uint64
}

// Name implements model.Rule
func (r *TransactionSanityRule) Name() string { return "TransactionSanityRule" }

// Phases implements model.Rule
func (r *TransactionSanityRule) Phases() model.Phases { return model.PhasePartial }

// CanSkipValidation implements model.Rule
func (r *TransactionSanityRule) CanSkipValidation() bool { return true }

// Run implements model.Rule
func (r *TransactionSanityRule) Run(_ context.Context, vc *model.ValidationContext) error {
	block, err := blockToValidate(vc)
	if err != nil {
		return err
	}
	for _, tx := range block.Transactions {
		err := r.checkTransaction(tx)
		if err != nil {
			return errors.Wrapf(err, "transaction %s", consensushashing.TransactionID(tx))
		}
	}
	return nil
}

func (r *TransactionSanityRule) checkTransaction(tx *externalapi.DomainTransaction) error {
	if len(tx.Inputs) == 0 {
		return errors.Wrapf(ruleerrors.ErrNoTxInputs, "transaction has no inputs")
	}
	if len(tx.Outputs) == 0 {
		return errors.Wrapf(ruleerrors.ErrNoTxOutputs, "transaction has no outputs")
	}

	var totalValue uint64
	for i, output := range tx.Outputs {
		if output.Value > r.maxMoney {
			return errors.Wrapf(ruleerrors.ErrBadTxOutValue, "output %d value of %d is higher than the "+
				"max allowed value of %d", i, output.Value, r.maxMoney)
		}
		totalValue += output.Value
		if totalValue < output.Value || totalValue > r.maxMoney {
			return errors.Wrapf(ruleerrors.ErrBadTxOutValue, "total value of all transaction outputs "+
				"exceeds the max allowed value of %d", r.maxMoney)
		}
	}

	existingOutpoints := make(map[externalapi.DomainOutpoint]struct{}, len(tx.Inputs))
	isCoinBase := tx.IsCoinBase()
	for i, input := range tx.Inputs {
		if _, ok := existingOutpoints[input.PreviousOutpoint]; ok {
			return errors.Wrapf(ruleerrors.ErrDuplicateTxInputs, "transaction contains duplicate inputs")
		}
		existingOutpoints[input.PreviousOutpoint] = struct{}{}
		if !isCoinBase && input.PreviousOutpoint.IsNull() {
			return errors.Wrapf(ruleerrors.ErrBadTxInput, "input %d references a null outpoint", i)
		}
	}
	return nil
}

// DuplicateTransactionsRule rejects blocks containing the same transaction
// twice.
type DuplicateTransactionsRule struct{}

// Name implements model.Rule
func (r *DuplicateTransactionsRule) Name() string { return "DuplicateTransactionsRule" }

// Phases implements model.Rule
func (r *DuplicateTransactionsRule) Phases() model.Phases { return model.PhasePartial }

// CanSkipValidation implements model.Rule
func (r *DuplicateTransactionsRule) CanSkipValidation() bool { return true }

// Run implements model.Rule
func (r *DuplicateTransactionsRule) Run(_ context.Context, vc *model.ValidationContext) error {
	block, err := blockToValidate(vc)
	if err != nil {
		return err
	}
	existingTxIDs := make(map[externalapi.DomainTransactionID]struct{}, len(block.Transactions))
	for _, transactionID := range consensushashing.TransactionIDs(block.Transactions) {
		if _, ok := existingTxIDs[*transactionID]; ok {
			return errors.Wrapf(ruleerrors.ErrDuplicateTx, "block contains duplicate "+
				"transaction %s", transactionID)
		}
		existingTxIDs[*transactionID] = struct{}{}
	}
	return nil
}
