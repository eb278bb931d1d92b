// Package utxorules holds the full phase rules that load the coins a block
// references, check its spends against them and save the result.
package utxorules

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/ruleerrors"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
	"github.com/stakecore/stakecore/domain/consensus/utils/txscript"
)

// RewindIndexWriter is the part of the rewind index the save rule updates.
type RewindIndexWriter interface {
	Save(entries map[externalapi.DomainOutpoint]uint64)
	Flush(tipHeight uint64)
}

func blockToValidate(vc *model.ValidationContext) (*externalapi.DomainBlock, error) {
	if vc.BlockToValidate == nil {
		return nil, errors.Errorf("no block to validate for header %s", vc.ChainedHeaderToValidate.Hash)
	}
	return vc.BlockToValidate, nil
}

// LoadCoinviewRule fetches the records the block spends from, and the
// records of the block's own transactions, into the context's
// UnspentOutputSet.
type LoadCoinviewRule struct {
	coinView model.CoinView
}

// NewLoadCoinviewRule instantiates a new LoadCoinviewRule
func NewLoadCoinviewRule(coinView model.CoinView) *LoadCoinviewRule {
	return &LoadCoinviewRule{coinView: coinView}
}

// Name implements model.Rule
func (r *LoadCoinviewRule) Name() string { return "LoadCoinviewRule" }

// Phases implements model.Rule
func (r *LoadCoinviewRule) Phases() model.Phases { return model.PhaseFull }

// CanSkipValidation implements model.Rule
func (r *LoadCoinviewRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *LoadCoinviewRule) Run(ctx context.Context, vc *model.ValidationContext) error {
	block, err := blockToValidate(vc)
	if err != nil {
		return err
	}

	seen := make(map[externalapi.DomainTransactionID]struct{})
	var transactionIDs []*externalapi.DomainTransactionID
	add := func(transactionID *externalapi.DomainTransactionID) {
		if _, ok := seen[*transactionID]; ok {
			return
		}
		seen[*transactionID] = struct{}{}
		transactionIDs = append(transactionIDs, transactionID)
	}
	for _, tx := range block.Transactions {
		add(consensushashing.TransactionID(tx))
		if tx.IsCoinBase() {
			continue
		}
		for _, input := range tx.Inputs {
			transactionID := input.PreviousOutpoint.TransactionID
			add(&transactionID)
		}
	}

	response, err := r.coinView.FetchCoins(ctx, transactionIDs)
	if err != nil {
		return err
	}
	vc.UnspentOutputSet = model.NewUnspentOutputSet()
	vc.UnspentOutputSet.SetCoins(transactionIDs, response.UnspentOutputs)
	vc.CoinViewTipHash = response.BlockHash
	log.Tracef("Loaded %d records for block %s at coin view tip %s",
		len(transactionIDs), vc.ChainedHeaderToValidate.Hash, response.BlockHash)
	return nil
}

// CheckUTXOsRule checks every spend of the block against the loaded records
// and applies the block to the context's UnspentOutputSet.
type CheckUTXOsRule struct {
	coinbaseMaturity uint64
	maxMoney         uint64
	hook             model.TransactionValidationHook
}

// NewCheckUTXOsRule instantiates a new CheckUTXOsRule. hook may be nil.
func NewCheckUTXOsRule(params *chaincfg.Params, hook model.TransactionValidationHook) *CheckUTXOsRule {
	return &CheckUTXOsRule{
		coinbaseMaturity: params.CoinbaseMaturity,
		maxMoney:         params.MaxMoney,
		hook:             hook,
	}
}

// Name implements model.Rule
func (r *CheckUTXOsRule) Name() string { return "CheckUTXOsRule" }

// Phases implements model.Rule
func (r *CheckUTXOsRule) Phases() model.Phases { return model.PhaseFull }

// CanSkipValidation implements model.Rule. Connecting the block can not be
// skipped. Signature checks are skipped internally.
func (r *CheckUTXOsRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *CheckUTXOsRule) Run(ctx context.Context, vc *model.ValidationContext) error {
	block, err := blockToValidate(vc)
	if err != nil {
		return err
	}
	if vc.UnspentOutputSet == nil {
		return errors.Errorf("the coins of block %s were not loaded", vc.ChainedHeaderToValidate.Hash)
	}

	height := vc.ChainedHeaderToValidate.Height
	for _, tx := range block.Transactions {
		transactionID := consensushashing.TransactionID(tx)
		existing := vc.UnspentOutputSet.AccessCoins(transactionID)
		if existing != nil && !existing.IsPrunable() {
			return errors.Wrapf(ruleerrors.ErrOverwriteTx, "transaction %s overwrites unspent outputs",
				transactionID)
		}

		if !tx.IsCoinBase() {
			err := r.checkAndSpendInputs(ctx, vc, tx, transactionID, height)
			if err != nil {
				return err
			}
		}
		vc.UnspentOutputSet.AddTransaction(tx, transactionID, height)
	}
	return nil
}

func (r *CheckUTXOsRule) checkAndSpendInputs(ctx context.Context, vc *model.ValidationContext,
	tx *externalapi.DomainTransaction, transactionID *externalapi.DomainTransactionID, height uint64) error {

	var missingOutpoints []*externalapi.DomainOutpoint
	var totalIn uint64
	for i, input := range tx.Inputs {
		outpoint := input.PreviousOutpoint
		output, record, ok := vc.UnspentOutputSet.GetOutput(&outpoint)
		if !ok {
			missingOutpoints = append(missingOutpoints, &outpoint)
			continue
		}
		if (record.IsCoinbase || record.IsCoinstake) &&
			(record.Height > height || height-record.Height < r.coinbaseMaturity) {
			return errors.Wrapf(ruleerrors.ErrImmatureSpend, "transaction %s input %d tried to spend "+
				"output from height %d at height %d before the required maturity of %d blocks",
				transactionID, i, record.Height, height, r.coinbaseMaturity)
		}
		totalIn += output.Value
		if totalIn < output.Value || totalIn > r.maxMoney {
			return errors.Wrapf(ruleerrors.ErrBadTxOutValue, "total value of all transaction inputs "+
				"of %s exceeds the max allowed value of %d", transactionID, r.maxMoney)
		}
		if !vc.SkipValidation {
			err := txscript.VerifyInputSignature(tx, i, output)
			if err != nil {
				return errors.Wrapf(ruleerrors.ErrScriptValidation, "transaction %s input %d: %s",
					transactionID, i, err)
			}
		}
	}
	if len(missingOutpoints) > 0 {
		return ruleerrors.NewErrMissingTxOut(missingOutpoints)
	}

	// The coinstake output exceeds its input by the stake reward.
	if !tx.IsCoinStake() {
		var totalOut uint64
		for _, output := range tx.Outputs {
			totalOut += output.Value
		}
		if totalOut > totalIn {
			return errors.Wrapf(ruleerrors.ErrSpendTooHigh, "total value of all transaction outputs of %s "+
				"is %d which is higher than the amount of %d spent", transactionID, totalOut, totalIn)
		}
	}

	if r.hook != nil {
		err := r.hook.ValidateTransaction(ctx, tx, transactionID, vc.UnspentOutputSet)
		if err != nil {
			return err
		}
	}

	for _, input := range tx.Inputs {
		outpoint := input.PreviousOutpoint
		if vc.UnspentOutputSet.WasSpentFromExisting(&outpoint) {
			vc.RewindIndexEntries[outpoint] = height
		}
		vc.UnspentOutputSet.Spend(&outpoint)
	}
	return nil
}

// SaveCoinviewRule saves the block's changes to the coin view on top of the
// consensus tip and records the spent outputs in the rewind index.
type SaveCoinviewRule struct {
	coinView    model.CoinView
	rewindIndex RewindIndexWriter
}

// NewSaveCoinviewRule instantiates a new SaveCoinviewRule
func NewSaveCoinviewRule(coinView model.CoinView, rewindIndex RewindIndexWriter) *SaveCoinviewRule {
	return &SaveCoinviewRule{coinView: coinView, rewindIndex: rewindIndex}
}

// Name implements model.Rule
func (r *SaveCoinviewRule) Name() string { return "SaveCoinviewRule" }

// Phases implements model.Rule
func (r *SaveCoinviewRule) Phases() model.Phases { return model.PhaseFull }

// CanSkipValidation implements model.Rule
func (r *SaveCoinviewRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *SaveCoinviewRule) Run(ctx context.Context, vc *model.ValidationContext) error {
	if vc.UnspentOutputSet == nil {
		return errors.Errorf("the coins of block %s were not loaded", vc.ChainedHeaderToValidate.Hash)
	}
	if vc.ConsensusTip == nil {
		return errors.Errorf("no consensus tip to connect block %s to", vc.ChainedHeaderToValidate.Hash)
	}

	height := vc.ChainedHeaderToValidate.Height
	err := r.coinView.SaveChanges(ctx, vc.UnspentOutputSet.ModifiedOutputs(), vc.UnspentOutputSet.OriginalOutputs(),
		vc.ConsensusTip.Hash, vc.ChainedHeaderToValidate.Hash, height, nil)
	if err != nil {
		return err
	}
	r.rewindIndex.Save(vc.RewindIndexEntries)
	r.rewindIndex.Flush(height)
	log.Debugf("Saved the coins of block %s at height %d", vc.ChainedHeaderToValidate.Hash, height)
	return nil
}
