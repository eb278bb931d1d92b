// Package posrules validates the coinstake of proof-of-stake blocks and
// computes the stake modifier of every block.
package posrules

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/ruleerrors"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
	"github.com/stakecore/stakecore/domain/consensus/utils/hashes"
	"github.com/stakecore/stakecore/domain/consensus/utils/math"
	"github.com/stakecore/stakecore/domain/consensus/utils/merkle"
	"github.com/stakecore/stakecore/domain/consensus/utils/provenheader"
	"github.com/stakecore/stakecore/domain/consensus/utils/txscript"
)

// RewindIndexReader is the part of the rewind index the coinstake rule reads.
type RewindIndexReader interface {
	Get(outpoint *externalapi.DomainOutpoint) (uint64, bool)
}

// CoinReader is the part of the coin view the coinstake rule reads stakes
// from.
type CoinReader interface {
	FetchCoins(ctx context.Context, transactionIDs []*externalapi.DomainTransactionID) (*model.FetchCoinsResponse, error)
	RewindData(ctx context.Context, height uint64) (*externalapi.RewindData, error)
}

// CoinstakeRule validates the coinstake of proof-of-stake blocks, the
// proof of work of proof-of-work blocks, and attaches the next stake
// modifier to the validated header.
type CoinstakeRule struct {
	params      *chaincfg.Params
	coinView    CoinReader
	rewindIndex RewindIndexReader
	headerTree  model.HeaderTree
}

// NewCoinstakeRule instantiates a new CoinstakeRule
func NewCoinstakeRule(params *chaincfg.Params, coinView CoinReader, rewindIndex RewindIndexReader,
	headerTree model.HeaderTree) *CoinstakeRule {

	return &CoinstakeRule{
		params:      params,
		coinView:    coinView,
		rewindIndex: rewindIndex,
		headerTree:  headerTree,
	}
}

// Name implements model.Rule
func (r *CoinstakeRule) Name() string { return "CoinstakeRule" }

// Phases implements model.Rule
func (r *CoinstakeRule) Phases() model.Phases { return model.PhaseFull }

// CanSkipValidation implements model.Rule. The stake modifier must be
// computed for every block.
func (r *CoinstakeRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *CoinstakeRule) Run(ctx context.Context, vc *model.ValidationContext) error {
	block := vc.BlockToValidate
	if block == nil {
		return errors.Errorf("no block to validate for header %s", vc.ChainedHeaderToValidate.Hash)
	}
	chainedHeader := vc.ChainedHeaderToValidate
	previousModifier := previousStakeModifier(chainedHeader)

	coinstake, err := r.checkCandidate(chainedHeader, block)
	if coinstake == nil {
		attachProofOfWorkModifier(chainedHeader, previousModifier)
		if err != nil {
			return err
		}
		return r.validateProofOfWork(chainedHeader, previousModifier)
	}

	provenHeader, err := r.provenHeader(chainedHeader, block)
	if err != nil {
		return err
	}
	attachProofOfStakeModifier(chainedHeader, provenHeader, previousModifier)
	return r.validateProofOfStake(ctx, vc, provenHeader, previousModifier)
}

func previousStakeModifier(chainedHeader *model.ChainedHeader) *externalapi.DomainHash {
	if chainedHeader.Previous == nil {
		return nil
	}
	return chainedHeader.Previous.StakeModifier()
}

// attachProofOfWorkModifier attaches the modifier of a proof-of-work block,
// which is derived from the block hash. It is attached whether or not the
// block turns out valid.
func attachProofOfWorkModifier(chainedHeader *model.ChainedHeader, previousModifier *externalapi.DomainHash) {
	provenHeader := &externalapi.ProvenBlockHeader{Header: chainedHeader.Header}
	if previousModifier != nil {
		provenHeader.StakeModifier = NextStakeModifier(previousModifier, chainedHeader.Hash)
	}
	chainedHeader.ProvenHeader = provenHeader
}

// attachProofOfStakeModifier attaches provenHeader with the modifier of a
// proof-of-stake block, which is derived from the stake's transaction ID.
func attachProofOfStakeModifier(chainedHeader *model.ChainedHeader, provenHeader *externalapi.ProvenBlockHeader,
	previousModifier *externalapi.DomainHash) {

	if previousModifier != nil {
		source := externalapi.DomainHash(provenHeader.Coinstake.Inputs[0].PreviousOutpoint.TransactionID)
		provenHeader.StakeModifier = NextStakeModifier(previousModifier, &source)
	}
	chainedHeader.ProvenHeader = provenHeader
}

// checkCandidate returns the coinstake of the block, or nil for a
// proof-of-work block.
func (r *CoinstakeRule) checkCandidate(chainedHeader *model.ChainedHeader,
	block *externalapi.DomainBlock) (*externalapi.DomainTransaction, error) {

	if len(block.Transactions) == 0 {
		return nil, errors.Wrapf(ruleerrors.ErrEmptyCoinstake, "block %s has no transactions", chainedHeader.Hash)
	}
	if block.IsProofOfStake() {
		return block.Transactions[provenheader.CoinstakeIndex], nil
	}
	if chainedHeader.Height <= r.params.LastPOWBlock {
		return nil, nil
	}
	if len(block.Transactions) <= provenheader.CoinstakeIndex {
		return nil, errors.Wrapf(ruleerrors.ErrEmptyCoinstake, "block %s at height %d has no coinstake",
			chainedHeader.Hash, chainedHeader.Height)
	}
	return nil, errors.Wrapf(ruleerrors.ErrNonCoinstake, "transaction %d of block %s at height %d is not "+
		"a coinstake and proof of work ended at height %d", provenheader.CoinstakeIndex, chainedHeader.Hash,
		chainedHeader.Height, r.params.LastPOWBlock)
}

// validateProofOfWork checks the header hash against its target. The
// modifier was already attached by the caller.
func (r *CoinstakeRule) validateProofOfWork(chainedHeader *model.ChainedHeader,
	previousModifier *externalapi.DomainHash) error {

	header := chainedHeader.Header
	target := math.CompactToBig(header.Bits)
	if target.Sign() <= 0 || target.Cmp(r.params.PowMax) > 0 {
		return errors.Wrapf(ruleerrors.ErrProofOfWorkTooHigh, "block target difficulty of %064x is out of "+
			"range", target)
	}
	hashNum := hashes.ToBig(chainedHeader.Hash)
	if hashNum.Cmp(target) > 0 {
		return errors.Wrapf(ruleerrors.ErrHighHash, "block hash of %064x is higher than expected max of %064x",
			hashNum, target)
	}
	if previousModifier == nil {
		return errors.Wrapf(ruleerrors.ErrMissingPreviousStakeModifier, "block %s", chainedHeader.Hash)
	}
	return nil
}

// provenHeader returns the proven header received with the header, or
// builds it from the block.
func (r *CoinstakeRule) provenHeader(chainedHeader *model.ChainedHeader,
	block *externalapi.DomainBlock) (*externalapi.ProvenBlockHeader, error) {

	if chainedHeader.ProvenHeader != nil && chainedHeader.ProvenHeader.Coinstake != nil {
		return chainedHeader.ProvenHeader, nil
	}
	return provenheader.FromBlock(block)
}

func (r *CoinstakeRule) validateProofOfStake(ctx context.Context, vc *model.ValidationContext,
	provenHeader *externalapi.ProvenBlockHeader, previousModifier *externalapi.DomainHash) error {

	chainedHeader := vc.ChainedHeaderToValidate
	header := chainedHeader.Header
	coinstake := provenHeader.Coinstake
	stakeOutpoint := &coinstake.Inputs[0].PreviousOutpoint

	if coinstake.Time != header.Time {
		return errors.Wrapf(ruleerrors.ErrProofOfStakeTimeViolation, "coinstake time %d differs from the "+
			"header time %d", coinstake.Time, header.Time)
	}
	if header.Time&r.params.StakeTimestampMask != 0 {
		return errors.Wrapf(ruleerrors.ErrStakeTimeViolation, "header time %d is not aligned to mask %#x",
			header.Time, r.params.StakeTimestampMask)
	}

	stakeOutput, stakeRecord, err := r.findStake(ctx, vc, stakeOutpoint)
	if err != nil {
		return err
	}

	if stakeRecord.Height > chainedHeader.Height ||
		chainedHeader.Height-stakeRecord.Height < r.params.CoinstakeMinConfirmation {
		return errors.Wrapf(ruleerrors.ErrInvalidStakeDepth, "stake from height %d staked at height %d, "+
			"%d confirmations are required", stakeRecord.Height, chainedHeader.Height,
			r.params.CoinstakeMinConfirmation)
	}

	err = txscript.VerifyInputSignature(coinstake, 0, stakeOutput)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrCoinstakeVerifySignatureFailed, "%s", err)
	}

	if previousModifier == nil {
		return errors.Wrapf(ruleerrors.ErrMissingPreviousStakeModifier, "block %s builds on %s",
			chainedHeader.Hash, chainedHeader.Previous)
	}
	kernel, ok := CheckStakeKernel(previousModifier, stakeOutpoint, coinstake.Time, header.Bits, stakeOutput.Value)
	if !ok {
		return errors.Wrapf(ruleerrors.ErrStakeHashInvalidTarget, "kernel hash %s is above the target of "+
			"%064x", kernel, StakeTarget(header.Bits, stakeOutput.Value))
	}

	coinstakeID := consensushashing.TransactionID(coinstake)
	leaf := externalapi.DomainHash(*coinstakeID)
	if !merkle.VerifyMerkleBranch(&leaf, provenHeader.MerkleProof, &header.HashMerkleRoot) {
		return errors.Wrapf(ruleerrors.ErrBadCoinstakeMerkleProof, "coinstake %s is not proven to be in "+
			"merkle root %s", coinstakeID, &header.HashMerkleRoot)
	}

	if len(coinstake.Outputs) <= 1 {
		return errors.Wrapf(ruleerrors.ErrBadBlockSignature, "coinstake has no output to take the key from")
	}
	publicKey, err := txscript.ExtractSigningKey(coinstake.Outputs[1].ScriptPublicKey, coinstake.Inputs[0].SignatureScript)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrBadBlockSignature, "%s", err)
	}
	if !txscript.VerifySignature(publicKey, chainedHeader.Hash, provenHeader.Signature) {
		return errors.Wrapf(ruleerrors.ErrBadBlockSignature, "block %s", chainedHeader.Hash)
	}

	log.Debugf("Coinstake of block %s staking %s is valid", chainedHeader.Hash, stakeOutpoint)
	return nil
}

// loadStake fetches the record of the stake's transaction from the coin view
// into the context. Blocks have their coins loaded by the full phase, and
// headers validated without their block use this instead.
func (r *CoinstakeRule) loadStake(ctx context.Context, vc *model.ValidationContext,
	stakeOutpoint *externalapi.DomainOutpoint) error {

	transactionIDs := []*externalapi.DomainTransactionID{&stakeOutpoint.TransactionID}
	response, err := r.coinView.FetchCoins(ctx, transactionIDs)
	if err != nil {
		return err
	}
	vc.UnspentOutputSet = model.NewUnspentOutputSet()
	vc.UnspentOutputSet.SetCoins(transactionIDs, response.UnspentOutputs)
	vc.CoinViewTipHash = response.BlockHash
	return nil
}

// findStake looks the stake up in the loaded coins. A block on a fork may
// stake an output the active chain spent after the fork point; such a stake
// is found through the rewind index.
func (r *CoinstakeRule) findStake(ctx context.Context, vc *model.ValidationContext,
	stakeOutpoint *externalapi.DomainOutpoint) (*externalapi.DomainTransactionOutput, *externalapi.UnspentOutputs, error) {

	if vc.UnspentOutputSet != nil {
		output, record, ok := vc.UnspentOutputSet.GetOutput(stakeOutpoint)
		if ok {
			return output, record, nil
		}
	}

	chainedHeader := vc.ChainedHeaderToValidate
	onFork := vc.CoinViewTipHash != nil && chainedHeader.Previous != nil &&
		!chainedHeader.Previous.Hash.Equal(vc.CoinViewTipHash)
	if !onFork {
		return nil, nil, errors.Wrapf(ruleerrors.ErrReadTxPrevFailed, "stake %s does not exist", stakeOutpoint)
	}

	output, record, err := r.findStakeInRewindData(ctx, vc, stakeOutpoint)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, errors.Wrapf(ruleerrors.ErrReadTxPrevFailedInsufficient, "stake %s of block %s on a "+
			"fork can not be resolved", stakeOutpoint, chainedHeader.Hash)
	}
	return output, record, nil
}

// findStakeInRewindData returns the stake as it was before the active chain
// spent it, if it was spent above the fork point. It returns a nil record
// when the stake can not be resolved.
func (r *CoinstakeRule) findStakeInRewindData(ctx context.Context, vc *model.ValidationContext,
	stakeOutpoint *externalapi.DomainOutpoint) (*externalapi.DomainTransactionOutput, *externalapi.UnspentOutputs, error) {

	spentHeight, ok := r.rewindIndex.Get(stakeOutpoint)
	if !ok {
		return nil, nil, nil
	}
	coinViewTip, ok := r.headerTree.Get(vc.CoinViewTipHash)
	if !ok {
		return nil, nil, nil
	}
	forkPoint := findForkPoint(vc.ChainedHeaderToValidate.Previous, coinViewTip)
	if forkPoint == nil || spentHeight <= forkPoint.Height {
		return nil, nil, nil
	}

	rewindData, err := r.coinView.RewindData(ctx, spentHeight)
	if err != nil {
		return nil, nil, err
	}
	for _, record := range rewindData.OutputsToRestore {
		if record.TransactionID == stakeOutpoint.TransactionID && record.IsAvailable(stakeOutpoint.Index) {
			return record.Outputs[stakeOutpoint.Index], record, nil
		}
	}
	return nil, nil, nil
}

// findForkPoint returns the highest common ancestor of a and b.
func findForkPoint(a, b *model.ChainedHeader) *model.ChainedHeader {
	if a.Height > b.Height {
		a = a.GetAncestor(b.Height)
	} else {
		b = b.GetAncestor(a.Height)
	}
	for a != nil && b != nil {
		if a.Hash.Equal(b.Hash) {
			return a
		}
		a, b = a.Previous, b.Previous
	}
	return nil
}
