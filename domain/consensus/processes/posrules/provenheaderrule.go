package posrules

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/ruleerrors"
)

// ProvenHeaderRule validates headers received without their block. A
// proof-of-stake header carries its coinstake and the merkle proof of it, so
// the stake can be checked against the coin view, or through the rewind index
// when the header is on a fork. The stake modifier is attached so that the
// header's children can be validated in turn.
//
// Blocks are left to the CoinstakeRule of the full phase.
type ProvenHeaderRule struct {
	coinstakeRule *CoinstakeRule
}

// NewProvenHeaderRule instantiates a new ProvenHeaderRule
func NewProvenHeaderRule(coinstakeRule *CoinstakeRule) *ProvenHeaderRule {
	return &ProvenHeaderRule{coinstakeRule: coinstakeRule}
}

// Name implements model.Rule
func (r *ProvenHeaderRule) Name() string { return "ProvenHeaderRule" }

// Phases implements model.Rule
func (r *ProvenHeaderRule) Phases() model.Phases { return model.PhaseHeader }

// CanSkipValidation implements model.Rule
func (r *ProvenHeaderRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *ProvenHeaderRule) Run(ctx context.Context, vc *model.ValidationContext) error {
	if vc.BlockToValidate != nil {
		return nil
	}
	chainedHeader := vc.ChainedHeaderToValidate
	previousModifier := previousStakeModifier(chainedHeader)

	provenHeader := chainedHeader.ProvenHeader
	if provenHeader == nil || provenHeader.Coinstake == nil {
		attachProofOfWorkModifier(chainedHeader, previousModifier)
		lastPOWBlock := r.coinstakeRule.params.LastPOWBlock
		if chainedHeader.Height > lastPOWBlock {
			return errors.Wrapf(ruleerrors.ErrEmptyCoinstake, "header %s at height %d carries no coinstake "+
				"and proof of work ended at height %d", chainedHeader.Hash, chainedHeader.Height, lastPOWBlock)
		}
		return r.coinstakeRule.validateProofOfWork(chainedHeader, previousModifier)
	}

	if !provenHeader.Coinstake.IsCoinStake() {
		return errors.Wrapf(ruleerrors.ErrNonCoinstake, "the coinstake of header %s is not a coinstake",
			chainedHeader.Hash)
	}
	attachProofOfStakeModifier(chainedHeader, provenHeader, previousModifier)

	err := r.coinstakeRule.loadStake(ctx, vc, &provenHeader.Coinstake.Inputs[0].PreviousOutpoint)
	if err != nil {
		return err
	}
	return r.coinstakeRule.validateProofOfStake(ctx, vc, provenHeader, previousModifier)
}
