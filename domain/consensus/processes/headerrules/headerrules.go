// Package headerrules holds the rules of the header phase.
package headerrules

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/ruleerrors"
	"github.com/stakecore/stakecore/domain/consensus/utils/math"
)

// New returns the header rules in execution order.
func New(params *chaincfg.Params) []model.Rule {
	return []model.Rule{
		&BlockVersionRule{minBlockVersion: params.MinBlockVersion},
		&DifficultyRangeRule{powMax: params.PowMax},
		&CheckpointRule{params: params},
		&PreviousHeaderRule{},
		&PreviousStakeModifierRule{},
	}
}

// BlockVersionRule rejects headers below the minimum block version.
type BlockVersionRule struct {
	minBlockVersion int32
}

// Name implements model.Rule
func (r *BlockVersionRule) Name() string { return "BlockVersionRule" }

// Phases implements model.Rule
func (r *BlockVersionRule) Phases() model.Phases { return model.PhaseHeader }

// CanSkipValidation implements model.Rule
func (r *BlockVersionRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *BlockVersionRule) Run(_ context.Context, vc *model.ValidationContext) error {
	version := vc.ChainedHeaderToValidate.Header.Version
	if version < r.minBlockVersion {
		return errors.Wrapf(ruleerrors.ErrBlockVersionTooOld, "block version %d is below the minimum of %d",
			version, r.minBlockVersion)
	}
	return nil
}

// DifficultyRangeRule ensures the target encoded by the header bits is
// positive and not above the network's maximum. Whether the header hash
// meets the target is checked with the block, for proof-of-work blocks only.
type DifficultyRangeRule struct {
	powMax *big.Int
}

// Name implements model.Rule
func (r *DifficultyRangeRule) Name() string { return "DifficultyRangeRule" }

// Phases implements model.Rule
func (r *DifficultyRangeRule) Phases() model.Phases { return model.PhaseHeader }

// CanSkipValidation implements model.Rule
func (r *DifficultyRangeRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *DifficultyRangeRule) Run(_ context.Context, vc *model.ValidationContext) error {
	target := math.CompactToBig(vc.ChainedHeaderToValidate.Header.Bits)
	if target.Sign() <= 0 {
		return errors.Wrapf(ruleerrors.ErrUnexpectedDifficulty, "block target difficulty of %064x is too low",
			target)
	}
	if target.Cmp(r.powMax) > 0 {
		return errors.Wrapf(ruleerrors.ErrUnexpectedDifficulty, "block target difficulty of %064x is "+
			"higher than max of %064x", target, r.powMax)
	}
	return nil
}

// CheckpointRule rejects headers at a checkpoint height whose hash differs
// from the checkpoint.
type CheckpointRule struct {
	params *chaincfg.Params
}

// Name implements model.Rule
func (r *CheckpointRule) Name() string { return "CheckpointRule" }

// Phases implements model.Rule
func (r *CheckpointRule) Phases() model.Phases { return model.PhaseHeader }

// CanSkipValidation implements model.Rule
func (r *CheckpointRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *CheckpointRule) Run(_ context.Context, vc *model.ValidationContext) error {
	chainedHeader := vc.ChainedHeaderToValidate
	checkpoint, ok := r.params.CheckpointAt(chainedHeader.Height)
	if !ok {
		return nil
	}
	if !checkpoint.Hash.Equal(chainedHeader.Hash) {
		return errors.Wrapf(ruleerrors.ErrCheckpointMismatch, "block at height %d is %s, the checkpoint is %s",
			chainedHeader.Height, chainedHeader.Hash, checkpoint.Hash)
	}
	log.Debugf("Block %s matches the checkpoint at height %d", chainedHeader.Hash, chainedHeader.Height)
	return nil
}

// PreviousHeaderRule rejects headers that do not build on a known header, or
// that build on an invalid one.
type PreviousHeaderRule struct{}

// Name implements model.Rule
func (r *PreviousHeaderRule) Name() string { return "PreviousHeaderRule" }

// Phases implements model.Rule
func (r *PreviousHeaderRule) Phases() model.Phases { return model.PhaseHeader }

// CanSkipValidation implements model.Rule
func (r *PreviousHeaderRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *PreviousHeaderRule) Run(_ context.Context, vc *model.ValidationContext) error {
	chainedHeader := vc.ChainedHeaderToValidate
	previous := chainedHeader.Previous
	if previous == nil {
		return errors.Wrapf(ruleerrors.ErrInvalidAncestorBlock, "block %s has no previous header",
			chainedHeader.Hash)
	}
	if !previous.Hash.Equal(&chainedHeader.Header.PreviousBlockHash) {
		return errors.Wrapf(ruleerrors.ErrInvalidAncestorBlock, "block %s is chained to %s but builds on %s",
			chainedHeader.Hash, previous.Hash, &chainedHeader.Header.PreviousBlockHash)
	}
	if previous.Status() == model.StatusInvalid {
		return errors.Wrapf(ruleerrors.ErrInvalidAncestorBlock, "block %s builds on the invalid block %s",
			chainedHeader.Hash, previous.Hash)
	}
	return nil
}

// PreviousStakeModifierRule rejects headers whose previous header has no
// stake modifier yet. The kernel of a proof-of-stake child and the modifier
// of every child are derived from it.
type PreviousStakeModifierRule struct{}

// Name implements model.Rule
func (r *PreviousStakeModifierRule) Name() string { return "PreviousStakeModifierRule" }

// Phases implements model.Rule
func (r *PreviousStakeModifierRule) Phases() model.Phases { return model.PhaseHeader }

// CanSkipValidation implements model.Rule
func (r *PreviousStakeModifierRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *PreviousStakeModifierRule) Run(_ context.Context, vc *model.ValidationContext) error {
	chainedHeader := vc.ChainedHeaderToValidate
	previous := chainedHeader.Previous
	if previous == nil {
		return nil
	}
	if previous.StakeModifier() == nil {
		return errors.Wrapf(ruleerrors.ErrMissingPreviousStakeModifier, "block %s builds on %s, which has "+
			"no stake modifier", chainedHeader.Hash, previous)
	}
	return nil
}
