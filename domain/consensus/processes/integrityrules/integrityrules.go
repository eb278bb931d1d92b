// Package integrityrules holds the rules of the integrity phase, which
// check that a block body matches its header.
package integrityrules

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/ruleerrors"
	"github.com/stakecore/stakecore/domain/consensus/utils/merkle"
	"github.com/stakecore/stakecore/domain/consensus/utils/serialization"
)

// New returns the integrity rules in execution order.
func New(params *chaincfg.Params) []model.Rule {
	return []model.Rule{
		&NoTransactionsRule{},
		&BlockSizeRule{maxBlockSize: params.MaxBlockSize},
		&MerkleRootRule{},
	}
}

func blockToValidate(vc *model.ValidationContext) (*externalapi.DomainBlock, error) {
	if vc.BlockToValidate == nil {
		return nil, errors.Errorf("no block to validate for header %s", vc.ChainedHeaderToValidate.Hash)
	}
	return vc.BlockToValidate, nil
}

// NoTransactionsRule rejects blocks without transactions.
type NoTransactionsRule struct{}

// Name implements model.Rule
func (r *NoTransactionsRule) Name() string { return "NoTransactionsRule" }

// Phases implements model.Rule
func (r *NoTransactionsRule) Phases() model.Phases { return model.PhaseIntegrity }

// CanSkipValidation implements model.Rule
func (r *NoTransactionsRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *NoTransactionsRule) Run(_ context.Context, vc *model.ValidationContext) error {
	block, err := blockToValidate(vc)
	if err != nil {
		return err
	}
	if len(block.Transactions) == 0 {
		return errors.Wrapf(ruleerrors.ErrNoTransactions, "block %s has no transactions",
			vc.ChainedHeaderToValidate.Hash)
	}
	return nil
}

// BlockSizeRule rejects blocks whose serialized size exceeds the maximum.
type BlockSizeRule struct {
	maxBlockSize uint64
}

// Name implements model.Rule
func (r *BlockSizeRule) Name() string { return "BlockSizeRule" }

// Phases implements model.Rule
func (r *BlockSizeRule) Phases() model.Phases { return model.PhaseIntegrity }

// CanSkipValidation implements model.Rule
func (r *BlockSizeRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *BlockSizeRule) Run(_ context.Context, vc *model.ValidationContext) error {
	block, err := blockToValidate(vc)
	if err != nil {
		return err
	}
	size := serialization.BlockSize(block)
	if size > r.maxBlockSize {
		return errors.Wrapf(ruleerrors.ErrBlockTooBig, "block size of %d exceeds the maximum of %d",
			size, r.maxBlockSize)
	}
	return nil
}

// MerkleRootRule rejects blocks whose transactions do not hash to the
// header's merkle root.
type MerkleRootRule struct{}

// Name implements model.Rule
func (r *MerkleRootRule) Name() string { return "MerkleRootRule" }

// Phases implements model.Rule
func (r *MerkleRootRule) Phases() model.Phases { return model.PhaseIntegrity }

// CanSkipValidation implements model.Rule
func (r *MerkleRootRule) CanSkipValidation() bool { return false }

// Run implements model.Rule
func (r *MerkleRootRule) Run(_ context.Context, vc *model.ValidationContext) error {
	block, err := blockToValidate(vc)
	if err != nil {
		return err
	}
	calculated := merkle.CalculateHashMerkleRoot(block.Transactions)
	if !calculated.Equal(&block.Header.HashMerkleRoot) {
		return errors.Wrapf(ruleerrors.ErrBadMerkleRoot, "block merkle root is invalid - block "+
			"header indicates %s, but calculated value is %s", &block.Header.HashMerkleRoot, calculated)
	}
	return nil
}
