package model

import (
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/math"
)

// BlockStatus is the validation state of a chained header.
type BlockStatus uint32

const (
	// StatusUnvalidated indicates that nothing was validated yet.
	StatusUnvalidated BlockStatus = iota

	// StatusHeaderValidated indicates that the header passed the header phase.
	StatusHeaderValidated

	// StatusFullyValidated indicates that the block passed every phase and
	// its effects were applied to the coin view.
	StatusFullyValidated

	// StatusAssumedValid indicates that the block was connected with
	// skippable rules skipped.
	StatusAssumedValid

	// StatusInvalid indicates that the header or the block broke a
	// consensus rule.
	StatusInvalid
)

var blockStatusStrings = map[BlockStatus]string{
	StatusUnvalidated:     "Unvalidated",
	StatusHeaderValidated: "HeaderValidated",
	StatusFullyValidated:  "FullyValidated",
	StatusAssumedValid:    "AssumedValid",
	StatusInvalid:         "Invalid",
}

func (bs BlockStatus) String() string {
	if s, ok := blockStatusStrings[bs]; ok {
		return s
	}
	return fmt.Sprintf("BlockStatus(%d)", uint32(bs))
}

// ChainedHeader is a node in the header tree. Previous is a back-pointer
// and does not own the parent.
type ChainedHeader struct {
	Hash         *externalapi.DomainHash
	Header       *externalapi.DomainBlockHeader
	ProvenHeader *externalapi.ProvenBlockHeader
	Previous     *ChainedHeader
	Height       uint64
	ChainWork    *big.Int

	status uint32
}

// NewChainedHeader creates a chained header on top of previous, which is nil
// for the genesis header.
func NewChainedHeader(header *externalapi.DomainBlockHeader, hash *externalapi.DomainHash,
	previous *ChainedHeader) *ChainedHeader {

	chainedHeader := &ChainedHeader{
		Hash:      hash,
		Header:    header,
		Previous:  previous,
		ChainWork: math.CalcWork(header.Bits),
	}
	if previous != nil {
		chainedHeader.Height = previous.Height + 1
		chainedHeader.ChainWork.Add(chainedHeader.ChainWork, previous.ChainWork)
	}
	return chainedHeader
}

// Status returns the validation state of the header.
func (ch *ChainedHeader) Status() BlockStatus {
	return BlockStatus(atomic.LoadUint32(&ch.status))
}

// SetStatus sets the validation state of the header.
func (ch *ChainedHeader) SetStatus(status BlockStatus) {
	atomic.StoreUint32(&ch.status, uint32(status))
}

// GetAncestor returns the ancestor at the given height, or nil if height is
// above the header.
func (ch *ChainedHeader) GetAncestor(height uint64) *ChainedHeader {
	if height > ch.Height {
		return nil
	}
	current := ch
	for current != nil && current.Height > height {
		current = current.Previous
	}
	return current
}

// IsAncestorOf returns whether ch is other or one of other's ancestors.
func (ch *ChainedHeader) IsAncestorOf(other *ChainedHeader) bool {
	ancestor := other.GetAncestor(ch.Height)
	return ancestor != nil && ancestor.Hash.Equal(ch.Hash)
}

// StakeModifier returns the stake modifier the header passes on to its
// children, or nil if it was not computed yet.
func (ch *ChainedHeader) StakeModifier() *externalapi.DomainHash {
	if ch.ProvenHeader == nil {
		return nil
	}
	return ch.ProvenHeader.StakeModifier
}

func (ch *ChainedHeader) String() string {
	return fmt.Sprintf("%s (height %d)", ch.Hash, ch.Height)
}

// HeaderTree is the header graph maintained by the chain component. The rule
// engine only reads it.
type HeaderTree interface {
	Tip() *ChainedHeader
	Get(hash *externalapi.DomainHash) (*ChainedHeader, bool)
}
