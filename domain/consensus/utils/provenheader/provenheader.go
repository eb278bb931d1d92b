// Package provenheader builds proven headers, which carry what coinstake
// validation needs from a block without the rest of its body.
package provenheader

import (
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/merkle"
)

// CoinstakeIndex is the position of the coinstake within a proof-of-stake
// block.
const CoinstakeIndex = 1

// FromBlock builds the proven header of a proof-of-stake block.
func FromBlock(block *externalapi.DomainBlock) (*externalapi.ProvenBlockHeader, error) {
	if !block.IsProofOfStake() {
		return nil, errors.New("cannot build a proven header for a block without a coinstake")
	}
	branch, err := merkle.BuildMerkleBranch(block.Transactions, CoinstakeIndex)
	if err != nil {
		return nil, err
	}
	signature := make([]byte, len(block.Signature))
	copy(signature, block.Signature)

	return &externalapi.ProvenBlockHeader{
		Header:      block.Header.Clone(),
		Coinstake:   block.Transactions[CoinstakeIndex].Clone(),
		MerkleProof: branch,
		Signature:   signature,
	}, nil
}
