package merkle

import (
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
	"github.com/stakecore/stakecore/domain/consensus/utils/hashes"
)

// hashMerkleBranches hashes two children into their parent.
func hashMerkleBranches(left, right *externalapi.DomainHash) *externalapi.DomainHash {
	writer := hashes.NewMerkleBranchHashWriter()
	writer.InfallibleWrite(left.ByteSlice())
	writer.InfallibleWrite(right.ByteSlice())
	return writer.Finalize()
}

// nextLevel returns the parents of the given level. A node without a
// sibling is hashed with itself.
func nextLevel(level []*externalapi.DomainHash) []*externalapi.DomainHash {
	parents := make([]*externalapi.DomainHash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		left := level[i]
		right := left
		if i+1 < len(level) {
			right = level[i+1]
		}
		parents = append(parents, hashMerkleBranches(left, right))
	}
	return parents
}

// CalculateMerkleRoot returns the merkle root of the given leaves, or the
// zero hash when there are none.
func CalculateMerkleRoot(leaves []*externalapi.DomainHash) *externalapi.DomainHash {
	if len(leaves) == 0 {
		return externalapi.ZeroHash
	}
	level := leaves
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

func transactionHashes(transactions []*externalapi.DomainTransaction) []*externalapi.DomainHash {
	leaves := make([]*externalapi.DomainHash, len(transactions))
	for i, tx := range transactions {
		leaves[i] = (*externalapi.DomainHash)(consensushashing.TransactionID(tx))
	}
	return leaves
}

// CalculateHashMerkleRoot returns the merkle root of the IDs of the given transactions.
func CalculateHashMerkleRoot(transactions []*externalapi.DomainTransaction) *externalapi.DomainHash {
	return CalculateMerkleRoot(transactionHashes(transactions))
}

// BuildMerkleBranch returns the proof that the transaction at index is
// included in the merkle root of transactions.
func BuildMerkleBranch(transactions []*externalapi.DomainTransaction, index int) (*externalapi.MerkleBranch, error) {
	if index < 0 || index >= len(transactions) {
		return nil, errors.Errorf("index %d is out of range for %d transactions", index, len(transactions))
	}

	branch := &externalapi.MerkleBranch{Index: uint32(index)}
	level := transactionHashes(transactions)
	position := index
	for len(level) > 1 {
		sibling := position ^ 1
		if sibling >= len(level) {
			sibling = position
		}
		branch.Hashes = append(branch.Hashes, level[sibling])
		level = nextLevel(level)
		position /= 2
	}
	return branch, nil
}

// BranchRoot returns the merkle root implied by leaf and branch.
func BranchRoot(leaf *externalapi.DomainHash, branch *externalapi.MerkleBranch) *externalapi.DomainHash {
	current := leaf
	position := branch.Index
	for _, sibling := range branch.Hashes {
		if position&1 == 0 {
			current = hashMerkleBranches(current, sibling)
		} else {
			current = hashMerkleBranches(sibling, current)
		}
		position >>= 1
	}
	return current
}

// VerifyMerkleBranch returns whether branch proves that leaf is included in root.
func VerifyMerkleBranch(leaf *externalapi.DomainHash, branch *externalapi.MerkleBranch,
	root *externalapi.DomainHash) bool {

	if branch == nil || uint64(branch.Index)>>uint(len(branch.Hashes)) != 0 {
		return false
	}
	return BranchRoot(leaf, branch).Equal(root)
}
