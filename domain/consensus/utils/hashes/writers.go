package hashes

import (
	"hash"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"golang.org/x/crypto/blake2b"
)

const (
	blockHashDomain              = "BlockHash"
	transactionIDDomain          = "TransactionID"
	transactionSigningHashDomain = "TransactionSigningHash"
	merkleBranchHashDomain       = "MerkleBranchHash"
	stakeKernelHashDomain        = "StakeKernelHash"
	stakeModifierHashDomain      = "StakeModifierHash"
)

// HashWriter is used to incrementally hash data without concatenating all of the data to a single buffer
// it exposes an io.Writer api and a Finalize function to get the resulting hash.
// The used hash function is blake2b.
// This can only be created via one of the domain separated constructors
type HashWriter struct {
	hash.Hash
}

// InfallibleWrite is just like write but doesn't return anything
func (h HashWriter) InfallibleWrite(p []byte) {
	// This write can never return an error, this is part of the hash.Hash interface contract.
	_, err := h.Write(p)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. hash.Hash interface promises to not return errors."))
	}
}

// Finalize returns the resulting hash
func (h HashWriter) Finalize() *externalapi.DomainHash {
	var sum [externalapi.DomainHashSize]byte
	copy(sum[:], h.Sum(sum[:0]))
	return externalapi.NewDomainHashFromByteArray(&sum)
}

func newHashWriter(domain string) HashWriter {
	blake, err := blake2b.New256([]byte(domain))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", domain))
	}
	return HashWriter{blake}
}

// NewBlockHashWriter returns a new HashWriter used for block hashes
func NewBlockHashWriter() HashWriter {
	return newHashWriter(blockHashDomain)
}

// NewTransactionIDWriter returns a new HashWriter used for transaction IDs
func NewTransactionIDWriter() HashWriter {
	return newHashWriter(transactionIDDomain)
}

// NewTransactionSigningHashWriter returns a new HashWriter used for signing on a transaction
func NewTransactionSigningHashWriter() HashWriter {
	return newHashWriter(transactionSigningHashDomain)
}

// NewMerkleBranchHashWriter returns a new HashWriter used for a merkle tree branch
func NewMerkleBranchHashWriter() HashWriter {
	return newHashWriter(merkleBranchHashDomain)
}

// NewStakeKernelHashWriter returns a new HashWriter used for stake kernel hashes
func NewStakeKernelHashWriter() HashWriter {
	return newHashWriter(stakeKernelHashDomain)
}

// NewStakeModifierHashWriter returns a new HashWriter used for stake modifiers
func NewStakeModifierHashWriter() HashWriter {
	return newHashWriter(stakeModifierHashDomain)
}
