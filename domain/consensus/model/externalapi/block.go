package externalapi

// DomainBlock represents a block
type DomainBlock struct {
	Header       *DomainBlockHeader
	Transactions []*DomainTransaction

	// Signature signs the block hash with the key of the coinstake's
	// designated output. Empty for proof-of-work blocks.
	Signature []byte
}

// Clone returns a clone of DomainBlock
func (block *DomainBlock) Clone() *DomainBlock {
	transactionClone := make([]*DomainTransaction, len(block.Transactions))
	for i, tx := range block.Transactions {
		transactionClone[i] = tx.Clone()
	}
	signatureClone := make([]byte, len(block.Signature))
	copy(signatureClone, block.Signature)

	return &DomainBlock{
		Header:       block.Header.Clone(),
		Transactions: transactionClone,
		Signature:    signatureClone,
	}
}

// IsProofOfStake returns whether the block carries a coinstake in its second slot.
func (block *DomainBlock) IsProofOfStake() bool {
	return len(block.Transactions) > 1 && block.Transactions[1].IsCoinStake()
}

// DomainBlockHeader represents the header part of a block
type DomainBlockHeader struct {
	Version           int32
	PreviousBlockHash DomainHash
	HashMerkleRoot    DomainHash
	Time              uint32
	Bits              uint32
	Nonce             uint32
}

// Clone returns a clone of DomainBlockHeader
func (header *DomainBlockHeader) Clone() *DomainBlockHeader {
	headerClone := *header
	return &headerClone
}

// Equal returns whether header equals to other
func (header *DomainBlockHeader) Equal(other *DomainBlockHeader) bool {
	if header == nil || other == nil {
		return header == other
	}
	return *header == *other
}

// MerkleBranch proves that the leaf at Index is included in a merkle root.
// Hashes lists the sibling hashes from the leaf level up.
type MerkleBranch struct {
	Hashes []*DomainHash
	Index  uint32
}

// ProvenBlockHeader is a header together with the coinstake and the merkle
// proof that make it verifiable without the rest of the block.
type ProvenBlockHeader struct {
	Header      *DomainBlockHeader
	Coinstake   *DomainTransaction
	MerkleProof *MerkleBranch
	Signature   []byte

	// StakeModifier is the modifier this header passes on to its children.
	// It is nil until the header went through coinstake validation.
	StakeModifier *DomainHash
}
