package provenheader

import (
	"testing"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
	"github.com/stakecore/stakecore/domain/consensus/utils/merkle"
)

func TestFromBlock(t *testing.T) {
	coinbase := &externalapi.DomainTransaction{
		Version: 1,
		Inputs: []*externalapi.DomainTransactionInput{{
			PreviousOutpoint: externalapi.DomainOutpoint{Index: externalapi.NullOutpointIndex},
		}},
		Outputs: []*externalapi.DomainTransactionOutput{{}},
	}
	coinstake := &externalapi.DomainTransaction{
		Version: 1,
		Inputs: []*externalapi.DomainTransactionInput{{
			PreviousOutpoint: *externalapi.NewDomainOutpoint(
				externalapi.NewDomainTransactionIDFromByteArray(&[externalapi.DomainHashSize]byte{1}), 0),
		}},
		Outputs: []*externalapi.DomainTransactionOutput{{}, {Value: 50, ScriptPublicKey: []byte{1}}},
	}
	other := &externalapi.DomainTransaction{Version: 1, LockTime: 7}
	transactions := []*externalapi.DomainTransaction{coinbase, coinstake, other}
	block := &externalapi.DomainBlock{
		Header:       &externalapi.DomainBlockHeader{Version: 1, HashMerkleRoot: *merkle.CalculateHashMerkleRoot(transactions)},
		Transactions: transactions,
		Signature:    []byte{9, 9},
	}

	provenHeader, err := FromBlock(block)
	if err != nil {
		t.Fatalf("FromBlock: %s", err)
	}
	if provenHeader.MerkleProof.Index != CoinstakeIndex {
		t.Fatalf("expected the proof for index %d, got %d", CoinstakeIndex, provenHeader.MerkleProof.Index)
	}
	leaf := consensushashing.TransactionID(provenHeader.Coinstake)
	if !merkle.VerifyMerkleBranch((*externalapi.DomainHash)(leaf), provenHeader.MerkleProof, &block.Header.HashMerkleRoot) {
		t.Fatalf("the merkle proof does not verify against the header")
	}
	if provenHeader.StakeModifier != nil {
		t.Fatalf("a fresh proven header must not carry a stake modifier")
	}

	_, err = FromBlock(&externalapi.DomainBlock{
		Header:       block.Header,
		Transactions: []*externalapi.DomainTransaction{coinbase},
	})
	if err == nil {
		t.Fatalf("FromBlock accepted a block without a coinstake")
	}
}
