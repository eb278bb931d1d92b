package serialization

import (
	"bytes"
	"testing"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

func TestBlockSizeMatchesSerialization(t *testing.T) {
	block := &externalapi.DomainBlock{
		Header: &externalapi.DomainBlockHeader{Version: 1, Time: 16, Bits: 0x207fffff},
		Transactions: []*externalapi.DomainTransaction{{
			Version: 1,
			Inputs: []*externalapi.DomainTransactionInput{{
				PreviousOutpoint: externalapi.DomainOutpoint{Index: externalapi.NullOutpointIndex},
				SignatureScript:  []byte{1, 2, 3},
			}},
			Outputs: []*externalapi.DomainTransactionOutput{{Value: 50, ScriptPublicKey: []byte{4}}},
		}},
		Signature: []byte{9, 9},
	}

	buf := &bytes.Buffer{}
	err := SerializeBlock(buf, block)
	if err != nil {
		t.Fatalf("SerializeBlock: %s", err)
	}
	if BlockSize(block) != uint64(buf.Len()) {
		t.Fatalf("BlockSize returned %d, serialization is %d bytes", BlockSize(block), buf.Len())
	}
}

func TestExcludeSignatureScript(t *testing.T) {
	tx := &externalapi.DomainTransaction{
		Inputs: []*externalapi.DomainTransactionInput{{SignatureScript: []byte{1, 2, 3}}},
	}
	withScript := &bytes.Buffer{}
	withoutScript := &bytes.Buffer{}
	if err := SerializeTransaction(withScript, tx, TransactionEncodingFull); err != nil {
		t.Fatalf("SerializeTransaction: %s", err)
	}
	if err := SerializeTransaction(withoutScript, tx, TransactionEncodingExcludeSignatureScript); err != nil {
		t.Fatalf("SerializeTransaction: %s", err)
	}
	if withScript.Len()-withoutScript.Len() != 3 {
		t.Fatalf("expected the encodings to differ by the script length, got %d and %d",
			withScript.Len(), withoutScript.Len())
	}
}

func TestWriteElementUnknownType(t *testing.T) {
	err := WriteElement(&bytes.Buffer{}, 1.5)
	if err == nil {
		t.Fatalf("WriteElement unexpectedly encoded a float")
	}
}
