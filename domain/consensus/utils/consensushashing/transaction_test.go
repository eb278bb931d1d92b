package consensushashing

import (
	"testing"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

func testTransaction() *externalapi.DomainTransaction {
	return &externalapi.DomainTransaction{
		Version: 1,
		Time:    32,
		Inputs: []*externalapi.DomainTransactionInput{{
			PreviousOutpoint: externalapi.DomainOutpoint{Index: 1},
			SignatureScript:  []byte{1, 2, 3},
		}},
		Outputs: []*externalapi.DomainTransactionOutput{{Value: 10, ScriptPublicKey: []byte{0x51}}},
	}
}

func TestTransactionIDCoversEveryField(t *testing.T) {
	tx := testTransaction()
	id := TransactionID(tx)

	mutations := []func(tx *externalapi.DomainTransaction){
		func(tx *externalapi.DomainTransaction) { tx.Version++ },
		func(tx *externalapi.DomainTransaction) { tx.Time++ },
		func(tx *externalapi.DomainTransaction) { tx.LockTime++ },
		func(tx *externalapi.DomainTransaction) { tx.Inputs[0].PreviousOutpoint.Index++ },
		func(tx *externalapi.DomainTransaction) { tx.Inputs[0].SignatureScript = []byte{4} },
		func(tx *externalapi.DomainTransaction) { tx.Outputs[0].Value++ },
	}
	for i, mutate := range mutations {
		mutated := tx.Clone()
		mutate(mutated)
		if TransactionID(mutated).Equal(id) {
			t.Fatalf("mutation %d did not change the transaction ID", i)
		}
	}
}

func TestSignatureHashIgnoresSignatureScripts(t *testing.T) {
	tx := testTransaction()
	spent := &externalapi.DomainTransactionOutput{Value: 100, ScriptPublicKey: []byte{0x51}}
	hash, err := CalculateSignatureHash(tx, 0, spent)
	if err != nil {
		t.Fatalf("CalculateSignatureHash: %s", err)
	}

	signed := tx.Clone()
	signed.Inputs[0].SignatureScript = []byte{7, 7, 7, 7}
	signedHash, err := CalculateSignatureHash(signed, 0, spent)
	if err != nil {
		t.Fatalf("CalculateSignatureHash: %s", err)
	}
	if !hash.Equal(signedHash) {
		t.Fatalf("the signature hash depends on the signature script")
	}

	otherValue, err := CalculateSignatureHash(tx, 0, &externalapi.DomainTransactionOutput{Value: 101, ScriptPublicKey: []byte{0x51}})
	if err != nil {
		t.Fatalf("CalculateSignatureHash: %s", err)
	}
	if hash.Equal(otherValue) {
		t.Fatalf("the signature hash does not commit to the spent value")
	}

	_, err = CalculateSignatureHash(tx, 1, spent)
	if err == nil {
		t.Fatalf("CalculateSignatureHash accepted an out of range input")
	}
}
