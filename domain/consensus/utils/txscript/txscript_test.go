package txscript

import (
	"testing"

	"github.com/kaspanet/go-secp256k1"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

func newKeyPair(t *testing.T, seed byte) (*secp256k1.SchnorrKeyPair, []byte) {
	privateKeyBytes := make([]byte, 32)
	privateKeyBytes[31] = seed
	keyPair, err := secp256k1.DeserializeSchnorrPrivateKeyFromSlice(privateKeyBytes)
	if err != nil {
		t.Fatalf("DeserializeSchnorrPrivateKeyFromSlice: %s", err)
	}
	publicKey, err := SerializedPublicKey(keyPair)
	if err != nil {
		t.Fatalf("SerializedPublicKey: %s", err)
	}
	return keyPair, publicKey
}

func spendingTransaction() *externalapi.DomainTransaction {
	return &externalapi.DomainTransaction{
		Version: 1,
		Inputs: []*externalapi.DomainTransactionInput{{
			PreviousOutpoint: externalapi.DomainOutpoint{Index: 0},
		}},
		Outputs: []*externalapi.DomainTransactionOutput{{Value: 90, ScriptPublicKey: []byte{OpCheckSig}}},
	}
}

func TestSignAndVerify(t *testing.T) {
	keyPair, publicKey := newKeyPair(t, 1)
	_, otherPublicKey := newKeyPair(t, 2)

	payToPubKey, err := PayToPubKeyScript(publicKey)
	if err != nil {
		t.Fatalf("PayToPubKeyScript: %s", err)
	}
	payToPubKeyHash, err := PayToPubKeyHashScript(Hash160(publicKey))
	if err != nil {
		t.Fatalf("PayToPubKeyHashScript: %s", err)
	}
	payToOtherKey, err := PayToPubKeyScript(otherPublicKey)
	if err != nil {
		t.Fatalf("PayToPubKeyScript: %s", err)
	}

	tests := []struct {
		name   string
		script []byte
		class  ScriptClass
	}{
		{name: "pubkey", script: payToPubKey, class: PubKeyTy},
		{name: "pubkeyhash", script: payToPubKeyHash, class: PubKeyHashTy},
	}
	for _, test := range tests {
		if GetScriptClass(test.script) != test.class {
			t.Fatalf("%s: expected class %s, got %s", test.name, test.class, GetScriptClass(test.script))
		}
		spentOutput := &externalapi.DomainTransactionOutput{Value: 100, ScriptPublicKey: test.script}
		tx := spendingTransaction()
		signatureScript, err := SignatureScript(tx, 0, spentOutput, keyPair)
		if err != nil {
			t.Fatalf("%s: SignatureScript: %s", test.name, err)
		}
		tx.Inputs[0].SignatureScript = signatureScript

		err = VerifyInputSignature(tx, 0, spentOutput)
		if err != nil {
			t.Fatalf("%s: VerifyInputSignature: %s", test.name, err)
		}

		tx.Outputs[0].Value++
		err = VerifyInputSignature(tx, 0, spentOutput)
		if err == nil {
			t.Fatalf("%s: signature verified after the transaction was modified", test.name)
		}
		tx.Outputs[0].Value--

		err = VerifyInputSignature(tx, 0, &externalapi.DomainTransactionOutput{Value: 100, ScriptPublicKey: payToOtherKey})
		if err == nil {
			t.Fatalf("%s: signature verified against another key", test.name)
		}
	}
}

func TestExtractSigningKeyRejectsWrongPubKeyHash(t *testing.T) {
	_, publicKey := newKeyPair(t, 1)
	_, otherPublicKey := newKeyPair(t, 2)
	script, err := PayToPubKeyHashScript(Hash160(publicKey))
	if err != nil {
		t.Fatalf("PayToPubKeyHashScript: %s", err)
	}

	signatureScript := pushData(pushData(nil, make([]byte, SignatureSize)), otherPublicKey)
	_, err = ExtractSigningKey(script, signatureScript)
	if err == nil {
		t.Fatalf("ExtractSigningKey accepted a key that does not match the hash")
	}

	signatureScript = pushData(pushData(nil, make([]byte, SignatureSize)), publicKey)
	extracted, err := ExtractSigningKey(script, signatureScript)
	if err != nil {
		t.Fatalf("ExtractSigningKey: %s", err)
	}
	if string(extracted) != string(publicKey) {
		t.Fatalf("ExtractSigningKey returned the wrong key")
	}
}

func TestPushedData(t *testing.T) {
	pushes, err := PushedData([]byte{0x02, 0xaa, 0xbb, 0x01, 0xcc})
	if err != nil {
		t.Fatalf("PushedData: %s", err)
	}
	if len(pushes) != 2 || len(pushes[0]) != 2 || pushes[1][0] != 0xcc {
		t.Fatalf("unexpected pushes: %x", pushes)
	}
	_, err = PushedData([]byte{0x03, 0xaa})
	if err == nil {
		t.Fatalf("PushedData accepted a truncated push")
	}
	_, err = PushedData([]byte{OpCheckSig})
	if err == nil {
		t.Fatalf("PushedData accepted a non-push opcode")
	}
}
