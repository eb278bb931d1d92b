package txscript

import (
	"bytes"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
)

// VerifySignature returns whether signature is a valid Schnorr signature of
// hash by publicKey.
func VerifySignature(publicKey []byte, hash *externalapi.DomainHash, signature []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	secpPublicKey, err := secp256k1.DeserializeSchnorrPubKey(publicKey)
	if err != nil {
		return false
	}
	secpSignature, err := secp256k1.DeserializeSchnorrSignatureFromSlice(signature)
	if err != nil {
		return false
	}
	secpHash := secp256k1.Hash(*hash.ByteArray())
	return secpPublicKey.SchnorrVerify(&secpHash, secpSignature)
}

// ExtractSigningKey returns the public key a spend of scriptPublicKey is
// verified against. For pay-to-pubkey it is the key in the script. For
// pay-to-pubkey-hash it is the key pushed by signatureScript, which must hash
// to the script's public key hash.
func ExtractSigningKey(scriptPublicKey []byte, signatureScript []byte) ([]byte, error) {
	switch class := GetScriptClass(scriptPublicKey); class {
	case PubKeyTy:
		publicKey, _ := ExtractPubKey(scriptPublicKey)
		return publicKey, nil
	case PubKeyHashTy:
		pushes, err := PushedData(signatureScript)
		if err != nil {
			return nil, err
		}
		if len(pushes) != 2 {
			return nil, errors.Errorf("pay-to-pubkey-hash signature script has %d pushes instead of 2", len(pushes))
		}
		publicKey := pushes[1]
		publicKeyHash, _ := ExtractPubKeyHash(scriptPublicKey)
		if !bytes.Equal(Hash160(publicKey), publicKeyHash) {
			return nil, errors.New("the pushed public key does not match the public key hash")
		}
		return publicKey, nil
	default:
		return nil, errors.Errorf("unsupported %s script", class)
	}
}

// VerifyInputSignature verifies that the signature script of the input at
// idx of tx spends spentOutput.
func VerifyInputSignature(tx *externalapi.DomainTransaction, idx int,
	spentOutput *externalapi.DomainTransactionOutput) error {

	if idx < 0 || idx >= len(tx.Inputs) {
		return errors.Errorf("input index %d is out of range", idx)
	}
	signatureScript := tx.Inputs[idx].SignatureScript
	publicKey, err := ExtractSigningKey(spentOutput.ScriptPublicKey, signatureScript)
	if err != nil {
		return err
	}
	pushes, err := PushedData(signatureScript)
	if err != nil {
		return err
	}
	if len(pushes) == 0 {
		return errors.New("the signature script is empty")
	}
	if GetScriptClass(spentOutput.ScriptPublicKey) == PubKeyTy && len(pushes) != 1 {
		return errors.Errorf("pay-to-pubkey signature script has %d pushes instead of 1", len(pushes))
	}

	hash, err := consensushashing.CalculateSignatureHash(tx, idx, spentOutput)
	if err != nil {
		return err
	}
	if !VerifySignature(publicKey, hash, pushes[0]) {
		return errors.Errorf("signature of input %d is invalid", idx)
	}
	return nil
}
