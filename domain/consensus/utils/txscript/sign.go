package txscript

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
)

// SignHash returns the serialized Schnorr signature of hash.
func SignHash(hash *externalapi.DomainHash, key *secp256k1.SchnorrKeyPair) ([]byte, error) {
	secpHash := secp256k1.Hash(*hash.ByteArray())
	signature, err := key.SchnorrSign(&secpHash)
	if err != nil {
		return nil, errors.Errorf("cannot sign hash: %s", err)
	}
	return signature.Serialize()[:], nil
}

// SerializedPublicKey returns the serialized public key of key.
func SerializedPublicKey(key *secp256k1.SchnorrKeyPair) ([]byte, error) {
	publicKey, err := key.SchnorrPublicKey()
	if err != nil {
		return nil, err
	}
	serialized, err := publicKey.Serialize()
	if err != nil {
		return nil, err
	}
	return serialized[:], nil
}

// SignatureScript creates the signature script spending spentOutput from the
// input at idx of tx with the given key. tx must include all inputs and
// outputs, and its signature scripts may be filled or empty.
func SignatureScript(tx *externalapi.DomainTransaction, idx int,
	spentOutput *externalapi.DomainTransactionOutput, key *secp256k1.SchnorrKeyPair) ([]byte, error) {

	hash, err := consensushashing.CalculateSignatureHash(tx, idx, spentOutput)
	if err != nil {
		return nil, err
	}
	signature, err := SignHash(hash, key)
	if err != nil {
		return nil, err
	}

	switch class := GetScriptClass(spentOutput.ScriptPublicKey); class {
	case PubKeyTy:
		return pushData(nil, signature), nil
	case PubKeyHashTy:
		publicKey, err := SerializedPublicKey(key)
		if err != nil {
			return nil, err
		}
		return pushData(pushData(nil, signature), publicKey), nil
	default:
		return nil, errors.Errorf("can't sign a %s script", class)
	}
}
