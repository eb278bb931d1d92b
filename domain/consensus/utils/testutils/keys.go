package testutils

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/utils/txscript"
)

// KeyPair returns a deterministic Schnorr key pair derived from seed
// together with its serialized public key.
func KeyPair(seed byte) (*secp256k1.SchnorrKeyPair, []byte) {
	privateKeyBytes := make([]byte, 32)
	privateKeyBytes[0] = 0x01
	privateKeyBytes[len(privateKeyBytes)-1] = seed
	keyPair, err := secp256k1.DeserializeSchnorrPrivateKeyFromSlice(privateKeyBytes)
	if err != nil {
		panic(errors.Wrapf(err, "Couldn't derive a key pair. This should never happen"))
	}
	publicKey, err := txscript.SerializedPublicKey(keyPair)
	if err != nil {
		panic(errors.Wrapf(err, "Couldn't serialize a public key. This should never happen"))
	}
	return keyPair, publicKey
}

// PayToPubKeyScript returns a pay-to-pubkey script for the key derived from seed.
func PayToPubKeyScript(seed byte) []byte {
	_, publicKey := KeyPair(seed)
	script, err := txscript.PayToPubKeyScript(publicKey)
	if err != nil {
		panic(errors.Wrapf(err, "Couldn't build a pay-to-pubkey script. This should never happen"))
	}
	return script
}
