package txscript

import (
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
)

// Opcodes used by the standard scripts.
const (
	OpData20      = 0x14
	OpData32      = 0x20
	OpData64      = 0x40
	OpDup         = 0x76
	OpEqualVerify = 0x88
	OpHash160     = 0xa9
	OpCheckSig    = 0xac

	// maxDirectPush is the largest data length pushed by its length opcode.
	maxDirectPush = 0x4b
)

const (
	// PublicKeySize is the size of a serialized Schnorr public key.
	PublicKeySize = 32

	// SignatureSize is the size of a serialized Schnorr signature.
	SignatureSize = 64

	// PublicKeyHashSize is the size of a public key hash.
	PublicKeyHashSize = 20
)

// ScriptClass is an enumeration for the list of standard types of script.
type ScriptClass byte

// Classes of script payment known about in the blockchain.
const (
	NonStandardTy ScriptClass = iota // None of the recognized forms.
	PubKeyTy                         // Pay to pubkey.
	PubKeyHashTy                     // Pay to pubkey hash.
)

// scriptClassToName houses the human-readable strings which describe each
// script class.
var scriptClassToName = []string{
	NonStandardTy: "nonstandard",
	PubKeyTy:      "pubkey",
	PubKeyHashTy:  "pubkeyhash",
}

// String implements the Stringer interface by returning the name of
// the enum script class. If the enum is invalid then "Invalid" will be
// returned.
func (t ScriptClass) String() string {
	if int(t) >= len(scriptClassToName) {
		return "Invalid"
	}
	return scriptClassToName[t]
}

// PayToPubKeyScript creates a script paying to the given public key.
func PayToPubKeyScript(publicKey []byte) ([]byte, error) {
	if len(publicKey) != PublicKeySize {
		return nil, errors.Errorf("public key is %d bytes instead of %d", len(publicKey), PublicKeySize)
	}
	script := make([]byte, 0, PublicKeySize+2)
	script = append(script, OpData32)
	script = append(script, publicKey...)
	return append(script, OpCheckSig), nil
}

// PayToPubKeyHashScript creates a script paying to the hash160 of a public key.
func PayToPubKeyHashScript(publicKeyHash []byte) ([]byte, error) {
	if len(publicKeyHash) != PublicKeyHashSize {
		return nil, errors.Errorf("public key hash is %d bytes instead of %d",
			len(publicKeyHash), PublicKeyHashSize)
	}
	script := make([]byte, 0, PublicKeyHashSize+5)
	script = append(script, OpDup, OpHash160, OpData20)
	script = append(script, publicKeyHash...)
	return append(script, OpEqualVerify, OpCheckSig), nil
}

// Hash160 returns the RIPEMD160 of the SHA256 of the given bytes.
func Hash160(data []byte) []byte {
	return btcutil.Hash160(data)
}

// GetScriptClass returns the class of the given script public key.
func GetScriptClass(script []byte) ScriptClass {
	switch {
	case isPayToPubKey(script):
		return PubKeyTy
	case isPayToPubKeyHash(script):
		return PubKeyHashTy
	default:
		return NonStandardTy
	}
}

func isPayToPubKey(script []byte) bool {
	return len(script) == PublicKeySize+2 &&
		script[0] == OpData32 &&
		script[PublicKeySize+1] == OpCheckSig
}

func isPayToPubKeyHash(script []byte) bool {
	return len(script) == PublicKeyHashSize+5 &&
		script[0] == OpDup &&
		script[1] == OpHash160 &&
		script[2] == OpData20 &&
		script[PublicKeyHashSize+3] == OpEqualVerify &&
		script[PublicKeyHashSize+4] == OpCheckSig
}

// ExtractPubKey returns the public key of a pay-to-pubkey script.
func ExtractPubKey(script []byte) ([]byte, bool) {
	if !isPayToPubKey(script) {
		return nil, false
	}
	return script[1 : PublicKeySize+1], true
}

// ExtractPubKeyHash returns the public key hash of a pay-to-pubkey-hash script.
func ExtractPubKeyHash(script []byte) ([]byte, bool) {
	if !isPayToPubKeyHash(script) {
		return nil, false
	}
	return script[3 : PublicKeyHashSize+3], true
}

// PushedData parses a script made only of direct data pushes and returns the
// pushed items.
func PushedData(script []byte) ([][]byte, error) {
	var pushes [][]byte
	for offset := 0; offset < len(script); {
		length := int(script[offset])
		if length == 0 || length > maxDirectPush {
			return nil, errors.Errorf("opcode 0x%02x at offset %d is not a direct data push",
				script[offset], offset)
		}
		offset++
		if offset+length > len(script) {
			return nil, errors.Errorf("push of %d bytes at offset %d exceeds the script length %d",
				length, offset-1, len(script))
		}
		pushes = append(pushes, script[offset:offset+length])
		offset += length
	}
	return pushes, nil
}

func pushData(script []byte, data []byte) []byte {
	script = append(script, byte(len(data)))
	return append(script, data...)
}
