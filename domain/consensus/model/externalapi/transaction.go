package externalapi

import (
	"bytes"
	"fmt"
	"math"
)

// DomainTransaction represents a transaction. Time is the transaction
// timestamp carried by proof-of-stake transactions.
type DomainTransaction struct {
	Version  int32
	Time     uint32
	Inputs   []*DomainTransactionInput
	Outputs  []*DomainTransactionOutput
	LockTime uint32
}

// DomainTransactionInput represents a transaction input
type DomainTransactionInput struct {
	PreviousOutpoint DomainOutpoint
	SignatureScript  []byte
	Sequence         uint32
}

// DomainOutpoint represents a transaction outpoint
type DomainOutpoint struct {
	TransactionID DomainTransactionID
	Index         uint32
}

// NullOutpointIndex is the output index of the null outpoint spent by coinbase inputs.
const NullOutpointIndex = math.MaxUint32

// NewDomainOutpoint instantiates a new DomainOutpoint with the given id and index
func NewDomainOutpoint(id *DomainTransactionID, index uint32) *DomainOutpoint {
	return &DomainOutpoint{
		TransactionID: *id,
		Index:         index,
	}
}

// IsNull returns whether the outpoint references no output: a zero
// transaction id and the maximal index.
func (op DomainOutpoint) IsNull() bool {
	return op.Index == NullOutpointIndex && op.TransactionID == DomainTransactionID{}
}

// String stringifies an outpoint.
func (op DomainOutpoint) String() string {
	return fmt.Sprintf("(%s: %d)", op.TransactionID, op.Index)
}

// DomainTransactionOutput represents a transaction output
type DomainTransactionOutput struct {
	Value           uint64
	ScriptPublicKey []byte
}

// IsEmpty returns whether the output carries neither value nor script. The
// first output of a coinstake transaction is empty.
func (output *DomainTransactionOutput) IsEmpty() bool {
	return output.Value == 0 && len(output.ScriptPublicKey) == 0
}

// Clone returns a clone of DomainTransactionOutput
func (output *DomainTransactionOutput) Clone() *DomainTransactionOutput {
	if output == nil {
		return nil
	}
	scriptClone := make([]byte, len(output.ScriptPublicKey))
	copy(scriptClone, output.ScriptPublicKey)
	return &DomainTransactionOutput{
		Value:           output.Value,
		ScriptPublicKey: scriptClone,
	}
}

// Equal returns whether output equals to other
func (output *DomainTransactionOutput) Equal(other *DomainTransactionOutput) bool {
	if output == nil || other == nil {
		return output == other
	}
	return output.Value == other.Value && bytes.Equal(output.ScriptPublicKey, other.ScriptPublicKey)
}

// IsCoinBase returns whether the transaction is a coinbase: exactly one input
// spending the null outpoint.
func (tx *DomainTransaction) IsCoinBase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PreviousOutpoint.IsNull()
}

// IsCoinStake returns whether the transaction is a coinstake: its first input
// spends a real output, it has at least two outputs, and its first output is
// empty.
func (tx *DomainTransaction) IsCoinStake() bool {
	if len(tx.Inputs) == 0 || tx.Inputs[0].PreviousOutpoint.IsNull() {
		return false
	}
	return len(tx.Outputs) >= 2 && tx.Outputs[0].IsEmpty()
}

// Clone returns a clone of DomainTransaction
func (tx *DomainTransaction) Clone() *DomainTransaction {
	inputsClone := make([]*DomainTransactionInput, len(tx.Inputs))
	for i, input := range tx.Inputs {
		signatureScriptClone := make([]byte, len(input.SignatureScript))
		copy(signatureScriptClone, input.SignatureScript)
		inputsClone[i] = &DomainTransactionInput{
			PreviousOutpoint: input.PreviousOutpoint,
			SignatureScript:  signatureScriptClone,
			Sequence:         input.Sequence,
		}
	}

	outputsClone := make([]*DomainTransactionOutput, len(tx.Outputs))
	for i, output := range tx.Outputs {
		outputsClone[i] = output.Clone()
	}

	return &DomainTransaction{
		Version:  tx.Version,
		Time:     tx.Time,
		Inputs:   inputsClone,
		Outputs:  outputsClone,
		LockTime: tx.LockTime,
	}
}

// DomainTransactionID represents the ID of a transaction
type DomainTransactionID DomainHash

// NewDomainTransactionIDFromByteArray constructs a new TransactionID out of a byte array
func NewDomainTransactionIDFromByteArray(transactionIDBytes *[DomainHashSize]byte) *DomainTransactionID {
	return (*DomainTransactionID)(NewDomainHashFromByteArray(transactionIDBytes))
}

// NewDomainTransactionIDFromByteSlice constructs a new TransactionID out of a byte slice
func NewDomainTransactionIDFromByteSlice(transactionIDBytes []byte) (*DomainTransactionID, error) {
	hash, err := NewDomainHashFromByteSlice(transactionIDBytes)
	if err != nil {
		return nil, err
	}
	return (*DomainTransactionID)(hash), nil
}

// String stringifies a transaction ID.
func (id DomainTransactionID) String() string {
	return DomainHash(id).String()
}

// Equal returns whether id equals to other
func (id *DomainTransactionID) Equal(other *DomainTransactionID) bool {
	return (*DomainHash)(id).Equal((*DomainHash)(other))
}

// Less returns true if id is less than other
func (id *DomainTransactionID) Less(other *DomainTransactionID) bool {
	return (*DomainHash)(id).Less((*DomainHash)(other))
}

// ByteSlice returns the bytes in this transactionID represented as a bytes slice.
// The transactionID bytes are cloned, therefore it is safe to modify the resulting slice.
func (id *DomainTransactionID) ByteSlice() []byte {
	return (*DomainHash)(id).ByteSlice()
}

// ByteArray returns the bytes in this transactionID represented as a bytes array.
func (id *DomainTransactionID) ByteArray() *[DomainHashSize]byte {
	return (*DomainHash)(id).ByteArray()
}
