package ruleerrors

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrBlockVersionTooOld indicates the block version is below the
	// network minimum.
	ErrBlockVersionTooOld = newRuleError("ErrBlockVersionTooOld")

	// ErrUnexpectedDifficulty indicates the header bits encode a target
	// that is not positive or above the network's proof-of-work limit.
	ErrUnexpectedDifficulty = newRuleError("ErrUnexpectedDifficulty")

	// ErrCheckpointMismatch indicates a header at a checkpoint height does
	// not have the checkpointed hash.
	ErrCheckpointMismatch = newRuleError("ErrCheckpointMismatch")

	// ErrInvalidAncestorBlock indicates the previous header is unknown or
	// was found invalid.
	ErrInvalidAncestorBlock = newRuleError("ErrInvalidAncestorBlock")

	// ErrBadMerkleRoot indicates the calculated merkle root does not match
	// the expected value.
	ErrBadMerkleRoot = newRuleError("ErrBadMerkleRoot")

	// ErrBlockTooBig indicates the serialized block size exceeds the
	// maximum allowed size.
	ErrBlockTooBig = newRuleError("ErrBlockTooBig")

	// ErrNoTransactions indicates the block does not have at least one
	// transaction. A valid block must have at least the coinbase
	// transaction.
	ErrNoTransactions = newRuleError("ErrNoTransactions")

	// ErrFirstTxNotCoinbase indicates the first transaction in a block
	// is not a coinbase transaction.
	ErrFirstTxNotCoinbase = newRuleError("ErrFirstTxNotCoinbase")

	// ErrMultipleCoinbases indicates a block contains more than one
	// coinbase transaction.
	ErrMultipleCoinbases = newRuleError("ErrMultipleCoinbases")

	// ErrCoinstakeWrongPosition indicates a coinstake transaction appears
	// anywhere but right after the coinbase.
	ErrCoinstakeWrongPosition = newRuleError("ErrCoinstakeWrongPosition")

	// ErrNoTxInputs indicates a transaction does not have any inputs. A
	// valid transaction must have at least one input.
	ErrNoTxInputs = newRuleError("ErrNoTxInputs")

	// ErrNoTxOutputs indicates a transaction does not have any outputs.
	ErrNoTxOutputs = newRuleError("ErrNoTxOutputs")

	// ErrDuplicateTxInputs indicates a transaction references the same
	// input more than once.
	ErrDuplicateTxInputs = newRuleError("ErrDuplicateTxInputs")

	// ErrBadTxOutValue indicates an output value for a transaction is
	// invalid in some way such as being out of range.
	ErrBadTxOutValue = newRuleError("ErrBadTxOutValue")

	// ErrBadTxInput indicates a non-coinbase transaction spends the null
	// outpoint.
	ErrBadTxInput = newRuleError("ErrBadTxInput")

	// ErrDuplicateTx indicates a block contains an identical transaction
	// more than once.
	ErrDuplicateTx = newRuleError("ErrDuplicateTx")

	// ErrOverwriteTx indicates a block creates a transaction whose
	// outputs are still partially unspent in the UTXO set.
	ErrOverwriteTx = newRuleError("ErrOverwriteTx")

	// ErrImmatureSpend indicates a transaction is attempting to spend a
	// coinbase or coinstake that has not yet reached the required maturity.
	ErrImmatureSpend = newRuleError("ErrImmatureSpend")

	// ErrSpendTooHigh indicates a transaction is attempting to spend more
	// value than the sum of all of its inputs.
	ErrSpendTooHigh = newRuleError("ErrSpendTooHigh")

	// ErrScriptValidation indicates the result of executing a signature
	// script failed.
	ErrScriptValidation = newRuleError("ErrScriptValidation")

	// ErrRejectedByHook indicates the transaction validation hook rejected
	// a transaction.
	ErrRejectedByHook = newRuleError("ErrRejectedByHook")

	// ErrEmptyCoinstake indicates the block has no transaction that can
	// serve as its stake proof.
	ErrEmptyCoinstake = newRuleError("ErrEmptyCoinstake")

	// ErrNonCoinstake indicates a block after the last proof-of-work height
	// does not carry a coinstake.
	ErrNonCoinstake = newRuleError("ErrNonCoinstake")

	// ErrProofOfWorkTooHigh indicates a proof-of-work block after the last
	// proof-of-work height.
	ErrProofOfWorkTooHigh = newRuleError("ErrProofOfWorkTooHigh")

	// ErrHighHash indicates the block hash of a proof-of-work block is
	// above its target.
	ErrHighHash = newRuleError("ErrHighHash")

	// ErrProofOfStakeTimeViolation indicates the coinstake time differs
	// from the header time.
	ErrProofOfStakeTimeViolation = newRuleError("ErrProofOfStakeTimeViolation")

	// ErrStakeTimeViolation indicates the coinstake time is not aligned to
	// the stake timestamp granularity.
	ErrStakeTimeViolation = newRuleError("ErrStakeTimeViolation")

	// ErrReadTxPrevFailed indicates the stake output does not exist.
	ErrReadTxPrevFailed = newRuleError("ErrReadTxPrevFailed")

	// ErrReadTxPrevFailedInsufficient indicates the stake output of a block
	// extending a fork could not be resolved from the coin view nor from
	// the rewind data.
	ErrReadTxPrevFailedInsufficient = newRuleError("ErrReadTxPrevFailedInsufficient")

	// ErrInvalidStakeDepth indicates the stake does not have enough
	// confirmations.
	ErrInvalidStakeDepth = newRuleError("ErrInvalidStakeDepth")

	// ErrCoinstakeVerifySignatureFailed indicates the coinstake's first
	// input signature does not verify against the stake script.
	ErrCoinstakeVerifySignatureFailed = newRuleError("ErrCoinstakeVerifySignatureFailed")

	// ErrMissingPreviousStakeModifier indicates the previous header has no
	// stake modifier to build the kernel from.
	ErrMissingPreviousStakeModifier = newRuleError("ErrMissingPreviousStakeModifier")

	// ErrStakeHashInvalidTarget indicates the kernel hash is above the
	// value-weighted target.
	ErrStakeHashInvalidTarget = newRuleError("ErrStakeHashInvalidTarget")

	// ErrBadCoinstakeMerkleProof indicates the merkle proof does not tie
	// the coinstake to the header's merkle root.
	ErrBadCoinstakeMerkleProof = newRuleError("ErrBadCoinstakeMerkleProof")

	// ErrBadBlockSignature indicates the block signature does not verify
	// against the key of the coinstake's designated output.
	ErrBadBlockSignature = newRuleError("ErrBadBlockSignature")
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block or transaction failed due to one of the many validation
// rules. The caller can use errors.As to determine if a failure was
// specifically due to a rule violation.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// IsRuleError returns whether err carries a RuleError in its chain.
func IsRuleError(err error) bool {
	return errors.As(err, &RuleError{})
}

// ErrMissingTxOut indicates a transaction output referenced by an input
// either does not exist or has already been spent.
type ErrMissingTxOut struct {
	MissingOutpoints []*externalapi.DomainOutpoint
}

func (e ErrMissingTxOut) Error() string {
	return fmt.Sprintf("missing the following outpoint: %v", e.MissingOutpoints)
}

// NewErrMissingTxOut Creates a new ErrMissingTxOut error wrapped in a RuleError
func NewErrMissingTxOut(missingOutpoints []*externalapi.DomainOutpoint) error {
	return errors.WithStack(RuleError{
		message: "ErrMissingTxOut",
		inner:   ErrMissingTxOut{missingOutpoints},
	})
}
