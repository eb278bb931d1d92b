package model

import (
	"fmt"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// ValidationState is the progress of a validation context.
type ValidationState int

const (
	// StateCreated is the state of a fresh context.
	StateCreated ValidationState = iota

	// StateHeaderValidated follows a successful header phase.
	StateHeaderValidated

	// StateIntegrityValidated follows a successful integrity phase.
	StateIntegrityValidated

	// StatePartiallyValidated follows a successful partial phase.
	StatePartiallyValidated

	// StateFullyValidated follows a successful full phase.
	StateFullyValidated

	// StateFailed is terminal. The context's Error holds the reason.
	StateFailed
)

var validationStateStrings = map[ValidationState]string{
	StateCreated:            "Created",
	StateHeaderValidated:    "HeaderValidated",
	StateIntegrityValidated: "IntegrityValidated",
	StatePartiallyValidated: "PartiallyValidated",
	StateFullyValidated:     "FullyValidated",
	StateFailed:             "Failed",
}

func (vs ValidationState) String() string {
	if s, ok := validationStateStrings[vs]; ok {
		return s
	}
	return fmt.Sprintf("ValidationState(%d)", int(vs))
}

// ValidationContext carries one header or block through the validation
// phases. It is created per validation and never shared between concurrent
// validations.
type ValidationContext struct {
	ChainedHeaderToValidate *ChainedHeader

	// BlockToValidate is nil when only the header is validated.
	BlockToValidate *externalapi.DomainBlock

	// ConsensusTip is the chain tip the block is validated against.
	ConsensusTip *ChainedHeader

	// Error holds the consensus violation that failed the context.
	Error error

	// SkipValidation is set for blocks under a checkpoint or the
	// assume-valid block. Skippable rules do not run for them.
	SkipValidation bool

	State ValidationState

	// UnspentOutputSet holds the coins the block references. It is filled
	// and mutated by the full phase.
	UnspentOutputSet *UnspentOutputSet

	// CoinViewTipHash is the tip the coin view was at when the full phase
	// loaded UnspentOutputSet.
	CoinViewTipHash *externalapi.DomainHash

	// RewindIndexEntries maps every previously existing output the block
	// spends to the height of the block's rewind data.
	RewindIndexEntries map[externalapi.DomainOutpoint]uint64
}

// NewValidationContext creates a validation context in the Created state.
func NewValidationContext(chainedHeader *ChainedHeader, block *externalapi.DomainBlock,
	consensusTip *ChainedHeader) *ValidationContext {

	return &ValidationContext{
		ChainedHeaderToValidate: chainedHeader,
		BlockToValidate:         block,
		ConsensusTip:            consensusTip,
		State:                   StateCreated,
		RewindIndexEntries:      make(map[externalapi.DomainOutpoint]uint64),
	}
}

// Failed returns whether the context holds a consensus violation.
func (vc *ValidationContext) Failed() bool {
	return vc.State == StateFailed
}
