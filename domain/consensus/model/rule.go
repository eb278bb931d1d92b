package model

import (
	"context"
	"strings"
)

// Phases is a set of validation phases.
type Phases uint8

const (
	// PhaseHeader checks a header on its own and against its ancestors.
	PhaseHeader Phases = 1 << iota

	// PhaseIntegrity checks that the block body matches its header.
	PhaseIntegrity

	// PhasePartial checks the block content without the coin view.
	PhasePartial

	// PhaseFull checks the block against the coin view and applies it.
	PhaseFull
)

// AllPhases lists the phases in execution order.
var AllPhases = []Phases{PhaseHeader, PhaseIntegrity, PhasePartial, PhaseFull}

var phaseNames = map[Phases]string{
	PhaseHeader:    "header",
	PhaseIntegrity: "integrity",
	PhasePartial:   "partial",
	PhaseFull:      "full",
}

// Has returns whether every phase in other is in p.
func (p Phases) Has(other Phases) bool {
	return other != 0 && p&other == other
}

func (p Phases) String() string {
	names := make([]string, 0, len(AllPhases))
	for _, phase := range AllPhases {
		if p.Has(phase) {
			names = append(names, phaseNames[phase])
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Rule is a consensus rule. A consensus violation is reported by returning
// an error that wraps a ruleerrors.RuleError. Any other error aborts the
// validation without marking the block invalid.
type Rule interface {
	// Name identifies the rule in logs.
	Name() string

	// Phases returns the phases the rule runs in. Must not be empty.
	Phases() Phases

	// CanSkipValidation returns whether the rule may be skipped for blocks
	// under a checkpoint or the assume-valid block.
	CanSkipValidation() bool

	Run(ctx context.Context, vc *ValidationContext) error
}
