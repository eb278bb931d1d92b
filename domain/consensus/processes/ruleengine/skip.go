package ruleengine

import (
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/model"
)

// ShouldSkipValidation returns whether skippable rules may be skipped for
// chainedHeader: it is at or below the highest checkpoint, or it is the
// assume-valid block or one of its ancestors.
func ShouldSkipValidation(chainedHeader *model.ChainedHeader, params *chaincfg.Params,
	headerTree model.HeaderTree) bool {

	if len(params.Checkpoints) > 0 && chainedHeader.Height <= params.HighestCheckpointHeight() {
		return true
	}
	if params.AssumeValid == nil {
		return false
	}
	assumeValid, ok := headerTree.Get(params.AssumeValid)
	if !ok {
		return false
	}
	return chainedHeader.IsAncestorOf(assumeValid)
}
