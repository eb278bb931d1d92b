package testutils

import (
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
	"github.com/stakecore/stakecore/domain/consensus/utils/hashes"
	"github.com/stakecore/stakecore/domain/consensus/utils/math"
)

// SolveHeader increments the header's nonce until its hash meets the target
// encoded by its bits. Only meant for the easy targets of tests.
func SolveHeader(header *externalapi.DomainBlockHeader) {
	target := math.CompactToBig(header.Bits)
	for {
		if hashes.ToBig(consensushashing.HeaderHash(header)).Cmp(target) <= 0 {
			return
		}
		header.Nonce++
	}
}
