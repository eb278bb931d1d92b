package posrules

import (
	"encoding/binary"
	"math/big"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/hashes"
	"github.com/stakecore/stakecore/domain/consensus/utils/math"
)

// KernelHash returns the stake kernel hash of a coinstake spending
// stakeOutpoint at coinstakeTime on top of previousModifier.
func KernelHash(previousModifier *externalapi.DomainHash, stakeOutpoint *externalapi.DomainOutpoint,
	coinstakeTime uint32) *externalapi.DomainHash {

	writer := hashes.NewStakeKernelHashWriter()
	writer.InfallibleWrite(previousModifier.ByteSlice())
	writer.InfallibleWrite(stakeOutpoint.TransactionID.ByteSlice())
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], stakeOutpoint.Index)
	writer.InfallibleWrite(buf[:])
	binary.LittleEndian.PutUint32(buf[:], coinstakeTime)
	writer.InfallibleWrite(buf[:])
	return writer.Finalize()
}

// StakeTarget returns the target a kernel hash must not exceed: the target
// encoded by bits weighted by the stake's value.
func StakeTarget(bits uint32, stakeValue uint64) *big.Int {
	target := math.CompactToBig(bits)
	return target.Mul(target, new(big.Int).SetUint64(stakeValue))
}

// CheckStakeKernel returns the kernel hash and whether it meets the target.
func CheckStakeKernel(previousModifier *externalapi.DomainHash, stakeOutpoint *externalapi.DomainOutpoint,
	coinstakeTime uint32, bits uint32, stakeValue uint64) (*externalapi.DomainHash, bool) {

	kernel := KernelHash(previousModifier, stakeOutpoint, coinstakeTime)
	target := StakeTarget(bits, stakeValue)
	return kernel, hashes.ToBig(kernel).Cmp(target) <= 0
}

// NextStakeModifier returns the modifier a block passes on to its children.
// source is the stake's transaction ID for proof-of-stake blocks and the
// block hash for proof-of-work blocks.
func NextStakeModifier(previousModifier *externalapi.DomainHash, source *externalapi.DomainHash) *externalapi.DomainHash {
	writer := hashes.NewStakeModifierHashWriter()
	writer.InfallibleWrite(previousModifier.ByteSlice())
	writer.InfallibleWrite(source.ByteSlice())
	return writer.Finalize()
}

// GenesisStakeModifier returns the modifier the genesis block passes on.
func GenesisStakeModifier(genesisHash *externalapi.DomainHash) *externalapi.DomainHash {
	return NextStakeModifier(externalapi.ZeroHash, genesisHash)
}
