package chaincfg

import (
	"math/big"
	"time"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// These variables are the proof-of-work limit parameters for each default
// network.
var (
	// bigOne is 1 represented as a big.Int. It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowMax is the highest proof of work value a block can have for
	// the main network. It is the value 2^224 - 1.
	mainPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// testnetPowMax is the highest proof of work value a block can have
	// for the test network. It is the value 2^239 - 1.
	testnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 239), bigOne)

	// regressionPowMax is the highest proof of work value a block can have
	// for the regression test network. It is the value 2^255 - 1.
	regressionPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
)

const (
	maxReorgLength       = 500
	stakeTimestampMask   = 0x0f
	maxBlockSize         = 1_000_000
	targetTimePerBlock   = 64 * time.Second
	minBlockVersion      = 1
	maxMoney             = 21_000_000 * 100_000_000
	mainLastPOWBlock     = 12_500
	mainCoinbaseMaturity = 500
)

// Checkpoint identifies a known good block.
type Checkpoint struct {
	Height uint64
	Hash   *externalapi.DomainHash
}

// Params defines a network by its consensus parameters.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *externalapi.DomainBlock

	// GenesisHash is the starting block hash.
	GenesisHash *externalapi.DomainHash

	// PowMax defines the highest allowed proof of work value for a block
	// as a uint256. The stake target of a block is scaled from the same
	// difficulty bits.
	PowMax *big.Int

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// MinBlockVersion is the lowest block version accepted.
	MinBlockVersion int32

	// MaxBlockSize is the largest serialized block size accepted.
	MaxBlockSize uint64

	// MaxMoney is the largest value a single output or a transaction may
	// carry.
	MaxMoney uint64

	// CoinbaseMaturity is the number of blocks required before coinbase
	// and coinstake outputs can be spent.
	CoinbaseMaturity uint64

	// LastPOWBlock is the height of the last block that may be produced
	// by proof of work.
	LastPOWBlock uint64

	// CoinstakeMinConfirmation is the minimum number of blocks between a
	// stake and the block it is staked in.
	CoinstakeMinConfirmation uint64

	// StakeTimestampMask is the mask the coinstake time must be aligned to.
	StakeTimestampMask uint32

	// MaxReorgLength is the deepest reorganization supported. Rewind data
	// below it is pruned.
	MaxReorgLength uint64

	// Checkpoints are known good blocks, ordered by height.
	Checkpoints []Checkpoint

	// AssumeValid is the block below which skippable rules are not
	// enforced. Nil disables it.
	AssumeValid *externalapi.DomainHash
}

// HighestCheckpointHeight returns the height of the last checkpoint, or
// zero if there are none.
func (p *Params) HighestCheckpointHeight() uint64 {
	if len(p.Checkpoints) == 0 {
		return 0
	}
	return p.Checkpoints[len(p.Checkpoints)-1].Height
}

// CheckpointAt returns the checkpoint at height, if there is one.
func (p *Params) CheckpointAt(height uint64) (*Checkpoint, bool) {
	for i := range p.Checkpoints {
		if p.Checkpoints[i].Height == height {
			return &p.Checkpoints[i], true
		}
	}
	return nil, false
}

// MainnetParams defines the network parameters for the main network.
var MainnetParams = Params{
	Name:                     "mainnet",
	GenesisBlock:             &genesisBlock,
	GenesisHash:              genesisHash,
	PowMax:                   mainPowMax,
	TargetTimePerBlock:       targetTimePerBlock,
	MinBlockVersion:          minBlockVersion,
	MaxBlockSize:             maxBlockSize,
	MaxMoney:                 maxMoney,
	CoinbaseMaturity:         mainCoinbaseMaturity,
	LastPOWBlock:             mainLastPOWBlock,
	CoinstakeMinConfirmation: mainCoinbaseMaturity,
	StakeTimestampMask:       stakeTimestampMask,
	MaxReorgLength:           maxReorgLength,
	Checkpoints: []Checkpoint{
		{Height: 0, Hash: genesisHash},
	},
}

// TestnetParams defines the network parameters for the test network.
var TestnetParams = Params{
	Name:                     "testnet",
	GenesisBlock:             &testnetGenesisBlock,
	GenesisHash:              testnetGenesisHash,
	PowMax:                   testnetPowMax,
	TargetTimePerBlock:       targetTimePerBlock,
	MinBlockVersion:          minBlockVersion,
	MaxBlockSize:             maxBlockSize,
	MaxMoney:                 maxMoney,
	CoinbaseMaturity:         10,
	LastPOWBlock:             mainLastPOWBlock,
	CoinstakeMinConfirmation: 10,
	StakeTimestampMask:       stakeTimestampMask,
	MaxReorgLength:           maxReorgLength,
	Checkpoints: []Checkpoint{
		{Height: 0, Hash: testnetGenesisHash},
	},
}

// RegressionNetParams defines the network parameters for the regression test
// network. Blocks need almost no work and stakes mature quickly.
var RegressionNetParams = Params{
	Name:                     "regtest",
	GenesisBlock:             &regtestGenesisBlock,
	GenesisHash:              regtestGenesisHash,
	PowMax:                   regressionPowMax,
	TargetTimePerBlock:       targetTimePerBlock,
	MinBlockVersion:          minBlockVersion,
	MaxBlockSize:             maxBlockSize,
	MaxMoney:                 maxMoney,
	CoinbaseMaturity:         2,
	LastPOWBlock:             100,
	CoinstakeMinConfirmation: 2,
	StakeTimestampMask:       stakeTimestampMask,
	MaxReorgLength:           10,
}
