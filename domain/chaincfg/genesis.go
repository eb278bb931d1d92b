package chaincfg

import (
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
	"github.com/stakecore/stakecore/domain/consensus/utils/merkle"
)

// genesisCoinbaseMessage is pushed by the signature script of every genesis
// coinbase.
var genesisCoinbaseMessage = []byte("stakecore genesis: every coin is a vote")

func newGenesisCoinbase(time uint32) *externalapi.DomainTransaction {
	signatureScript := make([]byte, 0, len(genesisCoinbaseMessage)+1)
	signatureScript = append(signatureScript, byte(len(genesisCoinbaseMessage)))
	signatureScript = append(signatureScript, genesisCoinbaseMessage...)

	return &externalapi.DomainTransaction{
		Version: 1,
		Time:    time,
		Inputs: []*externalapi.DomainTransactionInput{{
			PreviousOutpoint: externalapi.DomainOutpoint{Index: externalapi.NullOutpointIndex},
			SignatureScript:  signatureScript,
			Sequence:         0xffffffff,
		}},
		// The genesis output is never added to the UTXO set.
		Outputs: []*externalapi.DomainTransactionOutput{{}},
	}
}

func newGenesisBlock(time uint32, bits uint32) externalapi.DomainBlock {
	transactions := []*externalapi.DomainTransaction{newGenesisCoinbase(time)}
	return externalapi.DomainBlock{
		Header: &externalapi.DomainBlockHeader{
			Version:        1,
			HashMerkleRoot: *merkle.CalculateHashMerkleRoot(transactions),
			Time:           time,
			Bits:           bits,
		},
		Transactions: transactions,
	}
}

// genesisBlock defines the genesis block of the main network.
var genesisBlock = newGenesisBlock(1598918400, 0x1d00ffff)

// genesisHash is the hash of the first block in the main network.
var genesisHash = consensushashing.BlockHash(&genesisBlock)

// testnetGenesisBlock defines the genesis block of the test network.
var testnetGenesisBlock = newGenesisBlock(1598918416, 0x1e7fffff)

// testnetGenesisHash is the hash of the first block in the test network.
var testnetGenesisHash = consensushashing.BlockHash(&testnetGenesisBlock)

// regtestGenesisBlock defines the genesis block of the regression test
// network.
var regtestGenesisBlock = newGenesisBlock(1598918432, 0x207fffff)

// regtestGenesisHash is the hash of the first block in the regression test
// network.
var regtestGenesisHash = consensushashing.BlockHash(&regtestGenesisBlock)
