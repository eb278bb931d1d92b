package headertree

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/testutils"
)

func TestHeaderTree(t *testing.T) {
	genesis := chaincfg.RegressionNetParams.GenesisBlock.Header
	tree := New(genesis)
	if !tree.Tip().Hash.Equal(chaincfg.RegressionNetParams.GenesisHash) {
		t.Fatalf("expected the genesis tip %s, got %s", chaincfg.RegressionNetParams.GenesisHash, tree.Tip().Hash)
	}

	header := &externalapi.DomainBlockHeader{
		Version:           1,
		PreviousBlockHash: *tree.Tip().Hash,
		Time:              genesis.Time + 16,
		Bits:              genesis.Bits,
	}
	child, err := tree.Add(header)
	if err != nil {
		t.Fatalf("Add: %s", err)
	}
	if child.Height != 1 || child.Previous != tree.Tip() {
		t.Fatalf("unexpected chained header %s", child)
	}
	again, err := tree.Add(header.Clone())
	if err != nil || again != child {
		t.Fatalf("adding a known header must return the existing chained header")
	}
	if tree.Len() != 2 {
		t.Fatalf("expected 2 headers, got %d", tree.Len())
	}

	err = tree.SetTip(child)
	if err != nil {
		t.Fatalf("SetTip: %s", err)
	}
	found, ok := tree.Get(child.Hash)
	if !ok || found != tree.Tip() {
		t.Fatalf("expected to find the new tip")
	}

	orphan := &externalapi.DomainBlockHeader{Version: 1, PreviousBlockHash: *testutils.HashFromUint(99)}
	_, err = tree.Add(orphan)
	if !errors.Is(err, ErrUnknownPrevious) {
		t.Fatalf("expected ErrUnknownPrevious, got %v", err)
	}
}
