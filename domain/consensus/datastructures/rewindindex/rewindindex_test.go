package rewindindex

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/testutils"
)

const testMaxReorgLength = 10

// fakeRewindDataReader holds one record with two unspent outputs per height.
type fakeRewindDataReader struct {
	rewindData map[uint64]*externalapi.RewindData
}

func recordTransactionID(height uint64) externalapi.DomainTransactionID {
	return externalapi.DomainTransactionID(*testutils.HashFromUint(1000 + height))
}

func newFakeRewindDataReader(fromHeight, toHeight uint64) *fakeRewindDataReader {
	reader := &fakeRewindDataReader{rewindData: make(map[uint64]*externalapi.RewindData)}
	for height := fromHeight; height <= toHeight; height++ {
		reader.add(height)
	}
	return reader
}

func (r *fakeRewindDataReader) add(height uint64) {
	r.rewindData[height] = &externalapi.RewindData{
		Height:            height,
		PreviousBlockHash: *testutils.HashFromUint(height - 1),
		OutputsToRestore: []*externalapi.UnspentOutputs{{
			TransactionID: recordTransactionID(height),
			Height:        height - 1,
			Outputs: []*externalapi.DomainTransactionOutput{
				{Value: 1, ScriptPublicKey: []byte{0x51}},
				{Value: 2, ScriptPublicKey: []byte{0x51}},
			},
		}},
	}
}

func (r *fakeRewindDataReader) entriesAt(height uint64) map[externalapi.DomainOutpoint]uint64 {
	entries := make(map[externalapi.DomainOutpoint]uint64)
	for _, record := range r.rewindData[height].OutputsToRestore {
		for index := range record.Outputs {
			entries[externalapi.DomainOutpoint{TransactionID: record.TransactionID, Index: uint32(index)}] = height
		}
	}
	return entries
}

func (r *fakeRewindDataReader) RewindData(_ context.Context, height uint64) (*externalapi.RewindData, error) {
	rewindData, ok := r.rewindData[height]
	if !ok {
		return nil, errors.Wrapf(model.ErrRewindDataNotFound, "height %d", height)
	}
	return rewindData, nil
}

func assertWindow(t *testing.T, index *RewindIndex, tipHeight uint64) {
	lowest, highest, ok := index.Heights()
	if !ok {
		return
	}
	bottom := uint64(0)
	if tipHeight > testMaxReorgLength {
		bottom = tipHeight - testMaxReorgLength
	}
	if lowest < bottom || highest > tipHeight {
		t.Fatalf("entries span [%d, %d] outside of the window [%d, %d]", lowest, highest, bottom, tipHeight)
	}
}

func TestInitializeAndFlush(t *testing.T) {
	reader := newFakeRewindDataReader(1, 20)
	index := New(testMaxReorgLength)

	err := index.Initialize(context.Background(), 20, reader)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	if index.Count() != 22 {
		t.Fatalf("expected 22 entries after initializing at 20, got %d", index.Count())
	}
	assertWindow(t, index, 20)

	index.Flush(15)
	if index.Count() != 12 {
		t.Fatalf("expected 12 entries after flushing at 15, got %d", index.Count())
	}
	assertWindow(t, index, 15)

	outpoint := externalapi.NewDomainOutpoint(
		externalapi.NewDomainTransactionIDFromByteArray(testutils.HashFromUint(1012).ByteArray()), 1)
	height, ok := index.Get(outpoint)
	if !ok || height != 12 {
		t.Fatalf("expected %s at height 12, got %d, %t", outpoint, height, ok)
	}
}

func TestInitializeBelowWindow(t *testing.T) {
	reader := newFakeRewindDataReader(1, 4)
	index := New(testMaxReorgLength)

	err := index.Initialize(context.Background(), 4, reader)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	// Height 0 has no rewind data.
	if index.Count() != 8 {
		t.Fatalf("expected 8 entries, got %d", index.Count())
	}
}

func TestInitializePropagatesReadErrors(t *testing.T) {
	index := New(testMaxReorgLength)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := index.Initialize(ctx, 20, newFakeRewindDataReader(1, 20))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRemoveRestoresWindowBottom(t *testing.T) {
	reader := newFakeRewindDataReader(1, 20)
	index := New(testMaxReorgLength)
	err := index.Initialize(context.Background(), 20, reader)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}

	err = index.Remove(context.Background(), 19, reader)
	if err != nil {
		t.Fatalf("Remove: %s", err)
	}
	// Heights 9..19.
	if index.Count() != 22 {
		t.Fatalf("expected 22 entries after removing height 20, got %d", index.Count())
	}
	assertWindow(t, index, 19)
	_, ok := index.Get(externalapi.NewDomainOutpoint(
		externalapi.NewDomainTransactionIDFromByteArray(testutils.HashFromUint(1020).ByteArray()), 0))
	if ok {
		t.Fatalf("the rewound block's entries must be removed")
	}
	_, ok = index.Get(externalapi.NewDomainOutpoint(
		externalapi.NewDomainTransactionIDFromByteArray(testutils.HashFromUint(1009).ByteArray()), 0))
	if !ok {
		t.Fatalf("the window bottom must be reloaded")
	}
}

func TestWindowHoldsOverRandomOperations(t *testing.T) {
	ctx := context.Background()
	random := rand.New(rand.NewSource(42))
	reader := newFakeRewindDataReader(1, 5)
	index := New(testMaxReorgLength)
	tipHeight := uint64(5)
	err := index.Initialize(ctx, tipHeight, reader)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}

	for i := 0; i < 500; i++ {
		if tipHeight > 1 && random.Intn(3) == 0 {
			delete(reader.rewindData, tipHeight)
			tipHeight--
			err := index.Remove(ctx, tipHeight, reader)
			if err != nil {
				t.Fatalf("Remove: %s", err)
			}
		} else {
			tipHeight++
			reader.add(tipHeight)
			index.Save(reader.entriesAt(tipHeight))
			index.Flush(tipHeight)
		}
		assertWindow(t, index, tipHeight)
	}
}
