// Package rewindindex maps outputs spent on the active chain to the height
// of the rewind data that still holds them, within the reorg window.
package rewindindex

import (
	"context"
	"sync"

	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

const initialCapacity = 1024

// RewindDataReader is the part of a coin view the index reads from.
type RewindDataReader interface {
	RewindData(ctx context.Context, height uint64) (*externalapi.RewindData, error)
}

// RewindIndex is an in-memory outpoint to rewind height index. Every entry's
// height lies in [tip-maxReorgLength, tip] of the last flushed tip.
type RewindIndex struct {
	maxReorgLength uint64

	lock    sync.RWMutex
	entries *swiss.Map[externalapi.DomainOutpoint, uint64]
}

// New instantiates a new, empty RewindIndex.
func New(maxReorgLength uint64) *RewindIndex {
	return &RewindIndex{
		maxReorgLength: maxReorgLength,
		entries:        swiss.NewMap[externalapi.DomainOutpoint, uint64](initialCapacity),
	}
}

func (ri *RewindIndex) windowBottom(tipHeight uint64) uint64 {
	if tipHeight < ri.maxReorgLength {
		return 0
	}
	return tipHeight - ri.maxReorgLength
}

// Initialize rebuilds the index from the rewind data of every height in the
// window ending at tipHeight. Heights without rewind data are skipped.
func (ri *RewindIndex) Initialize(ctx context.Context, tipHeight uint64, view RewindDataReader) error {
	ri.lock.Lock()
	defer ri.lock.Unlock()

	ri.entries = swiss.NewMap[externalapi.DomainOutpoint, uint64](initialCapacity)
	bottom := ri.windowBottom(tipHeight)
	for height := tipHeight; ; height-- {
		err := ri.loadHeight(ctx, height, view)
		if err != nil {
			return err
		}
		if height == bottom {
			break
		}
	}
	log.Debugf("Initialized the rewind index at height %d with %d entries", tipHeight, ri.entries.Count())
	return nil
}

func (ri *RewindIndex) loadHeight(ctx context.Context, height uint64, view RewindDataReader) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	rewindData, err := view.RewindData(ctx, height)
	if err != nil {
		if errors.Is(err, model.ErrRewindDataNotFound) {
			return nil
		}
		return err
	}
	for _, unspentOutputs := range rewindData.OutputsToRestore {
		for index := range unspentOutputs.Outputs {
			if !unspentOutputs.IsAvailable(uint32(index)) {
				continue
			}
			outpoint := externalapi.DomainOutpoint{TransactionID: unspentOutputs.TransactionID, Index: uint32(index)}
			ri.entries.Put(outpoint, height)
		}
	}
	return nil
}

// Save adds the entries produced while connecting a block.
func (ri *RewindIndex) Save(entries map[externalapi.DomainOutpoint]uint64) {
	ri.lock.Lock()
	defer ri.lock.Unlock()

	for outpoint, height := range entries {
		ri.entries.Put(outpoint, height)
	}
}

// Flush evicts the entries below tipHeight-maxReorgLength and the entries
// above tipHeight.
func (ri *RewindIndex) Flush(tipHeight uint64) {
	ri.lock.Lock()
	defer ri.lock.Unlock()

	ri.flush(tipHeight)
}

func (ri *RewindIndex) flush(tipHeight uint64) {
	bottom := ri.windowBottom(tipHeight)
	var evicted []externalapi.DomainOutpoint
	ri.entries.Iter(func(outpoint externalapi.DomainOutpoint, height uint64) (stop bool) {
		if height < bottom || height > tipHeight {
			evicted = append(evicted, outpoint)
		}
		return false
	})
	for _, outpoint := range evicted {
		ri.entries.Delete(outpoint)
	}
}

// Remove is called with the new tip after the block above it was rewound.
// It drops the rewound block's entries and reloads the bottom height of the
// window, which connecting the rewound block had evicted.
func (ri *RewindIndex) Remove(ctx context.Context, tipHeight uint64, view RewindDataReader) error {
	ri.lock.Lock()
	defer ri.lock.Unlock()

	ri.flush(tipHeight)
	return ri.loadHeight(ctx, ri.windowBottom(tipHeight), view)
}

// Get returns the rewind height recorded for outpoint.
func (ri *RewindIndex) Get(outpoint *externalapi.DomainOutpoint) (uint64, bool) {
	ri.lock.RLock()
	defer ri.lock.RUnlock()

	return ri.entries.Get(*outpoint)
}

// Count returns the number of entries.
func (ri *RewindIndex) Count() int {
	ri.lock.RLock()
	defer ri.lock.RUnlock()

	return ri.entries.Count()
}

// Heights returns the lowest and the highest height in the index. ok is
// false for an empty index.
func (ri *RewindIndex) Heights() (lowest uint64, highest uint64, ok bool) {
	ri.lock.RLock()
	defer ri.lock.RUnlock()

	ri.entries.Iter(func(_ externalapi.DomainOutpoint, height uint64) (stop bool) {
		if !ok || height < lowest {
			lowest = height
		}
		if !ok || height > highest {
			highest = height
		}
		ok = true
		return false
	})
	return lowest, highest, ok
}
