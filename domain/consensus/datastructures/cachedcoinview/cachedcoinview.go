// Package cachedcoinview implements a write-back cache layer in front of a
// persistent coin view.
package cachedcoinview

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/coinview"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/infrastructure/logger"
)

// Config holds the limits of the cache.
type Config struct {
	// MaxItems is the number of records kept after a flush. Clean records
	// beyond it are evicted.
	MaxItems int

	// MaxDirtyItems is the number of modified records that triggers a
	// flush. Zero disables the threshold.
	MaxDirtyItems int

	// FlushInterval is the longest time modified records stay unflushed.
	// Zero disables time based flushing.
	FlushInterval time.Duration
}

// Statistics are counters describing the cache activity.
type Statistics struct {
	Hits              uint64
	Misses            uint64
	Flushes           uint64
	Items             int
	DirtyItems        int
	PendingRewindData int
}

type cacheItem struct {
	// unspentOutputs is nil for transactions known to be missing.
	unspentOutputs *externalapi.UnspentOutputs
	existsInInner  bool
	isDirty        bool
}

// CachedCoinView keeps the records blocks read and write in memory and
// writes them to the inner view in batches. Every change is visible to
// readers of the cache as soon as SaveChanges returns.
type CachedCoinView struct {
	inner  model.BatchCoinView
	config Config

	lock              sync.Mutex
	items             map[externalapi.DomainTransactionID]*cacheItem
	dirtyCount        int
	pendingRewindData map[uint64]*externalapi.RewindData
	tipHash           *externalapi.DomainHash
	tipHeight         uint64
	innerTipHash      *externalapi.DomainHash
	lastFlush         time.Time
	statistics        Statistics
}

// New instantiates a new CachedCoinView on top of inner.
func New(inner model.BatchCoinView, config Config) *CachedCoinView {
	return &CachedCoinView{
		inner:             inner,
		config:            config,
		items:             make(map[externalapi.DomainTransactionID]*cacheItem),
		pendingRewindData: make(map[uint64]*externalapi.RewindData),
	}
}

// Kind returns model.CoinViewLayerCached
func (v *CachedCoinView) Kind() model.CoinViewLayerKind {
	return model.CoinViewLayerCached
}

// Inner returns the view the cache flushes to.
func (v *CachedCoinView) Inner() model.CoinViewLayer {
	return v.inner
}

// ensureTip loads the tip from the inner view on first use.
func (v *CachedCoinView) ensureTip(ctx context.Context) error {
	if v.tipHash != nil {
		return nil
	}
	tipHash, tipHeight, err := v.inner.Tip(ctx)
	if err != nil {
		return err
	}
	v.tipHash = tipHash
	v.tipHeight = tipHeight
	v.innerTipHash = tipHash
	v.lastFlush = time.Now()
	return nil
}

// Tip returns the hash and the height of the cache's tip.
func (v *CachedCoinView) Tip(ctx context.Context) (*externalapi.DomainHash, uint64, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	err := v.ensureTip(ctx)
	if err != nil {
		return nil, 0, err
	}
	return v.tipHash, v.tipHeight, nil
}

// TipHash returns the hash of the cache's tip, which may be ahead of the
// inner view's tip.
func (v *CachedCoinView) TipHash(ctx context.Context) (*externalapi.DomainHash, error) {
	tipHash, _, err := v.Tip(ctx)
	return tipHash, err
}

// FetchCoins returns clones of the cached records and fetches the rest from
// the inner view in a single call.
func (v *CachedCoinView) FetchCoins(ctx context.Context,
	transactionIDs []*externalapi.DomainTransactionID) (*model.FetchCoinsResponse, error) {

	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	err := v.ensureTip(ctx)
	if err != nil {
		return nil, err
	}

	unspentOutputs := make([]*externalapi.UnspentOutputs, len(transactionIDs))
	var missIndexes []int
	var missIDs []*externalapi.DomainTransactionID
	for i, transactionID := range transactionIDs {
		item, ok := v.items[*transactionID]
		if !ok {
			missIndexes = append(missIndexes, i)
			missIDs = append(missIDs, transactionID)
			continue
		}
		v.statistics.Hits++
		unspentOutputs[i] = item.unspentOutputs.Clone()
	}

	if len(missIDs) > 0 {
		v.statistics.Misses += uint64(len(missIDs))
		response, err := v.inner.FetchCoins(ctx, missIDs)
		if err != nil {
			return nil, err
		}
		if !response.BlockHash.Equal(v.innerTipHash) {
			return nil, errors.Wrapf(model.ErrTipMismatch,
				"the inner view moved to %s behind the cache, expected %s", response.BlockHash, v.innerTipHash)
		}
		for j, record := range response.UnspentOutputs {
			v.items[*missIDs[j]] = &cacheItem{
				unspentOutputs: record.Clone(),
				existsInInner:  record != nil,
			}
			unspentOutputs[missIndexes[j]] = record
		}
	}

	return &model.FetchCoinsResponse{
		UnspentOutputs: unspentOutputs,
		BlockHash:      v.tipHash,
	}, nil
}

// SaveChanges stores the changes of one block in the cache and flushes if
// a flush threshold was reached. original must hold the pre-block state of
// every modified record that existed before the block.
func (v *CachedCoinView) SaveChanges(ctx context.Context, modified []*externalapi.UnspentOutputs,
	original []*externalapi.UnspentOutputs, oldTip *externalapi.DomainHash, newTip *externalapi.DomainHash,
	height uint64, rewindData *externalapi.RewindData) error {

	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	err := v.ensureTip(ctx)
	if err != nil {
		return err
	}
	if !v.tipHash.Equal(oldTip) {
		return errors.Wrapf(model.ErrTipMismatch, "expected tip %s but the cache is at %s", oldTip, v.tipHash)
	}
	if height != v.tipHeight+1 {
		return errors.Errorf("cannot connect height %d on top of height %d", height, v.tipHeight)
	}

	if rewindData == nil {
		rewindData = coinview.BuildRewindData(height, oldTip, modified, original)
	} else {
		rewindData = rewindData.Clone()
	}

	for _, unspentOutputs := range modified {
		item, ok := v.items[unspentOutputs.TransactionID]
		if !ok {
			// Not known to be absent from the inner view.
			item = &cacheItem{existsInInner: true}
			v.items[unspentOutputs.TransactionID] = item
		}
		item.unspentOutputs = unspentOutputs.Clone()
		if !item.isDirty {
			item.isDirty = true
			v.dirtyCount++
		}
	}
	v.pendingRewindData[height] = rewindData
	v.tipHash = newTip
	v.tipHeight = height

	err = v.flush(ctx, false)
	if err != nil {
		// The changes stay cached and are written by the next flush.
		log.Errorf("Flushing the coin cache failed: %+v", err)
	}
	return nil
}

// Flush writes the modified records and the pending rewind data to the inner
// view when forced or when a flush threshold was reached.
func (v *CachedCoinView) Flush(ctx context.Context, force bool) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	err := v.ensureTip(ctx)
	if err != nil {
		return err
	}
	return v.flush(ctx, force)
}

func (v *CachedCoinView) shouldFlush(force bool) bool {
	if force {
		return true
	}
	if v.config.MaxDirtyItems > 0 && v.dirtyCount >= v.config.MaxDirtyItems {
		return true
	}
	return v.config.FlushInterval > 0 && time.Since(v.lastFlush) >= v.config.FlushInterval
}

func (v *CachedCoinView) flush(ctx context.Context, force bool) error {
	if !v.shouldFlush(force) {
		v.trim()
		return nil
	}
	if v.dirtyCount == 0 && len(v.pendingRewindData) == 0 {
		v.lastFlush = time.Now()
		v.trim()
		return nil
	}

	onEnd := logger.LogAndMeasureExecutionTime(log, "CachedCoinView.flush")
	defer onEnd()

	modified := make([]*externalapi.UnspentOutputs, 0, v.dirtyCount)
	for _, item := range v.items {
		if !item.isDirty {
			continue
		}
		if item.unspentOutputs.IsPrunable() && !item.existsInInner {
			continue
		}
		modified = append(modified, item.unspentOutputs)
	}

	rewindData := make([]*externalapi.RewindData, 0, len(v.pendingRewindData))
	for _, data := range v.pendingRewindData {
		rewindData = append(rewindData, data)
	}
	sort.Slice(rewindData, func(i, j int) bool { return rewindData[i].Height < rewindData[j].Height })

	err := v.inner.SaveBatch(ctx, modified, v.innerTipHash, v.tipHash, v.tipHeight, rewindData)
	if err != nil {
		return err
	}

	for transactionID, item := range v.items {
		if !item.isDirty {
			continue
		}
		if item.unspentOutputs.IsPrunable() {
			delete(v.items, transactionID)
			continue
		}
		item.isDirty = false
		item.existsInInner = true
	}
	log.Debugf("Flushed %d records and %d rewind entries up to %s at height %d",
		len(modified), len(rewindData), v.tipHash, v.tipHeight)

	v.dirtyCount = 0
	v.pendingRewindData = make(map[uint64]*externalapi.RewindData)
	v.innerTipHash = v.tipHash
	v.lastFlush = time.Now()
	v.statistics.Flushes++
	v.trim()
	return nil
}

// trim evicts clean records until the cache holds at most MaxItems records.
func (v *CachedCoinView) trim() {
	if len(v.items) <= v.config.MaxItems {
		return
	}
	for transactionID, item := range v.items {
		if len(v.items) <= v.config.MaxItems {
			return
		}
		if !item.isDirty {
			delete(v.items, transactionID)
		}
	}
}

// Rewind flushes the cache, rewinds the inner view and clears the cache.
func (v *CachedCoinView) Rewind(ctx context.Context) (*externalapi.DomainHash, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	err := v.ensureTip(ctx)
	if err != nil {
		return nil, err
	}
	err = v.flush(ctx, true)
	if err != nil {
		return nil, err
	}

	newTip, err := v.inner.Rewind(ctx)
	if err != nil {
		return nil, err
	}
	v.items = make(map[externalapi.DomainTransactionID]*cacheItem)
	v.tipHash = newTip
	v.tipHeight--
	v.innerTipHash = newTip
	return newTip, nil
}

// RewindData returns the unflushed rewind data at height, or the inner
// view's.
func (v *CachedCoinView) RewindData(ctx context.Context, height uint64) (*externalapi.RewindData, error) {
	v.lock.Lock()
	rewindData, ok := v.pendingRewindData[height]
	v.lock.Unlock()

	if ok {
		return rewindData.Clone(), nil
	}
	return v.inner.RewindData(ctx, height)
}

// ForEachCoin flushes the cache and iterates the inner view.
func (v *CachedCoinView) ForEachCoin(ctx context.Context,
	fn func(unspentOutputs *externalapi.UnspentOutputs) error) error {

	err := v.Flush(ctx, true)
	if err != nil {
		return err
	}
	return v.inner.ForEachCoin(ctx, fn)
}

// Statistics returns the cache counters.
func (v *CachedCoinView) Statistics() Statistics {
	v.lock.Lock()
	defer v.lock.Unlock()

	statistics := v.statistics
	statistics.Items = len(v.items)
	statistics.DirtyItems = v.dirtyCount
	statistics.PendingRewindData = len(v.pendingRewindData)
	return statistics
}

// Start spawns a goroutine flushing the cache every FlushInterval until ctx
// is done. It does nothing when FlushInterval is zero.
func (v *CachedCoinView) Start(ctx context.Context) {
	if v.config.FlushInterval <= 0 {
		return
	}
	spawn("CachedCoinView.Start", func() {
		ticker := time.NewTicker(v.config.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := v.Flush(ctx, false)
				if err != nil && ctx.Err() == nil {
					log.Errorf("Periodic coin cache flush failed: %+v", err)
				}
			}
		}
	})
}
