package cachedcoinview

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/coinview"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/dbcoinview"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
	"github.com/stakecore/stakecore/domain/consensus/utils/testutils"
	"github.com/stakecore/stakecore/infrastructure/db/database/ldb"
)

var genesisHash = testutils.HashFromUint(0)

func prepareCachedViewForTest(t *testing.T, config Config) (cache *CachedCoinView, inner *dbcoinview.DBCoinView,
	teardownFunc func()) {

	db, err := ldb.NewLevelDB(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("NewLevelDB: %s", err)
	}
	inner = dbcoinview.New(db, 10)
	err = inner.Initialize(context.Background(), genesisHash)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	return New(inner, config), inner, func() {
		err := db.Close()
		if err != nil {
			t.Fatalf("Close: %s", err)
		}
	}
}

// failingCoinView fails every SaveBatch while failSaves is set.
type failingCoinView struct {
	model.BatchCoinView
	failSaves bool
}

var errInjected = errors.New("injected failure")

func (v *failingCoinView) SaveBatch(ctx context.Context, modified []*externalapi.UnspentOutputs,
	oldTip *externalapi.DomainHash, newTip *externalapi.DomainHash, height uint64,
	rewindData []*externalapi.RewindData) error {

	if v.failSaves {
		return errInjected
	}
	return v.BatchCoinView.SaveBatch(ctx, modified, oldTip, newTip, height, rewindData)
}

func TestReadAfterWriteBeforeFlush(t *testing.T) {
	ctx := context.Background()
	cache, inner, teardown := prepareCachedViewForTest(t, Config{MaxItems: 100, MaxDirtyItems: 100})
	defer teardown()

	tx := testutils.NewCoinbase(1, 50)
	txID := consensushashing.TransactionID(tx)
	block1 := testutils.HashFromUint(1)
	err := testutils.ConnectTransactions(ctx, cache, block1, 1, []*externalapi.DomainTransaction{tx})
	if err != nil {
		t.Fatalf("ConnectTransactions: %s", err)
	}

	response, err := cache.FetchCoins(ctx, []*externalapi.DomainTransactionID{txID})
	if err != nil {
		t.Fatalf("FetchCoins: %s", err)
	}
	if !response.BlockHash.Equal(block1) {
		t.Fatalf("expected the cache tip %s, got %s", block1, response.BlockHash)
	}
	if response.UnspentOutputs[0] == nil || !response.UnspentOutputs[0].IsAvailable(0) {
		t.Fatalf("expected the new record to be readable from the cache, got %v", response.UnspentOutputs[0])
	}

	innerTip, err := inner.TipHash(ctx)
	if err != nil {
		t.Fatalf("TipHash: %s", err)
	}
	if !innerTip.Equal(genesisHash) {
		t.Fatalf("expected the database to still be at genesis, got %s", innerTip)
	}

	// Mutating a fetched record must not affect the cache.
	response.UnspentOutputs[0].Spend(0)
	response, err = cache.FetchCoins(ctx, []*externalapi.DomainTransactionID{txID})
	if err != nil {
		t.Fatalf("FetchCoins: %s", err)
	}
	if !response.UnspentOutputs[0].IsAvailable(0) {
		t.Fatalf("a caller's mutation leaked into the cache")
	}
}

func TestFlushOnDirtyThreshold(t *testing.T) {
	ctx := context.Background()
	cache, inner, teardown := prepareCachedViewForTest(t, Config{MaxItems: 100, MaxDirtyItems: 3})
	defer teardown()

	for height := uint64(1); height <= 2; height++ {
		tx := testutils.NewCoinbase(uint32(height), 50)
		err := testutils.ConnectTransactions(ctx, cache, testutils.HashFromUint(height), height,
			[]*externalapi.DomainTransaction{tx})
		if err != nil {
			t.Fatalf("ConnectTransactions: %s", err)
		}
	}
	if cache.Statistics().Flushes != 0 {
		t.Fatalf("expected no flush below the threshold")
	}
	if cache.Statistics().PendingRewindData != 2 {
		t.Fatalf("expected 2 pending rewind entries, got %d", cache.Statistics().PendingRewindData)
	}

	tx := testutils.NewCoinbase(3, 50)
	block3 := testutils.HashFromUint(3)
	err := testutils.ConnectTransactions(ctx, cache, block3, 3, []*externalapi.DomainTransaction{tx})
	if err != nil {
		t.Fatalf("ConnectTransactions: %s", err)
	}
	statistics := cache.Statistics()
	if statistics.Flushes != 1 || statistics.DirtyItems != 0 || statistics.PendingRewindData != 0 {
		t.Fatalf("expected one flush emptying the dirty set, got %+v", statistics)
	}
	innerTip, innerHeight, err := inner.Tip(ctx)
	if err != nil {
		t.Fatalf("Tip: %s", err)
	}
	if !innerTip.Equal(block3) || innerHeight != 3 {
		t.Fatalf("expected the database at %s:3, got %s:%d", block3, innerTip, innerHeight)
	}
	for height := uint64(1); height <= 3; height++ {
		_, err := inner.RewindData(ctx, height)
		if err != nil {
			t.Fatalf("expected flushed rewind data at height %d: %s", height, err)
		}
	}
}

func TestZeroDirtyThresholdDoesNotFlush(t *testing.T) {
	ctx := context.Background()
	cache, inner, teardown := prepareCachedViewForTest(t, Config{MaxItems: 100})
	defer teardown()

	for height := uint64(1); height <= 5; height++ {
		tx := testutils.NewCoinbase(uint32(height), 50)
		err := testutils.ConnectTransactions(ctx, cache, testutils.HashFromUint(height), height,
			[]*externalapi.DomainTransaction{tx})
		if err != nil {
			t.Fatalf("ConnectTransactions: %s", err)
		}
	}
	statistics := cache.Statistics()
	if statistics.Flushes != 0 || statistics.DirtyItems != 5 {
		t.Fatalf("expected 5 unflushed records without a dirty threshold, got %+v", statistics)
	}
	innerTip, err := inner.TipHash(ctx)
	if err != nil {
		t.Fatalf("TipHash: %s", err)
	}
	if !innerTip.Equal(genesisHash) {
		t.Fatalf("expected the database to still be at genesis, got %s", innerTip)
	}

	err = cache.Flush(ctx, true)
	if err != nil {
		t.Fatalf("Flush: %s", err)
	}
	if cache.Statistics().Flushes != 1 {
		t.Fatalf("expected a forced flush, got %+v", cache.Statistics())
	}
}

func TestFailedFlushLeavesCacheUnchanged(t *testing.T) {
	ctx := context.Background()
	cache, inner, teardown := prepareCachedViewForTest(t, Config{MaxItems: 100, MaxDirtyItems: 100})
	defer teardown()

	failing := &failingCoinView{BatchCoinView: inner, failSaves: true}
	cache.inner = failing

	tx := testutils.NewCoinbase(1, 50)
	txID := consensushashing.TransactionID(tx)
	block1 := testutils.HashFromUint(1)
	err := testutils.ConnectTransactions(ctx, cache, block1, 1, []*externalapi.DomainTransaction{tx})
	if err != nil {
		t.Fatalf("ConnectTransactions: %s", err)
	}

	err = cache.Flush(ctx, true)
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected the injected error, got %v", err)
	}
	statistics := cache.Statistics()
	if statistics.DirtyItems != 1 || statistics.PendingRewindData != 1 || statistics.Flushes != 0 {
		t.Fatalf("expected the dirty state to survive the failed flush, got %+v", statistics)
	}
	tipHash, err := cache.TipHash(ctx)
	if err != nil {
		t.Fatalf("TipHash: %s", err)
	}
	if !tipHash.Equal(block1) {
		t.Fatalf("expected the cache tip %s, got %s", block1, tipHash)
	}

	failing.failSaves = false
	err = cache.Flush(ctx, true)
	if err != nil {
		t.Fatalf("Flush: %s", err)
	}
	response, err := inner.FetchCoins(ctx, []*externalapi.DomainTransactionID{txID})
	if err != nil {
		t.Fatalf("FetchCoins: %s", err)
	}
	if !response.BlockHash.Equal(block1) || response.UnspentOutputs[0] == nil {
		t.Fatalf("expected the retried flush to persist the record at %s", block1)
	}
}

func TestSaveChangesChecks(t *testing.T) {
	ctx := context.Background()
	cache, _, teardown := prepareCachedViewForTest(t, Config{MaxItems: 100, MaxDirtyItems: 100})
	defer teardown()

	err := cache.SaveChanges(ctx, nil, nil, testutils.HashFromUint(7), testutils.HashFromUint(8), 1, nil)
	if !errors.Is(err, model.ErrTipMismatch) {
		t.Fatalf("expected ErrTipMismatch, got %v", err)
	}
	err = cache.SaveChanges(ctx, nil, nil, genesisHash, testutils.HashFromUint(8), 5, nil)
	if err == nil {
		t.Fatalf("expected an error when skipping heights")
	}
}

func TestRewindThroughCache(t *testing.T) {
	ctx := context.Background()
	cache, _, teardown := prepareCachedViewForTest(t, Config{MaxItems: 100, MaxDirtyItems: 100})
	defer teardown()

	tx1 := testutils.NewCoinbase(1, 10, 20)
	tx1ID := consensushashing.TransactionID(tx1)
	err := testutils.ConnectTransactions(ctx, cache, testutils.HashFromUint(1), 1,
		[]*externalapi.DomainTransaction{tx1})
	if err != nil {
		t.Fatalf("ConnectTransactions: %s", err)
	}
	before, err := testutils.DumpCoins(ctx, cache)
	if err != nil {
		t.Fatalf("DumpCoins: %s", err)
	}

	spend := testutils.NewSpend([]*externalapi.DomainOutpoint{externalapi.NewDomainOutpoint(tx1ID, 1)}, 19)
	err = testutils.ConnectTransactions(ctx, cache, testutils.HashFromUint(2), 2,
		[]*externalapi.DomainTransaction{spend})
	if err != nil {
		t.Fatalf("ConnectTransactions: %s", err)
	}
	rewindData, err := cache.RewindData(ctx, 2)
	if err != nil {
		t.Fatalf("RewindData: %s", err)
	}
	if len(rewindData.OutputsToRestore) != 1 || len(rewindData.TransactionsToRemove) != 1 {
		t.Fatalf("unexpected pending rewind data %+v", rewindData)
	}

	newTip, err := cache.Rewind(ctx)
	if err != nil {
		t.Fatalf("Rewind: %s", err)
	}
	if !newTip.Equal(testutils.HashFromUint(1)) {
		t.Fatalf("expected to rewind to block 1, got %s", newTip)
	}
	_, height, err := cache.Tip(ctx)
	if err != nil {
		t.Fatalf("Tip: %s", err)
	}
	if height != 1 {
		t.Fatalf("expected height 1 after the rewind, got %d", height)
	}
	after, err := testutils.DumpCoins(ctx, cache)
	if err != nil {
		t.Fatalf("DumpCoins: %s", err)
	}
	if len(before) != len(after) {
		t.Fatalf("expected %d records after the rewind, got %d", len(before), len(after))
	}
	for i := range before {
		if string(before[i]) != string(after[i]) {
			t.Fatalf("record %d differs after the rewind", i)
		}
	}
}

func TestTrimKeepsDirtyItems(t *testing.T) {
	ctx := context.Background()
	cache, _, teardown := prepareCachedViewForTest(t, Config{MaxItems: 1, MaxDirtyItems: 100})
	defer teardown()

	for height := uint64(1); height <= 3; height++ {
		tx := testutils.NewCoinbase(uint32(height), 50)
		err := testutils.ConnectTransactions(ctx, cache, testutils.HashFromUint(height), height,
			[]*externalapi.DomainTransaction{tx})
		if err != nil {
			t.Fatalf("ConnectTransactions: %s", err)
		}
	}
	if cache.Statistics().Items != 3 {
		t.Fatalf("dirty items must not be evicted, got %d items", cache.Statistics().Items)
	}
	err := cache.Flush(ctx, true)
	if err != nil {
		t.Fatalf("Flush: %s", err)
	}
	if cache.Statistics().Items != 1 {
		t.Fatalf("expected the cache trimmed to 1 item, got %d", cache.Statistics().Items)
	}
}

func TestLayerDiscoveryThroughCache(t *testing.T) {
	cache, inner, teardown := prepareCachedViewForTest(t, Config{MaxItems: 100, MaxDirtyItems: 100})
	defer teardown()

	layer, ok := coinview.FindLayer(cache, model.CoinViewLayerDatabase)
	if !ok || layer != model.CoinViewLayer(inner) {
		t.Fatalf("expected to find the database layer behind the cache")
	}
	layer, ok = coinview.FindLayer(cache, model.CoinViewLayerCached)
	if !ok || layer != model.CoinViewLayer(cache) {
		t.Fatalf("expected the cache to be its own cached layer")
	}
}
