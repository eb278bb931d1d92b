// Package dbcoinview implements the coin view layer that persists the UTXO
// set, its rewind data and its tip in the database.
package dbcoinview

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/database"
	"github.com/stakecore/stakecore/domain/consensus/database/binaryserialization"
	"github.com/stakecore/stakecore/domain/consensus/database/serialization"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/coinview"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	infrastructuredatabase "github.com/stakecore/stakecore/infrastructure/db/database"
)

var (
	coinsBucket  = infrastructuredatabase.MakeBucket([]byte("coins"))
	rewindBucket = infrastructuredatabase.MakeBucket([]byte("rewind"))
	tipKey       = infrastructuredatabase.MakeBucket().Key([]byte("tip"))
)

// ErrNotInitialized is returned when the database holds no tip.
var ErrNotInitialized = errors.New("coin view database is not initialized")

func coinsKey(transactionID *externalapi.DomainTransactionID) *infrastructuredatabase.Key {
	return coinsBucket.Key(transactionID.ByteSlice())
}

func rewindKey(height uint64) *infrastructuredatabase.Key {
	return rewindBucket.Key(binaryserialization.SerializeHeight(height))
}

// DBCoinView is the innermost coin view layer.
type DBCoinView struct {
	db             infrastructuredatabase.Database
	maxReorgLength uint64

	// writeLock serializes the read-check-write sequence of writers.
	writeLock sync.Mutex
}

// New instantiates a new DBCoinView. Rewind data more than maxReorgLength+1
// blocks below the tip is pruned.
func New(db infrastructuredatabase.Database, maxReorgLength uint64) *DBCoinView {
	return &DBCoinView{
		db:             db,
		maxReorgLength: maxReorgLength,
	}
}

// Kind returns model.CoinViewLayerDatabase
func (v *DBCoinView) Kind() model.CoinViewLayerKind {
	return model.CoinViewLayerDatabase
}

// Inner returns nil. The database layer wraps no other layer.
func (v *DBCoinView) Inner() model.CoinViewLayer {
	return nil
}

// Initialize sets the tip to the genesis block if the database holds no tip.
func (v *DBCoinView) Initialize(ctx context.Context, genesisHash *externalapi.DomainHash) error {
	v.writeLock.Lock()
	defer v.writeLock.Unlock()

	exists, err := v.db.Has(tipKey)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	log.Infof("Initializing the coin database at genesis %s", genesisHash)
	return v.db.Put(tipKey, serialization.SerializeTip(genesisHash, 0))
}

func readTip(dbContext infrastructuredatabase.DataAccessor) (*externalapi.DomainHash, uint64, error) {
	tipBytes, err := dbContext.Get(tipKey)
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, 0, errors.WithStack(ErrNotInitialized)
		}
		return nil, 0, err
	}
	return serialization.DeserializeTip(tipBytes)
}

// Tip returns the hash and the height of the tip.
func (v *DBCoinView) Tip(ctx context.Context) (*externalapi.DomainHash, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return readTip(v.db)
}

// TipHash returns the hash of the tip.
func (v *DBCoinView) TipHash(ctx context.Context) (*externalapi.DomainHash, error) {
	hash, _, err := v.Tip(ctx)
	return hash, err
}

// TipHeight returns the height of the tip.
func (v *DBCoinView) TipHeight(ctx context.Context) (uint64, error) {
	_, height, err := v.Tip(ctx)
	return height, err
}

// FetchCoins reads the tip and the requested records from a single snapshot.
func (v *DBCoinView) FetchCoins(ctx context.Context,
	transactionIDs []*externalapi.DomainTransactionID) (*model.FetchCoinsResponse, error) {

	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	dbTx, err := v.db.Begin()
	if err != nil {
		return nil, err
	}
	defer dbTx.RollbackUnlessClosed()

	tipHash, _, err := readTip(dbTx)
	if err != nil {
		return nil, err
	}

	unspentOutputs := make([]*externalapi.UnspentOutputs, len(transactionIDs))
	for i, transactionID := range transactionIDs {
		record, err := readCoins(dbTx, transactionID)
		if err != nil {
			return nil, err
		}
		unspentOutputs[i] = record
	}
	log.Tracef("Fetched %d records at tip %s", len(transactionIDs), tipHash)

	return &model.FetchCoinsResponse{
		UnspentOutputs: unspentOutputs,
		BlockHash:      tipHash,
	}, nil
}

func readCoins(dbContext infrastructuredatabase.DataAccessor,
	transactionID *externalapi.DomainTransactionID) (*externalapi.UnspentOutputs, error) {

	recordBytes, err := dbContext.Get(coinsKey(transactionID))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return serialization.DeserializeUnspentOutputs(recordBytes)
}

// SaveChanges applies the changes of one block. When rewindData is nil it is
// built from original.
func (v *DBCoinView) SaveChanges(ctx context.Context, modified []*externalapi.UnspentOutputs,
	original []*externalapi.UnspentOutputs, oldTip *externalapi.DomainHash, newTip *externalapi.DomainHash,
	height uint64, rewindData *externalapi.RewindData) error {

	if rewindData == nil {
		rewindData = coinview.BuildRewindData(height, oldTip, modified, original)
	}
	return v.SaveBatch(ctx, modified, oldTip, newTip, height, []*externalapi.RewindData{rewindData})
}

// SaveBatch applies the changes of a run of blocks in a single database
// transaction. Nothing is written if the tip is not oldTip.
func (v *DBCoinView) SaveBatch(ctx context.Context, modified []*externalapi.UnspentOutputs,
	oldTip *externalapi.DomainHash, newTip *externalapi.DomainHash, height uint64,
	rewindData []*externalapi.RewindData) error {

	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	v.writeLock.Lock()
	defer v.writeLock.Unlock()

	dbTx, err := v.db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	tipHash, tipHeight, err := readTip(dbTx)
	if err != nil {
		return err
	}
	if !tipHash.Equal(oldTip) {
		return errors.Wrapf(model.ErrTipMismatch, "expected tip %s but the database is at %s", oldTip, tipHash)
	}
	if height <= tipHeight {
		return errors.Errorf("cannot move the tip from height %d to height %d", tipHeight, height)
	}

	for _, unspentOutputs := range modified {
		key := coinsKey(&unspentOutputs.TransactionID)
		if unspentOutputs.IsPrunable() {
			err = dbTx.Delete(key)
		} else {
			err = dbTx.Put(key, serialization.SerializeUnspentOutputs(unspentOutputs))
		}
		if err != nil {
			return err
		}
	}

	for _, data := range rewindData {
		err = dbTx.Put(rewindKey(data.Height), serialization.SerializeRewindData(data))
		if err != nil {
			return err
		}
	}

	err = v.pruneRewindData(dbTx, height)
	if err != nil {
		return err
	}

	err = dbTx.Put(tipKey, serialization.SerializeTip(newTip, height))
	if err != nil {
		return err
	}

	err = dbTx.Commit()
	if err != nil {
		return err
	}
	log.Debugf("Saved %d records and %d rewind entries, tip moved to %s at height %d",
		len(modified), len(rewindData), newTip, height)
	return nil
}

// pruneRewindData deletes the rewind data below height - maxReorgLength - 1.
// The height below the reorg window is kept since disconnecting the tip
// moves the window down by one, and the rewind index reloads that height.
func (v *DBCoinView) pruneRewindData(dbTx infrastructuredatabase.Transaction, height uint64) error {
	if height <= v.maxReorgLength+1 {
		return nil
	}
	floor := height - v.maxReorgLength - 1

	cursor, err := dbTx.Cursor(rewindBucket)
	if err != nil {
		return err
	}
	defer cursor.Close()

	for ok := cursor.First(); ok; ok = cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return err
		}
		rewindHeight, err := binaryserialization.DeserializeHeight(key.Suffix())
		if err != nil {
			return err
		}
		// Keys are sorted by height.
		if rewindHeight >= floor {
			break
		}
		err = dbTx.Delete(key)
		if err != nil {
			return err
		}
		log.Tracef("Pruned the rewind data at height %d", rewindHeight)
	}
	return nil
}

// Rewind disconnects the tip block using its rewind data and returns the new
// tip hash. A missing rewind record is returned as model.ErrMissingRewindData.
func (v *DBCoinView) Rewind(ctx context.Context) (*externalapi.DomainHash, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	v.writeLock.Lock()
	defer v.writeLock.Unlock()

	dbTx, err := v.db.Begin()
	if err != nil {
		return nil, err
	}
	defer dbTx.RollbackUnlessClosed()

	tipHash, tipHeight, err := readTip(dbTx)
	if err != nil {
		return nil, err
	}
	rewindData, err := readRewindData(dbTx, tipHeight)
	if err != nil {
		if errors.Is(err, model.ErrRewindDataNotFound) {
			return nil, errors.Wrapf(model.ErrMissingRewindData,
				"cannot rewind %s at height %d", tipHash, tipHeight)
		}
		return nil, err
	}

	for i := range rewindData.TransactionsToRemove {
		err = dbTx.Delete(coinsKey(&rewindData.TransactionsToRemove[i]))
		if err != nil {
			return nil, err
		}
	}
	for _, unspentOutputs := range rewindData.OutputsToRestore {
		err = dbTx.Put(coinsKey(&unspentOutputs.TransactionID), serialization.SerializeUnspentOutputs(unspentOutputs))
		if err != nil {
			return nil, err
		}
	}
	err = dbTx.Delete(rewindKey(tipHeight))
	if err != nil {
		return nil, err
	}
	previousBlockHash := rewindData.PreviousBlockHash
	err = dbTx.Put(tipKey, serialization.SerializeTip(&previousBlockHash, tipHeight-1))
	if err != nil {
		return nil, err
	}

	err = dbTx.Commit()
	if err != nil {
		return nil, err
	}
	log.Debugf("Rewound %s at height %d, tip moved to %s", tipHash, tipHeight, &previousBlockHash)
	return &previousBlockHash, nil
}

func readRewindData(dbContext infrastructuredatabase.DataAccessor, height uint64) (*externalapi.RewindData, error) {
	rewindDataBytes, err := dbContext.Get(rewindKey(height))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.Wrapf(model.ErrRewindDataNotFound, "no rewind data at height %d", height)
		}
		return nil, err
	}
	return serialization.DeserializeRewindData(rewindDataBytes)
}

// RewindData returns the rewind data recorded at height.
func (v *DBCoinView) RewindData(ctx context.Context, height uint64) (*externalapi.RewindData, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return readRewindData(v.db, height)
}

// ForEachCoin calls fn for every record of the UTXO set, read from one
// snapshot.
func (v *DBCoinView) ForEachCoin(ctx context.Context,
	fn func(unspentOutputs *externalapi.UnspentOutputs) error) error {

	dbTx, err := v.db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	cursor, err := dbTx.Cursor(coinsBucket)
	if err != nil {
		return err
	}
	defer cursor.Close()

	for ok := cursor.First(); ok; ok = cursor.Next() {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		recordBytes, err := cursor.Value()
		if err != nil {
			return err
		}
		unspentOutputs, err := serialization.DeserializeUnspentOutputs(recordBytes)
		if err != nil {
			return err
		}
		err = fn(unspentOutputs)
		if err != nil {
			return err
		}
	}
	return nil
}
