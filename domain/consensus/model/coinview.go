package model

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// ErrTipMismatch is returned by SaveChanges when the view's tip is not the
// expected old tip. Nothing is applied. Callers retry against the current tip.
var ErrTipMismatch = errors.New("coin view tip mismatch")

// ErrMissingRewindData is returned by Rewind when no rewind data exists for
// the tip. The coin view can not be rewound any further, which means the
// reorg is deeper than supported or the store is corrupted.
var ErrMissingRewindData = errors.New("missing rewind data")

// ErrRewindDataNotFound is returned by RewindData for heights without data.
var ErrRewindDataNotFound = errors.New("rewind data not found")

// FetchCoinsResponse pairs the fetched records, in the order they were
// requested and nil when not found, with the tip they were read at.
type FetchCoinsResponse struct {
	UnspentOutputs []*externalapi.UnspentOutputs
	BlockHash      *externalapi.DomainHash
}

// CoinView is the UTXO set as of a tip.
type CoinView interface {
	// TipHash returns the hash of the block the view is at.
	TipHash(ctx context.Context) (*externalapi.DomainHash, error)

	// FetchCoins returns the records of the given transactions.
	FetchCoins(ctx context.Context, transactionIDs []*externalapi.DomainTransactionID) (*FetchCoinsResponse, error)

	// SaveChanges applies modified records and moves the tip from oldTip to
	// newTip at the given height. Prunable records are removed. original
	// holds the pre-block state of the records that existed before the
	// block, and rewindData may be passed when already built. The call
	// fails with ErrTipMismatch if the view is not at oldTip.
	SaveChanges(ctx context.Context, modified []*externalapi.UnspentOutputs, original []*externalapi.UnspentOutputs,
		oldTip *externalapi.DomainHash, newTip *externalapi.DomainHash, height uint64,
		rewindData *externalapi.RewindData) error

	// Rewind disconnects the tip block and returns the new tip hash.
	Rewind(ctx context.Context) (*externalapi.DomainHash, error)

	// RewindData returns the rewind data recorded at height, or an error
	// wrapping ErrRewindDataNotFound.
	RewindData(ctx context.Context, height uint64) (*externalapi.RewindData, error)
}

// CoinViewLayerKind identifies a layer of a coin view stack.
type CoinViewLayerKind int

const (
	// CoinViewLayerDatabase is the layer persisting to the database.
	CoinViewLayerDatabase CoinViewLayerKind = iota

	// CoinViewLayerCached is the write-back cache layer.
	CoinViewLayerCached
)

func (kind CoinViewLayerKind) String() string {
	switch kind {
	case CoinViewLayerDatabase:
		return "database"
	case CoinViewLayerCached:
		return "cached"
	default:
		return "unknown"
	}
}

// CoinViewLayer is a coin view that may wrap an inner one.
type CoinViewLayer interface {
	CoinView

	Kind() CoinViewLayerKind

	// Inner returns the wrapped layer, or nil for the innermost one.
	Inner() CoinViewLayer
}

// TransactionValidationHook lets an external engine veto a transaction
// once its inputs are known to exist.
type TransactionValidationHook interface {
	ValidateTransaction(ctx context.Context, tx *externalapi.DomainTransaction,
		transactionID *externalapi.DomainTransactionID, utxoSet *UnspentOutputSet) error
}

// BatchCoinView is a coin view layer that persists the changes of several
// blocks in one atomic write. A write-back cache flushes into it.
type BatchCoinView interface {
	CoinViewLayer
	CoinIterator

	// Tip returns the hash and the height of the block the view is at.
	Tip(ctx context.Context) (*externalapi.DomainHash, uint64, error)

	// SaveBatch is SaveChanges for a run of blocks ending at newTip, which
	// is at the given height. rewindData holds one entry per block.
	SaveBatch(ctx context.Context, modified []*externalapi.UnspentOutputs,
		oldTip *externalapi.DomainHash, newTip *externalapi.DomainHash, height uint64,
		rewindData []*externalapi.RewindData) error
}

// CoinIterator iterates over every record of a UTXO set.
type CoinIterator interface {
	ForEachCoin(ctx context.Context, fn func(unspentOutputs *externalapi.UnspentOutputs) error) error
}
