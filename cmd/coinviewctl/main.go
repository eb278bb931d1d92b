package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/cachedcoinview"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/coinview"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/dbcoinview"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/rewindindex"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/infrastructure/db/database/ldb"
	"github.com/stakecore/stakecore/infrastructure/logger"
	"github.com/stakecore/stakecore/infrastructure/os/signal"
)

const coinDatabaseDirname = "coins"

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		printErrorAndExit(fmt.Sprintf("error parsing command-line arguments: %s", err))
	}
	logger.InitLog(cfg.LogFile, cfg.ErrLogFile)

	ctx, cancel := signal.InterruptContext(context.Background())
	err = run(ctx, cfg)
	cancel()
	if err != nil {
		log.Criticalf("coinviewctl failed: %+v", err)
		logger.BackendLog.Close()
		printErrorAndExit(err.Error())
	}
	logger.BackendLog.Close()
}

func run(ctx context.Context, cfg *configFlags) error {
	params := cfg.NetParams()
	databaseDir := filepath.Join(cfg.DataDir, coinDatabaseDirname)
	log.Infof("Opening the coin database at %s (%s)", databaseDir, cfg)
	db, err := ldb.NewLevelDB(databaseDir, cfg.DatabaseCacheSizeMiB)
	if err != nil {
		return err
	}
	defer db.Close()

	dbCoinView := dbcoinview.New(db, params.MaxReorgLength)
	err = dbCoinView.Initialize(ctx, params.GenesisHash)
	if err != nil {
		return err
	}
	view := cachedcoinview.New(dbCoinView, cachedcoinview.Config{
		MaxItems:      cfg.MaxCoinCacheItems,
		MaxDirtyItems: cfg.MaxDirtyCoinCacheItems,
		FlushInterval: cfg.CoinCacheFlushInterval,
	})

	if cfg.Rewind > 0 {
		err := rewind(ctx, view, params.MaxReorgLength, cfg.Rewind)
		if err != nil {
			return err
		}
	}
	if cfg.ShowTip {
		tipHash, tipHeight, err := view.Tip(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("tip: %s\nheight: %d\n", tipHash, tipHeight)
	}
	if cfg.RewindData != noHeight {
		rewindData, err := view.RewindData(ctx, uint64(cfg.RewindData))
		if err != nil {
			return err
		}
		printRewindData(rewindData)
	}
	if cfg.Commitment {
		err := printCommitment(ctx, view)
		if err != nil {
			return err
		}
	}
	return nil
}

// rewind disconnects count blocks, keeping a rewind index in step with the
// view the way a node does while reorganizing.
func rewind(ctx context.Context, view *cachedcoinview.CachedCoinView, maxReorgLength uint64, count uint64) error {
	_, height, err := view.Tip(ctx)
	if err != nil {
		return err
	}
	if count > height {
		return errors.Errorf("cannot rewind %d blocks from height %d", count, height)
	}
	rewindIndex := rewindindex.New(maxReorgLength)
	err = rewindIndex.Initialize(ctx, height, view)
	if err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		newTip, err := view.Rewind(ctx)
		if err != nil {
			return err
		}
		height--
		err = rewindIndex.Remove(ctx, height, view)
		if err != nil {
			return err
		}
		log.Infof("Rewound to %s at height %d", newTip, height)
	}

	lowest, highest, ok := rewindIndex.Heights()
	if ok {
		fmt.Printf("rewind index: %d entries spent between heights %d and %d\n", rewindIndex.Count(), lowest, highest)
	} else {
		fmt.Printf("rewind index: empty\n")
	}
	return view.Flush(ctx, true)
}

func printRewindData(rewindData *externalapi.RewindData) {
	fmt.Printf("height: %d\nprevious block: %s\n", rewindData.Height, rewindData.PreviousBlockHash)
	fmt.Printf("transactions to remove: %d\n", len(rewindData.TransactionsToRemove))
	for _, transactionID := range rewindData.TransactionsToRemove {
		fmt.Printf("  %s\n", transactionID)
	}
	fmt.Printf("outputs to restore: %d\n", len(rewindData.OutputsToRestore))
	for _, unspentOutputs := range rewindData.OutputsToRestore {
		fmt.Printf("  %s\n", unspentOutputs)
	}
}

func printCommitment(ctx context.Context, view *cachedcoinview.CachedCoinView) error {
	commitment, err := coinview.Commitment(ctx, view)
	if err != nil {
		return err
	}
	var records, outputs int
	var value uint64
	err = view.ForEachCoin(ctx, func(unspentOutputs *externalapi.UnspentOutputs) error {
		records++
		for index, output := range unspentOutputs.Outputs {
			if unspentOutputs.IsAvailable(uint32(index)) {
				outputs++
				value += output.Value
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("commitment: %s\nrecords: %d\nunspent outputs: %d\ntotal value: %d\n",
		commitment, records, outputs, value)
	return nil
}

func printErrorAndExit(message string) {
	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(1)
}
