package consensus

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/cachedcoinview"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/dbcoinview"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/headertree"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/rewindindex"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/processes/headerrules"
	"github.com/stakecore/stakecore/domain/consensus/processes/integrityrules"
	"github.com/stakecore/stakecore/domain/consensus/processes/partialrules"
	"github.com/stakecore/stakecore/domain/consensus/processes/posrules"
	"github.com/stakecore/stakecore/domain/consensus/processes/ruleengine"
	"github.com/stakecore/stakecore/domain/consensus/processes/utxorules"
	infrastructuredatabase "github.com/stakecore/stakecore/infrastructure/db/database"
)

// Config is the configuration of a Consensus.
type Config struct {
	Params *chaincfg.Params

	// CoinCache configures the write-back cache in front of the database
	// coin view.
	CoinCache cachedcoinview.Config

	// HeaderTree is the header tree shared with the chain component. A tree
	// holding only the genesis header is created when nil, which requires
	// the coin view to be at the genesis block.
	HeaderTree *headertree.HeaderTree

	// TransactionValidationHook is consulted for every non-coinbase
	// transaction. May be nil.
	TransactionValidationHook model.TransactionValidationHook
}

// ErrCoinViewTipUnknown is returned by NewConsensus when the header tree does
// not contain the tip of the persisted coin view.
var ErrCoinViewTipUnknown = errors.New("coin view tip is not in the header tree")

// Factory instantiates new Consensuses
type Factory interface {
	NewConsensus(ctx context.Context, config *Config, db infrastructuredatabase.Database) (Consensus, error)
}

type factory struct{}

// NewConsensus instantiates a new Consensus
func (f *factory) NewConsensus(ctx context.Context, config *Config,
	db infrastructuredatabase.Database) (Consensus, error) {

	params := config.Params

	// Data Structures
	dbCoinView := dbcoinview.New(db, params.MaxReorgLength)
	err := dbCoinView.Initialize(ctx, params.GenesisHash)
	if err != nil {
		return nil, err
	}
	coinView := cachedcoinview.New(dbCoinView, config.CoinCache)
	tipHash, tipHeight, err := coinView.Tip(ctx)
	if err != nil {
		return nil, err
	}

	headerTree := config.HeaderTree
	if headerTree == nil {
		headerTree = headertree.New(params.GenesisBlock.Header)
	}
	genesis, ok := headerTree.Get(params.GenesisHash)
	if !ok {
		return nil, errors.Errorf("the header tree is not rooted at the %s genesis %s", params.Name, params.GenesisHash)
	}
	if genesis.StakeModifier() == nil {
		genesis.ProvenHeader = &externalapi.ProvenBlockHeader{
			Header:        genesis.Header,
			StakeModifier: posrules.GenesisStakeModifier(params.GenesisHash),
		}
	}
	tip, ok := headerTree.Get(tipHash)
	if !ok || tip.Height != tipHeight {
		return nil, errors.Wrapf(ErrCoinViewTipUnknown, "coin view tip %s at height %d", tipHash, tipHeight)
	}
	err = headerTree.SetTip(tip)
	if err != nil {
		return nil, err
	}

	rewindIndex := rewindindex.New(params.MaxReorgLength)
	err = rewindIndex.Initialize(ctx, tipHeight, coinView)
	if err != nil {
		return nil, err
	}

	// Processes
	var rules []model.Rule
	rules = append(rules, headerrules.New(params)...)
	rules = append(rules, integrityrules.New(params)...)
	rules = append(rules, partialrules.New(params)...)
	coinstakeRule := posrules.NewCoinstakeRule(params, coinView, rewindIndex, headerTree)
	rules = append(rules,
		posrules.NewProvenHeaderRule(coinstakeRule),
		utxorules.NewLoadCoinviewRule(coinView),
		coinstakeRule,
		utxorules.NewCheckUTXOsRule(params, config.TransactionValidationHook),
		utxorules.NewSaveCoinviewRule(coinView, rewindIndex))
	ruleEngine, err := ruleengine.New(rules...)
	if err != nil {
		return nil, err
	}

	flusherCtx, stopFlusher := context.WithCancel(context.Background())
	coinView.Start(flusherCtx)

	log.Infof("Consensus for %s started at %s", params.Name, tip)
	return &consensus{
		params:      params,
		coinView:    coinView,
		headerTree:  headerTree,
		rewindIndex: rewindIndex,
		ruleEngine:  ruleEngine,
		stopFlusher: stopFlusher,
	}, nil
}

// NewFactory creates a new Consensus factory
func NewFactory() Factory {
	return &factory{}
}
