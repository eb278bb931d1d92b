package consensus

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/cachedcoinview"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/headertree"
	"github.com/stakecore/stakecore/domain/consensus/datastructures/rewindindex"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/processes/ruleengine"
	"github.com/stakecore/stakecore/infrastructure/logger"
	"golang.org/x/sync/errgroup"
)

// ErrDoesNotExtendTip is returned by ValidateAndConnectBlock for blocks that
// do not build on the consensus tip.
var ErrDoesNotExtendTip = errors.New("block does not extend the consensus tip")

// ErrKnownInvalid is returned for blocks whose header was already found
// invalid.
var ErrKnownInvalid = errors.New("block is known to be invalid")

// Consensus maintains the current core state of the node
type Consensus interface {
	ValidateAndConnectBlock(ctx context.Context, block *externalapi.DomainBlock) error
	ValidateHeaders(ctx context.Context, chains [][]*externalapi.ProvenBlockHeader) error
	DisconnectTip(ctx context.Context) error

	Tip() *model.ChainedHeader
	CoinView() *cachedcoinview.CachedCoinView
	RewindIndex() *rewindindex.RewindIndex
	HeaderTree() *headertree.HeaderTree

	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

type consensus struct {
	lock sync.Mutex

	params      *chaincfg.Params
	coinView    *cachedcoinview.CachedCoinView
	headerTree  *headertree.HeaderTree
	rewindIndex *rewindindex.RewindIndex
	ruleEngine  *ruleengine.RuleEngine

	stopFlusher context.CancelFunc
}

// ValidateAndConnectBlock validates block against the consensus tip and
// connects it. A block breaking a consensus rule is marked invalid and the
// rule error is returned.
func (s *consensus) ValidateAndConnectBlock(ctx context.Context, block *externalapi.DomainBlock) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	chainedHeader, err := s.headerTree.Add(block.Header)
	if err != nil {
		return err
	}
	if chainedHeader.Status() == model.StatusInvalid {
		return errors.Wrapf(ErrKnownInvalid, "block %s", chainedHeader.Hash)
	}
	if chainedHeader.Previous == nil {
		return errors.Wrapf(ErrDoesNotExtendTip, "block %s is the genesis block", chainedHeader.Hash)
	}

	const maxAttempts = 2
	for attempt := 1; ; attempt++ {
		tip := s.headerTree.Tip()
		if !chainedHeader.Previous.Hash.Equal(tip.Hash) {
			return errors.Wrapf(ErrDoesNotExtendTip, "block %s builds on %s while the tip is %s",
				chainedHeader.Hash, chainedHeader.Previous.Hash, tip.Hash)
		}

		vc := model.NewValidationContext(chainedHeader, block, tip)
		vc.SkipValidation = ruleengine.ShouldSkipValidation(chainedHeader, s.params, s.headerTree)
		err = s.validateBlock(ctx, vc)
		if errors.Is(err, model.ErrTipMismatch) && attempt < maxAttempts {
			log.Warnf("Coin view moved while validating block %s, retrying: %s", chainedHeader.Hash, err)
			continue
		}
		if err != nil {
			return err
		}

		if vc.Failed() {
			chainedHeader.SetStatus(model.StatusInvalid)
			log.Infof("Rejected block %s: %s", chainedHeader, vc.Error)
			return vc.Error
		}
		if vc.SkipValidation {
			chainedHeader.SetStatus(model.StatusAssumedValid)
		} else {
			chainedHeader.SetStatus(model.StatusFullyValidated)
		}
		err = s.headerTree.SetTip(chainedHeader)
		if err != nil {
			return err
		}
		log.Debugf("Connected block %s", chainedHeader)
		return nil
	}
}

// validateBlock runs every phase on vc, stopping once the context failed.
func (s *consensus) validateBlock(ctx context.Context, vc *model.ValidationContext) error {
	phases := []func(context.Context, *model.ValidationContext) error{
		s.ruleEngine.ValidateHeader,
		s.ruleEngine.ValidateIntegrity,
		s.ruleEngine.ValidatePartial,
		s.ruleEngine.ValidateFull,
	}
	for _, validate := range phases {
		err := validate(ctx, vc)
		if err != nil {
			return err
		}
		if vc.Failed() {
			return nil
		}
	}
	return nil
}

// ValidateHeaders adds the headers of every chain to the header tree and runs
// the header phase on them. Proof-of-stake headers carry their coinstake,
// which is checked against the coin view, or through the rewind index for
// headers on a fork. Each chain is validated in order, and distinct chains
// are validated concurrently. The first error cancels the rest.
//
// The coin view does not move while the headers are validated.
func (s *consensus) ValidateHeaders(ctx context.Context, chains [][]*externalapi.ProvenBlockHeader) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, chain := range chains {
		chain := chain
		group.Go(func() error {
			for _, provenHeader := range chain {
				err := s.validateHeader(groupCtx, provenHeader)
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	return group.Wait()
}

func (s *consensus) validateHeader(ctx context.Context, provenHeader *externalapi.ProvenBlockHeader) error {
	chainedHeader, err := s.headerTree.Add(provenHeader.Header)
	if err != nil {
		return err
	}
	switch chainedHeader.Status() {
	case model.StatusInvalid:
		return errors.Wrapf(ErrKnownInvalid, "header %s", chainedHeader.Hash)
	case model.StatusUnvalidated:
	default:
		return nil
	}

	chainedHeader.ProvenHeader = &externalapi.ProvenBlockHeader{
		Header:      chainedHeader.Header,
		Coinstake:   provenHeader.Coinstake,
		MerkleProof: provenHeader.MerkleProof,
		Signature:   provenHeader.Signature,
	}
	vc := model.NewValidationContext(chainedHeader, nil, s.headerTree.Tip())
	err = s.ruleEngine.ValidateHeader(ctx, vc)
	if err != nil {
		return err
	}
	if vc.Failed() {
		chainedHeader.SetStatus(model.StatusInvalid)
		return vc.Error
	}
	chainedHeader.SetStatus(model.StatusHeaderValidated)
	return nil
}

// DisconnectTip rewinds the coin view by the tip block and moves the tip to
// its previous header.
func (s *consensus) DisconnectTip(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	tip := s.headerTree.Tip()
	if tip.Previous == nil {
		return errors.Errorf("cannot disconnect the genesis block %s", tip.Hash)
	}

	newTipHash, err := s.coinView.Rewind(ctx)
	if err != nil {
		return err
	}
	if !newTipHash.Equal(tip.Previous.Hash) {
		return errors.Errorf("rewinding block %s moved the coin view to %s instead of %s",
			tip.Hash, newTipHash, tip.Previous.Hash)
	}
	err = s.rewindIndex.Remove(ctx, tip.Previous.Height, s.coinView)
	if err != nil {
		return err
	}
	err = s.headerTree.SetTip(tip.Previous)
	if err != nil {
		return err
	}
	log.Debugf("Disconnected block %s", tip)
	return nil
}

// Tip returns the consensus tip.
func (s *consensus) Tip() *model.ChainedHeader {
	return s.headerTree.Tip()
}

func (s *consensus) CoinView() *cachedcoinview.CachedCoinView {
	return s.coinView
}

func (s *consensus) RewindIndex() *rewindindex.RewindIndex {
	return s.rewindIndex
}

func (s *consensus) HeaderTree() *headertree.HeaderTree {
	return s.headerTree
}

// Flush writes every cached change to the database.
func (s *consensus) Flush(ctx context.Context) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "consensus.Flush")
	defer onEnd()

	return s.coinView.Flush(ctx, true)
}

// Close stops the periodic flusher and flushes the cache. The database is
// not closed.
func (s *consensus) Close(ctx context.Context) error {
	s.stopFlusher()

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.Flush(ctx)
}
