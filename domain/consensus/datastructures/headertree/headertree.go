// Package headertree is an in-memory model.HeaderTree.
package headertree

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
)

// ErrUnknownPrevious is returned when adding a header whose previous header
// is not in the tree.
var ErrUnknownPrevious = errors.New("previous header is not in the tree")

// HeaderTree represents a store of known chained headers and the consensus
// tip.
type HeaderTree struct {
	lock    sync.RWMutex
	headers map[externalapi.DomainHash]*model.ChainedHeader
	tip     *model.ChainedHeader
}

// New instantiates a new HeaderTree rooted at the genesis header. The
// genesis header starts out fully validated and as the tip.
func New(genesisHeader *externalapi.DomainBlockHeader) *HeaderTree {
	genesis := model.NewChainedHeader(genesisHeader, consensushashing.HeaderHash(genesisHeader), nil)
	genesis.SetStatus(model.StatusFullyValidated)
	return &HeaderTree{
		headers: map[externalapi.DomainHash]*model.ChainedHeader{*genesis.Hash: genesis},
		tip:     genesis,
	}
}

// Add connects header to its previous header and returns the new chained
// header. Adding a known header returns the existing one.
func (ht *HeaderTree) Add(header *externalapi.DomainBlockHeader) (*model.ChainedHeader, error) {
	hash := consensushashing.HeaderHash(header)

	ht.lock.Lock()
	defer ht.lock.Unlock()

	if existing, ok := ht.headers[*hash]; ok {
		return existing, nil
	}
	previous, ok := ht.headers[header.PreviousBlockHash]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPrevious, "header %s builds on %s", hash, &header.PreviousBlockHash)
	}
	chainedHeader := model.NewChainedHeader(header, hash, previous)
	ht.headers[*hash] = chainedHeader
	return chainedHeader, nil
}

// Get returns the chained header of hash.
func (ht *HeaderTree) Get(hash *externalapi.DomainHash) (*model.ChainedHeader, bool) {
	ht.lock.RLock()
	defer ht.lock.RUnlock()

	chainedHeader, ok := ht.headers[*hash]
	return chainedHeader, ok
}

// Tip returns the consensus tip.
func (ht *HeaderTree) Tip() *model.ChainedHeader {
	ht.lock.RLock()
	defer ht.lock.RUnlock()

	return ht.tip
}

// SetTip moves the consensus tip to a header in the tree.
func (ht *HeaderTree) SetTip(tip *model.ChainedHeader) error {
	ht.lock.Lock()
	defer ht.lock.Unlock()

	if _, ok := ht.headers[*tip.Hash]; !ok {
		return errors.Errorf("cannot set the tip to the unknown header %s", tip.Hash)
	}
	ht.tip = tip
	return nil
}

// Len returns the number of headers in the tree.
func (ht *HeaderTree) Len() int {
	ht.lock.RLock()
	defer ht.lock.RUnlock()

	return len(ht.headers)
}
