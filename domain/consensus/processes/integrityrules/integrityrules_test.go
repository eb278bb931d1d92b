package integrityrules

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/chaincfg"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/ruleerrors"
	"github.com/stakecore/stakecore/domain/consensus/utils/consensushashing"
	"github.com/stakecore/stakecore/domain/consensus/utils/merkle"
	"github.com/stakecore/stakecore/domain/consensus/utils/testutils"
)

func validationContextFor(block *externalapi.DomainBlock) *model.ValidationContext {
	chainedHeader := model.NewChainedHeader(block.Header, consensushashing.BlockHash(block), nil)
	return model.NewValidationContext(chainedHeader, block, nil)
}

func runIntegrityRules(params *chaincfg.Params, block *externalapi.DomainBlock) error {
	vc := validationContextFor(block)
	for _, rule := range New(params) {
		err := rule.Run(context.Background(), vc)
		if err != nil {
			return err
		}
	}
	return nil
}

func TestIntegrityRules(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	transactions := []*externalapi.DomainTransaction{testutils.NewCoinbase(1, 50), testutils.NewCoinbase(2, 25)}
	block := &externalapi.DomainBlock{
		Header: &externalapi.DomainBlockHeader{
			Version:        1,
			HashMerkleRoot: *merkle.CalculateHashMerkleRoot(transactions),
			Bits:           0x207fffff,
		},
		Transactions: transactions,
	}
	err := runIntegrityRules(params, block)
	if err != nil {
		t.Fatalf("a valid block was rejected: %s", err)
	}

	tampered := block.Clone()
	tampered.Transactions[1].Outputs[0].Value++
	err = runIntegrityRules(params, tampered)
	if !errors.Is(err, ruleerrors.ErrBadMerkleRoot) {
		t.Fatalf("expected ErrBadMerkleRoot, got %v", err)
	}

	empty := block.Clone()
	empty.Transactions = nil
	err = runIntegrityRules(params, empty)
	if !errors.Is(err, ruleerrors.ErrNoTransactions) {
		t.Fatalf("expected ErrNoTransactions, got %v", err)
	}

	small := *params
	small.MaxBlockSize = 10
	err = runIntegrityRules(&small, block)
	if !errors.Is(err, ruleerrors.ErrBlockTooBig) {
		t.Fatalf("expected ErrBlockTooBig, got %v", err)
	}
}

func TestMissingBlockIsNotARuleError(t *testing.T) {
	header := &externalapi.DomainBlockHeader{Version: 1}
	vc := model.NewValidationContext(model.NewChainedHeader(header, testutils.HashFromUint(1), nil), nil, nil)
	err := (&MerkleRootRule{}).Run(context.Background(), vc)
	if err == nil || ruleerrors.IsRuleError(err) {
		t.Fatalf("expected a programming error, got %v", err)
	}
}
