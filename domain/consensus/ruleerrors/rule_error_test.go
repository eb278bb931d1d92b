package ruleerrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

func TestNewErrMissingTxOut(t *testing.T) {
	transactionID := externalapi.NewDomainTransactionIDFromByteArray(&[externalapi.DomainHashSize]byte{255, 255, 255})
	outer := NewErrMissingTxOut([]*externalapi.DomainOutpoint{externalapi.NewDomainOutpoint(transactionID, 5)})
	expectedOuterErr := "ErrMissingTxOut: missing the following outpoint: " +
		"[(ffffff0000000000000000000000000000000000000000000000000000000000: 5)]"
	inner := &ErrMissingTxOut{}
	if !errors.As(outer, inner) {
		t.Fatal("TestNewErrMissingTxOut: Outer should contain ErrMissingTxOut in it")
	}
	if len(inner.MissingOutpoints) != 1 {
		t.Fatalf("TestNewErrMissingTxOut: Expected len(inner.MissingOutpoints) 1, found: %d", len(inner.MissingOutpoints))
	}
	if inner.MissingOutpoints[0].Index != 5 {
		t.Fatalf("TestNewErrMissingTxOut: Expected 5. found: %d", inner.MissingOutpoints[0].Index)
	}

	rule := &RuleError{}
	if !errors.As(outer, rule) {
		t.Fatal("TestNewErrMissingTxOut: Outer should contain RuleError in it")
	}
	if rule.message != "ErrMissingTxOut" {
		t.Fatalf("TestNewErrMissingTxOut: Expected message = 'ErrMissingTxOut', found: '%s'", rule.message)
	}
	if outer.Error() != expectedOuterErr {
		t.Fatalf("TestNewErrMissingTxOut: Expected %s. found: %s", expectedOuterErr, outer.Error())
	}
}

func TestWrappedRuleErrorIsRecognized(t *testing.T) {
	err := errors.Wrapf(ErrInvalidStakeDepth, "stake at height %d is %d blocks deep", 10, 3)
	if !errors.Is(err, ErrInvalidStakeDepth) {
		t.Fatalf("TestWrappedRuleErrorIsRecognized: errors.Is failed for %s", err)
	}
	if errors.Is(err, ErrBadBlockSignature) {
		t.Fatalf("TestWrappedRuleErrorIsRecognized: errors.Is matched the wrong rule error")
	}
	if !IsRuleError(err) {
		t.Fatalf("TestWrappedRuleErrorIsRecognized: IsRuleError failed for %s", err)
	}
	if IsRuleError(errors.New("disk failure")) {
		t.Fatalf("TestWrappedRuleErrorIsRecognized: a plain error is not a rule error")
	}
}
