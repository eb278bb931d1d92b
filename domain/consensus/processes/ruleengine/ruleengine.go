// Package ruleengine runs the registered consensus rules of each validation
// phase over a validation context.
package ruleengine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model"
	"github.com/stakecore/stakecore/domain/consensus/ruleerrors"
	"github.com/stakecore/stakecore/infrastructure/logger"
)

// ErrRuleWithoutPhase is returned when registering a rule that runs in no
// phase.
var ErrRuleWithoutPhase = errors.New("rule is not registered to any phase")

// ErrUnexpectedState is returned when a phase is run on a validation context
// that did not pass the previous phase.
var ErrUnexpectedState = errors.New("validation context is not in the expected state")

// ErrRegistrationClosed is returned when registering a rule after the engine
// validated something.
var ErrRegistrationClosed = errors.New("rules can not be registered after validation started")

type phaseDescriptor struct {
	required  model.ValidationState
	nextState model.ValidationState
}

var phaseDescriptors = map[model.Phases]phaseDescriptor{
	model.PhaseHeader:    {model.StateCreated, model.StateHeaderValidated},
	model.PhaseIntegrity: {model.StateHeaderValidated, model.StateIntegrityValidated},
	model.PhasePartial:   {model.StateIntegrityValidated, model.StatePartiallyValidated},
	model.PhaseFull:      {model.StatePartiallyValidated, model.StateFullyValidated},
}

// RuleEngine holds the rules of every phase in registration order. The rule
// lists are read without locks once validation started.
type RuleEngine struct {
	registrationLock sync.Mutex
	started          uint32
	rules            map[model.Phases][]model.Rule

	fullValidationLock sync.Mutex
}

// New instantiates a new RuleEngine and registers the given rules in order.
func New(rules ...model.Rule) (*RuleEngine, error) {
	engine := &RuleEngine{rules: make(map[model.Phases][]model.Rule, len(model.AllPhases))}
	for _, rule := range rules {
		err := engine.Register(rule)
		if err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// Register appends rule to the rule list of every phase it runs in.
func (re *RuleEngine) Register(rule model.Rule) error {
	re.registrationLock.Lock()
	defer re.registrationLock.Unlock()

	if atomic.LoadUint32(&re.started) != 0 {
		return errors.Wrapf(ErrRegistrationClosed, "cannot register %s", rule.Name())
	}
	phases := rule.Phases()
	registered := false
	for _, phase := range model.AllPhases {
		if phases.Has(phase) {
			re.rules[phase] = append(re.rules[phase], rule)
			registered = true
		}
	}
	if !registered {
		return errors.Wrapf(ErrRuleWithoutPhase, "rule %s", rule.Name())
	}
	log.Debugf("Registered rule %s for phases %s", rule.Name(), phases)
	return nil
}

// Rules returns the rules of phase in execution order.
func (re *RuleEngine) Rules(phase model.Phases) []model.Rule {
	re.registrationLock.Lock()
	defer re.registrationLock.Unlock()

	rules := make([]model.Rule, len(re.rules[phase]))
	copy(rules, re.rules[phase])
	return rules
}

// ValidateHeader runs the header phase.
func (re *RuleEngine) ValidateHeader(ctx context.Context, vc *model.ValidationContext) error {
	return re.validate(ctx, model.PhaseHeader, vc)
}

// ValidateIntegrity runs the integrity phase.
func (re *RuleEngine) ValidateIntegrity(ctx context.Context, vc *model.ValidationContext) error {
	return re.validate(ctx, model.PhaseIntegrity, vc)
}

// ValidatePartial runs the partial phase.
func (re *RuleEngine) ValidatePartial(ctx context.Context, vc *model.ValidationContext) error {
	return re.validate(ctx, model.PhasePartial, vc)
}

// ValidateFull runs the full phase. At most one full phase runs at a time.
func (re *RuleEngine) ValidateFull(ctx context.Context, vc *model.ValidationContext) error {
	re.fullValidationLock.Lock()
	defer re.fullValidationLock.Unlock()

	onEnd := logger.LogAndMeasureExecutionTime(log, "ValidateFull")
	defer onEnd()

	return re.validate(ctx, model.PhaseFull, vc)
}

// validate runs the rules of phase in order and stops at the first failure.
// A consensus violation fails the context and nil is returned. Any other
// error is returned with the context left in its current state.
func (re *RuleEngine) validate(ctx context.Context, phase model.Phases, vc *model.ValidationContext) error {
	if atomic.LoadUint32(&re.started) == 0 {
		re.registrationLock.Lock()
		atomic.StoreUint32(&re.started, 1)
		re.registrationLock.Unlock()
	}

	descriptor := phaseDescriptors[phase]
	if vc.State != descriptor.required {
		return errors.Wrapf(ErrUnexpectedState, "cannot run the %s phase on a context in state %s, expected %s",
			phase, vc.State, descriptor.required)
	}

	for _, rule := range re.rules[phase] {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if vc.SkipValidation && rule.CanSkipValidation() {
			log.Debugf("Rule %s skipped for block %s", rule.Name(), vc.ChainedHeaderToValidate.Hash)
			continue
		}

		err := rule.Run(ctx, vc)
		if err == nil {
			continue
		}
		if !ruleerrors.IsRuleError(err) {
			return errors.Wrapf(err, "rule %s", rule.Name())
		}
		log.Debugf("Block %s failed rule %s: %s", vc.ChainedHeaderToValidate.Hash, rule.Name(), err)
		vc.Error = err
		vc.State = model.StateFailed
		return nil
	}

	vc.State = descriptor.nextState
	return nil
}
