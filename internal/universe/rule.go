package universe

import (
	"fmt"

	"github.com/roach88/demiurge/internal/state"
)

// ApplyFn is a rule's transformation. It must be pure and total over
// any state satisfying the rule's guard: same input, same output, no
// retained references into either. An error return indicates a caller
// defect and aborts the run.
type ApplyFn func(state.Map) (state.Map, error)

// PredicateFn gates rule eligibility. Predicates must not mutate the
// state they inspect.
type PredicateFn func(state.Map) bool

// Rule is a named, guarded, prioritized state transformation.
//
// Eligibility per epoch: the guard is absent or true, AND the until
// predicate is absent or false. The until predicate is a local stop
// condition - once true, the rule is disabled for the remainder of the
// run, not just the current epoch.
type Rule struct {
	// Name uniquely identifies the rule within a universe.
	Name string

	// Apply produces the next state from the current one.
	Apply ApplyFn

	// Guard is the precondition. Nil means always eligible.
	Guard PredicateFn

	// Until permanently disables the rule once it returns true.
	// Evaluated before applying, each epoch. Nil means never.
	Until PredicateFn

	// Priority orders application within an epoch, descending.
	// Rules of equal priority keep their registration order.
	Priority int

	// Role is an optional free-form annotation, carried through to
	// traces but never interpreted by the engine.
	Role string
}

func (r Rule) validate() error {
	if r.Name == "" {
		return &ConfigError{Reason: "rule has empty name"}
	}
	if r.Apply == nil {
		return &ConfigError{Reason: fmt.Sprintf("rule %q has nil apply", r.Name)}
	}
	return nil
}

// Eligible reports whether the rule may fire on the given state.
// Callers that track permanent until-disabling (the engine) check the
// until predicate separately; Eligible covers the guard only.
func (r Rule) Eligible(s state.Map) bool {
	return r.Guard == nil || r.Guard(s)
}

// Stopped reports whether the rule's local stop condition holds.
func (r Rule) Stopped(s state.Map) bool {
	return r.Until != nil && r.Until(s)
}
