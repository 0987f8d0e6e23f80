package universe

import (
	"fmt"
	"sort"

	"github.com/roach88/demiurge/internal/observer"
	"github.com/roach88/demiurge/internal/state"
)

// ConfigError reports invalid construction inputs: duplicate rule
// names, nil apply functions, bad engine parameters. It is surfaced
// before any epoch runs and never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Universe aggregates one state, an ordered list of rules, and zero or
// more observers. It is the unit of composition: nested simulations
// still reduce to this triple.
//
// The engine exclusively owns the universe's state for the duration of
// a run. No other goroutine may read or write it concurrently.
type Universe struct {
	state     state.Map
	rules     []Rule
	observers []observer.Observer
}

// New constructs a universe. The initial state is cloned, so the caller
// keeps its own copy untouched. Rule registration order is preserved;
// duplicate rule names are a configuration error raised here, not at
// run time.
func New(initial state.Map, rules []Rule, observers ...observer.Observer) (*Universe, error) {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if seen[r.Name] {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate rule name: %s", r.Name)}
		}
		seen[r.Name] = true
	}

	rulesCopy := make([]Rule, len(rules))
	copy(rulesCopy, rules)

	kept := make([]observer.Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			kept = append(kept, o)
		}
	}

	return &Universe{
		state:     initial.Clone(),
		rules:     rulesCopy,
		observers: kept,
	}, nil
}

// State returns the current state. Callers must treat it as read-only
// while a run is in progress.
func (u *Universe) State() state.Map {
	return u.state
}

// SetState replaces the universe's state. Used by the engine at epoch
// boundaries; external callers should only touch it between runs.
func (u *Universe) SetState(s state.Map) {
	u.state = s
}

// Rules returns the rules in registration order.
func (u *Universe) Rules() []Rule {
	return u.rules
}

// Observers returns the registered observers in registration order.
func (u *Universe) Observers() []observer.Observer {
	return u.observers
}

// SortedRules returns the rules in application order: descending
// priority, stable on registration order for ties. The stability is
// part of the contract - two rules with equal priority writing
// overlapping keys compose deterministically by registration order.
func (u *Universe) SortedRules() []Rule {
	sorted := make([]Rule, len(u.rules))
	copy(sorted, u.rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return sorted
}
