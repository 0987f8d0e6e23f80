package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/demiurge/internal/observer"
	"github.com/roach88/demiurge/internal/state"
	"github.com/roach88/demiurge/internal/universe"
)

// Reason is the terminal condition of a run.
type Reason string

const (
	// ReasonConverged - the metric fell to epsilon or below.
	ReasonConverged Reason = "CONVERGED"

	// ReasonMaxEpoch - the epoch budget was exhausted first.
	ReasonMaxEpoch Reason = "MAX_EPOCH"

	// ReasonNoEligibleRule - an epoch resolved zero eligible rules.
	// Treated as a degenerate convergence (the state cannot move), but
	// kept distinct from ReasonConverged so callers can tell rule-set
	// exhaustion apart from a genuinely reached target.
	ReasonNoEligibleRule Reason = "NO_ELIGIBLE_RULE"

	// ReasonCancelled - the context was cancelled between epochs.
	// Appears only in the terminal observer event; Run returns the
	// context error instead of a result.
	ReasonCancelled Reason = "CANCELLED"
)

// Options configures a single fixpoint run.
type Options struct {
	// Metric measures the distance between successive states.
	// Required.
	Metric Metric

	// Epsilon is the inclusive convergence threshold. Must be >= 0.
	Epsilon float64

	// MaxEpoch is the epoch budget. Must be > 0.
	MaxEpoch int

	// RunTokens issues the run identifier stamped on every event.
	// Defaults to UUIDv7Generator.
	RunTokens TokenGenerator

	// Observers are attached in addition to the universe's own, after
	// them in delivery order. Typically the trace recorder or metrics
	// exporter owned by the caller rather than the universe.
	Observers []observer.Observer

	// Logger receives engine debug lines and observer panic reports.
	// Defaults to slog.Default.
	Logger *slog.Logger
}

func (o *Options) validate() error {
	if o.Metric == nil {
		return &universe.ConfigError{Reason: "metric is required"}
	}
	if o.MaxEpoch <= 0 {
		return &universe.ConfigError{Reason: fmt.Sprintf("max epoch must be positive, got %d", o.MaxEpoch)}
	}
	if o.Epsilon < 0 || math.IsNaN(o.Epsilon) {
		return &universe.ConfigError{Reason: fmt.Sprintf("epsilon must be non-negative, got %v", o.Epsilon)}
	}
	return nil
}

// RunResult is the termination record of a successful run. Produced
// once per run, never persisted by the engine itself.
type RunResult struct {
	RunID     string
	State     state.Map
	Epoch     int
	Delta     float64
	Converged bool
	Reason    Reason
}

// Run drives the universe's rules to a fixpoint.
//
// Per epoch: eligible rules are resolved against the epoch's opening
// state (guard true or absent, until false or absent), then applied
// sequentially in descending priority, threading each rule's output
// into the next. The metric compares the opening and resulting states;
// delta <= epsilon terminates the run as converged.
//
// The engine exclusively owns the universe's state until Run returns.
// On success the universe is left holding the terminal state and the
// same state is returned in the RunResult. On a rule or metric failure
// the partial epoch is discarded, observers get a terminal error event,
// and Run returns the typed error with no result. Cancellation is
// honored between epochs only and returns ctx.Err after a terminal
// fixpoint event with reason CANCELLED.
func Run(ctx context.Context, u *universe.Universe, opts Options) (*RunResult, error) {
	if u == nil {
		return nil, &universe.ConfigError{Reason: "universe is required"}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	tokens := opts.RunTokens
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runID := tokens.Generate()
	clock := NewClock()
	bus := observer.NewBus(logger, append(append([]observer.Observer{}, u.Observers()...), opts.Observers...)...)

	logger.Debug("run starting",
		"run", runID,
		"rules", len(u.Rules()),
		"epsilon", opts.Epsilon,
		"max_epoch", opts.MaxEpoch,
	)

	r := &runner{
		universe: u,
		opts:     opts,
		runID:    runID,
		clock:    clock,
		bus:      bus,
		logger:   logger,
		disabled: make(map[string]bool),
	}
	return r.loop(ctx)
}

// runner holds the per-run mutable loop state: the epoch counter and
// the set of rules permanently disabled by their until predicates.
type runner struct {
	universe *universe.Universe
	opts     Options
	runID    string
	clock    *Clock
	bus      *observer.Bus
	logger   *slog.Logger
	disabled map[string]bool
}

func (r *runner) loop(ctx context.Context) (*RunResult, error) {
	current := r.universe.State()
	epoch := 0

	for {
		// Cancellation is honored between epochs, never mid-epoch, so
		// a partial epoch's state is never surfaced.
		select {
		case <-ctx.Done():
			r.bus.Fixpoint(observer.FixpointEvent{
				RunID:  r.runID,
				Seq:    r.clock.Next(),
				Epoch:  epoch,
				Reason: string(ReasonCancelled),
				State:  current,
			})
			r.universe.SetState(current)
			r.logger.Debug("run cancelled", "run", r.runID, "epoch", epoch)
			return nil, ctx.Err()
		default:
		}

		eligible := r.resolve(current)
		if len(eligible) == 0 {
			// Nothing left to do: a no-op epoch has delta zero by
			// definition, so terminate instead of spinning. The metric
			// is not consulted.
			return r.finish(epoch, 0, current, ReasonNoEligibleRule), nil
		}

		next, fired, err := r.applyEpoch(eligible, current, epoch)
		if err != nil {
			return nil, err
		}

		delta, err := r.measure(current, next, epoch)
		if err != nil {
			return nil, err
		}

		r.bus.Step(observer.StepEvent{
			RunID:      r.runID,
			Seq:        r.clock.Next(),
			Epoch:      epoch,
			Delta:      delta,
			RulesFired: fired,
			State:      next,
		})

		if delta <= r.opts.Epsilon {
			return r.finish(epoch, delta, next, ReasonConverged), nil
		}

		epoch++
		if epoch >= r.opts.MaxEpoch {
			return r.finish(epoch, delta, next, ReasonMaxEpoch), nil
		}

		r.bus.Epoch(observer.EpochEvent{
			RunID: r.runID,
			Seq:   r.clock.Next(),
			Epoch: epoch,
			State: next,
		})
		current = next
	}
}

// resolve produces the rules eligible to fire this epoch, in
// application order. Resolution is pure with respect to state and runs
// against the epoch's opening snapshot; an until predicate that holds
// here disables its rule for the remainder of the run.
func (r *runner) resolve(current state.Map) []universe.Rule {
	var eligible []universe.Rule
	for _, rule := range r.universe.SortedRules() {
		if r.disabled[rule.Name] {
			continue
		}
		if rule.Stopped(current) {
			r.disabled[rule.Name] = true
			continue
		}
		if !rule.Eligible(current) {
			continue
		}
		eligible = append(eligible, rule)
	}
	return eligible
}

// applyEpoch runs the resolved rules sequentially, threading the output
// of one as the input to the next. This sequential composition is part
// of the contract: equal-priority rules touching overlapping keys
// compose by registration order.
func (r *runner) applyEpoch(eligible []universe.Rule, current state.Map, epoch int) (state.Map, []string, error) {
	next := current
	fired := make([]string, 0, len(eligible))
	for _, rule := range eligible {
		out, err := rule.Apply(next)
		if err != nil {
			ruleErr := &RuleError{Rule: rule.Name, Epoch: epoch, State: next.Clone(), Err: err}
			r.abort(epoch, ruleErr)
			return nil, nil, ruleErr
		}
		next = out
		fired = append(fired, rule.Name)
	}
	return next, fired, nil
}

func (r *runner) measure(prev, next state.Map, epoch int) (float64, error) {
	delta, err := r.opts.Metric(prev, next)
	if err == nil && (delta < 0 || math.IsNaN(delta)) {
		err = fmt.Errorf("metric returned %v, want non-negative", delta)
	}
	if err != nil {
		metricErr := &MetricError{Epoch: epoch, Err: err}
		r.abort(epoch, metricErr)
		return 0, metricErr
	}
	return delta, nil
}

// abort delivers the terminal error event. The universe keeps the last
// completed epoch's state; the failing epoch's partial state is
// discarded.
func (r *runner) abort(epoch int, err error) {
	r.bus.Error(observer.ErrorEvent{
		RunID: r.runID,
		Seq:   r.clock.Next(),
		Epoch: epoch,
		Err:   err,
	})
	r.logger.Debug("run aborted", "run", r.runID, "epoch", epoch, "error", err)
}

// finish delivers the terminal fixpoint event and seals the result.
// A run that stopped because no rule was eligible still counts as
// converged: the state is, trivially, a fixpoint of the rule set.
func (r *runner) finish(epoch int, delta float64, terminal state.Map, reason Reason) *RunResult {
	if reason == ReasonNoEligibleRule {
		r.bus.Step(observer.StepEvent{
			RunID:      r.runID,
			Seq:        r.clock.Next(),
			Epoch:      epoch,
			Delta:      0,
			RulesFired: nil,
			State:      terminal,
		})
	}

	converged := reason == ReasonConverged || reason == ReasonNoEligibleRule
	r.bus.Fixpoint(observer.FixpointEvent{
		RunID:     r.runID,
		Seq:       r.clock.Next(),
		Epoch:     epoch,
		Delta:     delta,
		Converged: converged,
		Reason:    string(reason),
		State:     terminal,
	})
	r.universe.SetState(terminal)

	r.logger.Debug("run finished",
		"run", r.runID,
		"epoch", epoch,
		"delta", delta,
		"reason", reason,
	)

	return &RunResult{
		RunID:     r.runID,
		State:     terminal,
		Epoch:     epoch,
		Delta:     delta,
		Converged: converged,
		Reason:    reason,
	}
}
