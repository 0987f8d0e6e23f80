package harness

import (
	"context"
	"fmt"

	"github.com/roach88/demiurge/internal/engine"
	"github.com/roach88/demiurge/internal/manifest"
	"github.com/roach88/demiurge/internal/observer"
	"github.com/roach88/demiurge/internal/rules"
	"github.com/roach88/demiurge/internal/state"
)

// TraceEvent is one captured observer event, reduced to the fields
// that are stable across runs (no run IDs, no fingerprint material a
// human cannot eyeball).
type TraceEvent struct {
	Kind   string
	Epoch  int
	Delta  float64
	Rules  []string
	Detail string
}

// Result is the outcome of executing one scenario.
type Result struct {
	Scenario  *Scenario
	RunResult *engine.RunResult
	Trace     []TraceEvent

	// Failures lists unmet expectations. Empty means the scenario
	// passed.
	Failures []string
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// capture records events in memory for trace assertions.
type capture struct {
	events []TraceEvent
}

func (c *capture) Name() string { return "capture" }

func (c *capture) OnStep(ev observer.StepEvent) {
	c.events = append(c.events, TraceEvent{Kind: "step", Epoch: ev.Epoch, Delta: ev.Delta, Rules: ev.RulesFired})
}

func (c *capture) OnEpoch(ev observer.EpochEvent) {
	c.events = append(c.events, TraceEvent{Kind: "epoch", Epoch: ev.Epoch})
}

func (c *capture) OnFixpoint(ev observer.FixpointEvent) {
	c.events = append(c.events, TraceEvent{Kind: "fixpoint", Epoch: ev.Epoch, Delta: ev.Delta, Detail: ev.Reason})
}

func (c *capture) OnError(ev observer.ErrorEvent) {
	c.events = append(c.events, TraceEvent{Kind: "error", Epoch: ev.Epoch, Detail: ev.Err.Error()})
}

// Run executes a scenario: load the manifest, build the universe with
// the default rule catalogue, run the engine with the scenario's fixed
// run token, and evaluate expectations.
//
// An engine error is a load/run failure, not an expectation failure,
// and is returned as an error.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	m, err := manifest.Load(sc.Manifest)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	u, opts, err := manifest.Build(m, rules.DefaultCatalog())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	cap := &capture{}
	opts.RunTokens = engine.NewFixedGenerator(sc.RunToken)
	opts.Observers = append(opts.Observers, cap)

	runResult, err := engine.Run(ctx, u, opts)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	result := &Result{Scenario: sc, RunResult: runResult, Trace: cap.events}
	result.Failures = evaluate(sc.Expect, runResult)
	return result, nil
}

func evaluate(expect Expect, got *engine.RunResult) []string {
	var failures []string

	if expect.Converged != nil && got.Converged != *expect.Converged {
		failures = append(failures, fmt.Sprintf("converged: want %v, got %v", *expect.Converged, got.Converged))
	}
	if expect.Reason != "" && string(got.Reason) != expect.Reason {
		failures = append(failures, fmt.Sprintf("reason: want %s, got %s", expect.Reason, got.Reason))
	}
	if expect.Epochs != nil && got.Epoch != *expect.Epochs {
		failures = append(failures, fmt.Sprintf("epochs: want %d, got %d", *expect.Epochs, got.Epoch))
	}

	for key, wantRaw := range expect.State {
		want, err := state.FromGo(wantRaw)
		if err != nil {
			failures = append(failures, fmt.Sprintf("state[%s]: unsupported expectation: %v", key, err))
			continue
		}
		gotValue, ok := got.State[key]
		if !ok {
			failures = append(failures, fmt.Sprintf("state[%s]: missing", key))
			continue
		}
		if !stateValuesEqual(want, gotValue) {
			failures = append(failures, fmt.Sprintf("state[%s]: want %v, got %v",
				key, state.Interface(want), state.Interface(gotValue)))
		}
	}
	return failures
}

// stateValuesEqual matches numerically across Int/Float so a YAML 5
// matches a state's 5.0.
func stateValuesEqual(want, got state.Value) bool {
	if wn, ok := state.Number(want); ok {
		gn, ok := state.Number(got)
		return ok && wn == gn
	}
	return state.Equal(want, got)
}
