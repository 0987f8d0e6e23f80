package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/demiurge/internal/state"
)

// Snapshot renders a captured trace as canonical JSON. The encoding is
// deterministic, so golden files are stable across runs and platforms.
func Snapshot(result *Result) ([]byte, error) {
	events := make(state.List, len(result.Trace))
	for i, ev := range result.Trace {
		entry := state.Map{
			"kind":  state.String(ev.Kind),
			"epoch": state.Int(ev.Epoch),
			"delta": state.Float(ev.Delta),
		}
		if len(ev.Rules) > 0 {
			rules := make(state.List, len(ev.Rules))
			for j, name := range ev.Rules {
				rules[j] = state.String(name)
			}
			entry["rules"] = rules
		}
		if ev.Detail != "" {
			entry["detail"] = state.String(ev.Detail)
		}
		events[i] = entry
	}

	snapshot := state.Map{
		"scenario": state.String(result.Scenario.Name),
		"run":      state.String(result.Scenario.RunToken),
		"trace":    events,
	}
	return state.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its trace snapshot
// against testdata/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	snapshot, err := Snapshot(result)
	if err != nil {
		t.Fatalf("scenario %s: snapshot: %v", sc.Name, err)
	}

	g := goldie.New(t)
	g.Assert(t, sc.Name, snapshot)
	return result
}
