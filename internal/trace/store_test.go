package trace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/demiurge/internal/engine"
	"github.com/roach88/demiurge/internal/observer"
	"github.com/roach88/demiurge/internal/state"
	"github.com/roach88/demiurge/internal/universe"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func counterUniverse(t *testing.T, limit int64) *universe.Universe {
	t.Helper()
	u, err := universe.New(state.Map{"x": state.Int(0)}, []universe.Rule{{
		Name: "count-up",
		Apply: func(s state.Map) (state.Map, error) {
			current, _ := state.Number(s["x"])
			next := s.Clone()
			next["x"] = state.Int(int64(current) + 1)
			return next, nil
		},
		Until: func(s state.Map) bool {
			x, _ := state.Number(s["x"])
			return x >= float64(limit)
		},
	}})
	require.NoError(t, err)
	return u
}

// runRecorded executes a counter run with a fresh recorder attached.
func runRecorded(t *testing.T, store *Store, token string, limit int64) *engine.RunResult {
	t.Helper()
	rec := NewRecorder(store, "counter", 0, 100, nil)
	result, err := engine.Run(context.Background(), counterUniverse(t, limit), engine.Options{
		Metric:    engine.KeyDelta("x"),
		Epsilon:   0,
		MaxEpoch:  100,
		RunTokens: engine.NewFixedGenerator(token),
		Observers: []observer.Observer{rec},
	})
	require.NoError(t, err)
	return result
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Re-opening an existing database applies the schema harmlessly.
	store, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestRecorder_PersistsFullRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	result := runRecorded(t, store, "run-a", 3)

	run, err := store.ReadRun(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, "counter", run.Universe)
	assert.Equal(t, "NO_ELIGIBLE_RULE", run.Reason)
	assert.True(t, run.Converged)
	assert.Equal(t, result.Epoch, run.Epochs)
	assert.NotEmpty(t, run.FinalFingerprint)

	events, err := store.ReadEvents(ctx, "run-a")
	require.NoError(t, err)
	require.NotEmpty(t, events)

	// Seq order, terminal fixpoint last, fingerprint matches the run row.
	last := events[len(events)-1]
	assert.Equal(t, "fixpoint", last.Kind)
	assert.Equal(t, "NO_ELIGIBLE_RULE", last.Detail)
	assert.Equal(t, run.FinalFingerprint, last.Fingerprint)

	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
	}
	assert.Equal(t, "step", events[0].Kind)
	assert.Equal(t, []string{"count-up"}, events[0].RulesFired)
}

func TestRecorder_RecordsAbortedRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	u, err := universe.New(state.Map{}, []universe.Rule{{
		Name: "boom",
		Apply: func(s state.Map) (state.Map, error) {
			return nil, assert.AnError
		},
	}})
	require.NoError(t, err)

	rec := NewRecorder(store, "broken", 0, 10, nil)
	_, err = engine.Run(ctx, u, engine.Options{
		Metric:    engine.KeysChanged,
		Epsilon:   0,
		MaxEpoch:  10,
		RunTokens: engine.NewFixedGenerator("run-err"),
		Observers: []observer.Observer{rec},
	})
	require.Error(t, err)

	run, err := store.ReadRun(ctx, "run-err")
	require.NoError(t, err)
	assert.Equal(t, "ERROR", run.Reason)
	assert.False(t, run.Converged)

	events, err := store.ReadEvents(ctx, "run-err")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Kind)
	assert.Contains(t, events[0].Detail, assert.AnError.Error())
}

func TestVerify_IdenticalRuns(t *testing.T) {
	store := openTestStore(t)

	runRecorded(t, store, "run-1", 3)
	runRecorded(t, store, "run-2", 3)

	divergence, err := store.Verify(context.Background(), "run-1", "run-2")
	require.NoError(t, err)
	assert.Empty(t, divergence)
}

func TestVerify_DivergentRuns(t *testing.T) {
	store := openTestStore(t)

	runRecorded(t, store, "run-short", 3)
	runRecorded(t, store, "run-long", 5)

	divergence, err := store.Verify(context.Background(), "run-short", "run-long")
	require.NoError(t, err)
	assert.NotEmpty(t, divergence)
}

func TestListRuns(t *testing.T) {
	store := openTestStore(t)

	runRecorded(t, store, "run-a", 2)
	runRecorded(t, store, "run-b", 2)

	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
