package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/demiurge/internal/engine"
	"github.com/roach88/demiurge/internal/rules"
	"github.com/roach88/demiurge/internal/state"
)

const counterManifest = `
name: "counter"
state: x: 0
engine: {
	epsilon:  0
	maxEpoch: 100
}
metric: {
	name: "key_delta"
	key:  "x"
}
rules: [{
	name: "count-up"
	kind: "increment"
	params: key: "x"
	until: {key: "x", op: "ge", value: 5}
}]
`

func TestParse_CounterManifest(t *testing.T) {
	m, err := Parse("counter.cue", []byte(counterManifest))
	require.NoError(t, err)

	assert.Equal(t, "counter", m.Name)
	assert.Equal(t, 0.0, m.Engine.Epsilon)
	assert.Equal(t, 100, m.Engine.MaxEpoch)
	assert.Equal(t, "key_delta", m.Metric.Name)
	assert.Equal(t, "x", m.Metric.Key)

	require.Len(t, m.Rules, 1)
	rule := m.Rules[0]
	assert.Equal(t, "count-up", rule.Name)
	assert.Equal(t, "increment", rule.Kind)
	assert.Equal(t, 0, rule.Priority)
	require.NotNil(t, rule.Until)
	assert.Equal(t, "ge", rule.Until.Op)
}

func TestParse_SchemaDefaults(t *testing.T) {
	source := `
name: "defaults"
state: {}
engine: {}
metric: {}
rules: []
`
	m, err := Parse("defaults.cue", []byte(source))
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Engine.Epsilon)
	assert.Equal(t, 100, m.Engine.MaxEpoch)
	assert.Equal(t, "keys_changed", m.Metric.Name)
}

func TestParse_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		source string
	}{
		{"missing name", `state: {}, engine: {}, metric: {}, rules: []`},
		{"empty name", `name: "", state: {}, engine: {}, metric: {}, rules: []`},
		{"negative epsilon", `name: "m", state: {}, engine: epsilon: -1, metric: {}, rules: []`},
		{"zero max epoch", `name: "m", state: {}, engine: maxEpoch: 0, metric: {}, rules: []`},
		{"unknown metric", `name: "m", state: {}, engine: {}, metric: name: "euclidean", rules: []`},
		{"unknown top-level field", `name: "m", state: {}, engine: {}, metric: {}, rules: [], extra: 1`},
		{"bad predicate op", `
name: "m"
state: {}
engine: {}
metric: {}
rules: [{name: "r", kind: "set", params: {}, guard: {key: "x", op: "around"}}]
`},
		{"rule missing kind", `
name: "m"
state: {}
engine: {}
metric: {}
rules: [{name: "r", params: {}}]
`},
		{"not cue at all", `name: "m" state{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.name+".cue", []byte(tc.source))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.cue")
	require.NoError(t, os.WriteFile(path, []byte(counterManifest), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "counter", m.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestBuild_CounterRunsToFixpoint(t *testing.T) {
	m, err := Parse("counter.cue", []byte(counterManifest))
	require.NoError(t, err)

	u, opts, err := Build(m, rules.DefaultCatalog())
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), u, opts)
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Equal(t, 5, result.Epoch)
	assert.True(t, state.Equal(state.Int(5), result.State["x"]))
}

func TestBuild_Errors(t *testing.T) {
	catalog := rules.DefaultCatalog()

	m, err := Parse("bad-kind.cue", []byte(`
name: "m"
state: {}
engine: {}
metric: {}
rules: [{name: "r", kind: "teleport", params: {}}]
`))
	require.NoError(t, err)
	_, _, err = Build(m, catalog)
	assert.Error(t, err)

	m, err = Parse("keyless-delta.cue", []byte(`
name: "m"
state: {}
engine: {}
metric: name: "key_delta"
rules: []
`))
	require.NoError(t, err)
	_, _, err = Build(m, catalog)
	assert.Error(t, err)
}
