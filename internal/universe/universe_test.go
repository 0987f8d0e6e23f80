package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/demiurge/internal/state"
)

func noopApply(s state.Map) (state.Map, error) { return s, nil }

func TestNew_ClonesInitialState(t *testing.T) {
	initial := state.Map{"x": state.Int(1)}
	u, err := New(initial, nil)
	require.NoError(t, err)

	initial["x"] = state.Int(99)
	assert.True(t, state.Equal(state.Int(1), u.State()["x"]))
}

func TestNew_DuplicateRuleName(t *testing.T) {
	rules := []Rule{
		{Name: "same", Apply: noopApply},
		{Name: "same", Apply: noopApply},
	}
	u, err := New(state.Map{}, rules)
	assert.Nil(t, u)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "duplicate rule name")
}

func TestNew_InvalidRules(t *testing.T) {
	_, err := New(state.Map{}, []Rule{{Name: "", Apply: noopApply}})
	assert.Error(t, err)

	_, err = New(state.Map{}, []Rule{{Name: "no-apply"}})
	assert.Error(t, err)
}

func TestNew_DropsNilObservers(t *testing.T) {
	u, err := New(state.Map{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, u.Observers())
}

func TestSortedRules_DescendingPriorityStable(t *testing.T) {
	rules := []Rule{
		{Name: "low", Priority: -5, Apply: noopApply},
		{Name: "first-high", Priority: 10, Apply: noopApply},
		{Name: "mid-a", Priority: 0, Apply: noopApply},
		{Name: "second-high", Priority: 10, Apply: noopApply},
		{Name: "mid-b", Priority: 0, Apply: noopApply},
	}
	u, err := New(state.Map{}, rules)
	require.NoError(t, err)

	var names []string
	for _, r := range u.SortedRules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"first-high", "second-high", "mid-a", "mid-b", "low"}, names)

	// Registration order is untouched.
	assert.Equal(t, "low", u.Rules()[0].Name)
}

func TestRule_Eligibility(t *testing.T) {
	s := state.Map{"x": state.Int(3)}

	unguarded := Rule{Name: "r", Apply: noopApply}
	assert.True(t, unguarded.Eligible(s))
	assert.False(t, unguarded.Stopped(s))

	guarded := Rule{
		Name:  "r",
		Apply: noopApply,
		Guard: func(m state.Map) bool {
			x, _ := state.Number(m["x"])
			return x > 5
		},
	}
	assert.False(t, guarded.Eligible(s))

	stopped := Rule{
		Name:  "r",
		Apply: noopApply,
		Until: func(m state.Map) bool { return true },
	}
	assert.True(t, stopped.Stopped(s))
}
