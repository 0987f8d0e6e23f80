package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/demiurge/internal/state"
	"github.com/roach88/demiurge/internal/universe"
)

func compile(t *testing.T, p Predicate) universe.PredicateFn {
	t.Helper()
	fn, err := p.Compile()
	require.NoError(t, err)
	return fn
}

func TestPredicate_Comparison(t *testing.T) {
	s := state.Map{"x": state.Int(5), "name": state.String("alpha")}

	cases := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"eq true", Predicate{Key: "x", Op: OpEq, Value: state.Int(5)}, true},
		{"eq cross-kind numeric", Predicate{Key: "x", Op: OpEq, Value: state.Float(5)}, true},
		{"eq false", Predicate{Key: "x", Op: OpEq, Value: state.Int(6)}, false},
		{"eq string", Predicate{Key: "name", Op: OpEq, Value: state.String("alpha")}, true},
		{"ne", Predicate{Key: "x", Op: OpNe, Value: state.Int(6)}, true},
		{"lt false at boundary", Predicate{Key: "x", Op: OpLt, Value: state.Int(5)}, false},
		{"le true at boundary", Predicate{Key: "x", Op: OpLe, Value: state.Int(5)}, true},
		{"gt", Predicate{Key: "x", Op: OpGt, Value: state.Int(4)}, true},
		{"ge", Predicate{Key: "x", Op: OpGe, Value: state.Float(5.5)}, false},
		{"ordering on missing key", Predicate{Key: "missing", Op: OpGt, Value: state.Int(0)}, false},
		{"ordering on non-numeric", Predicate{Key: "name", Op: OpLt, Value: state.Int(10)}, false},
		{"exists", Predicate{Key: "x", Op: OpExists}, true},
		{"exists missing", Predicate{Key: "missing", Op: OpExists}, false},
		{"absent", Predicate{Key: "missing", Op: OpAbsent}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, compile(t, tc.pred)(s))
		})
	}
}

func TestPredicate_CompileErrors(t *testing.T) {
	_, err := Predicate{Key: "", Op: OpEq, Value: state.Int(1)}.Compile()
	assert.Error(t, err)

	_, err = Predicate{Key: "x", Op: "between", Value: state.Int(1)}.Compile()
	assert.Error(t, err)

	_, err = Predicate{Key: "x", Op: OpLt, Value: state.String("nan")}.Compile()
	assert.Error(t, err)
}
