package rules

import (
	"fmt"

	"github.com/roach88/demiurge/internal/state"
	"github.com/roach88/demiurge/internal/universe"
)

// Predicate is a declarative guard/until condition over a single state
// key. Predicates are the serializable counterpart of the closure
// predicates on universe.Rule: a manifest can declare them, a trace can
// log them, and compiling the same predicate twice yields the same
// behavior.
type Predicate struct {
	Key   string
	Op    string
	Value state.Value
}

// Predicate operators.
const (
	OpEq     = "eq"
	OpNe     = "ne"
	OpLt     = "lt"
	OpLe     = "le"
	OpGt     = "gt"
	OpGe     = "ge"
	OpExists = "exists"
	OpAbsent = "absent"
)

// Compile turns the predicate into a function over state. Ordering
// operators compare numerically and are false when either side is
// missing or non-numeric; eq/ne use structural equality with Int/Float
// cross-kind numeric comparison.
func (p Predicate) Compile() (universe.PredicateFn, error) {
	if p.Key == "" {
		return nil, &universe.ConfigError{Reason: "predicate key must not be empty"}
	}

	switch p.Op {
	case OpExists:
		key := p.Key
		return func(s state.Map) bool {
			_, ok := s[key]
			return ok
		}, nil
	case OpAbsent:
		key := p.Key
		return func(s state.Map) bool {
			_, ok := s[key]
			return !ok
		}, nil
	case OpEq, OpNe:
		key, want, negate := p.Key, p.Value, p.Op == OpNe
		return func(s state.Map) bool {
			return valuesEqual(s[key], want) != negate
		}, nil
	case OpLt, OpLe, OpGt, OpGe:
		threshold, ok := state.Number(p.Value)
		if !ok {
			return nil, &universe.ConfigError{
				Reason: fmt.Sprintf("predicate %s on %q needs a numeric value", p.Op, p.Key),
			}
		}
		key, op := p.Key, p.Op
		return func(s state.Map) bool {
			got, ok := state.Number(s[key])
			if !ok {
				return false
			}
			switch op {
			case OpLt:
				return got < threshold
			case OpLe:
				return got <= threshold
			case OpGt:
				return got > threshold
			default:
				return got >= threshold
			}
		}, nil
	default:
		return nil, &universe.ConfigError{Reason: fmt.Sprintf("unknown predicate op: %s", p.Op)}
	}
}

// valuesEqual is state.Equal extended with numeric cross-kind
// comparison, so a manifest's 5 matches a state's 5.0.
func valuesEqual(a, b state.Value) bool {
	if an, ok := state.Number(a); ok {
		if bn, ok := state.Number(b); ok {
			return an == bn
		}
		return false
	}
	return state.Equal(a, b)
}
