package engine

import (
	"fmt"
	"math"

	"github.com/roach88/demiurge/internal/state"
)

// Metric is a caller-supplied distance between two successive states.
// It must return a non-negative, non-NaN value; the engine places no
// other constraint on its shape. Convergence is delta <= epsilon,
// inclusive, so a metric of exactly epsilon converges.
type Metric func(prev, next state.Map) (float64, error)

// KeysChanged counts the keys whose values differ between the two
// states, including keys present in only one of them (symmetric
// difference cardinality).
func KeysChanged(prev, next state.Map) (float64, error) {
	changed := 0
	for k, v := range prev {
		other, ok := next[k]
		if !ok || !state.Equal(v, other) {
			changed++
		}
	}
	for k := range next {
		if _, ok := prev[k]; !ok {
			changed++
		}
	}
	return float64(changed), nil
}

// AbsSum sums the absolute differences of every numeric key present in
// both states. A key numeric on one side but not the other counts as
// distance 1; non-numeric keys are ignored.
func AbsSum(prev, next state.Map) (float64, error) {
	total := 0.0
	for k, v := range prev {
		a, aNum := state.Number(v)
		other, ok := next[k]
		if !ok {
			continue
		}
		b, bNum := state.Number(other)
		switch {
		case aNum && bNum:
			total += math.Abs(a - b)
		case aNum != bNum:
			total++
		}
	}
	return total, nil
}

// KeyDelta builds a metric measuring the absolute difference of a
// single numeric key. A missing or non-numeric key on either side is a
// metric error: the schema is expected to stay stable within a run.
func KeyDelta(key string) Metric {
	return func(prev, next state.Map) (float64, error) {
		a, ok := state.Number(prev[key])
		if !ok {
			return 0, fmt.Errorf("key %q is not numeric in previous state", key)
		}
		b, ok := state.Number(next[key])
		if !ok {
			return 0, fmt.Errorf("key %q is not numeric in next state", key)
		}
		return math.Abs(a - b), nil
	}
}

// MetricByName resolves the stock metrics addressable from manifests.
func MetricByName(name, key string) (Metric, error) {
	switch name {
	case "keys_changed":
		return KeysChanged, nil
	case "abs_sum":
		return AbsSum, nil
	case "key_delta":
		if key == "" {
			return nil, fmt.Errorf("metric key_delta requires a key")
		}
		return KeyDelta(key), nil
	default:
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
}
