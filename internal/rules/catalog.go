// Package rules provides the parametric rule catalogue: named rule
// kinds that build universe.Rule values from declarative descriptors.
// Manifests reference kinds by name, so rule sets can be composed,
// logged, and replayed without closures capturing ambient context.
package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/roach88/demiurge/internal/state"
	"github.com/roach88/demiurge/internal/universe"
)

// Decl is a serializable rule descriptor, as decoded from a manifest.
type Decl struct {
	Name     string
	Kind     string
	Priority int
	Role     string
	Params   state.Map
	Guard    *Predicate
	Until    *Predicate
}

// Kind builds a rule's apply function from its parameters. Parameter
// validation happens here, at construction, so a malformed manifest
// fails before any epoch runs.
type Kind func(params state.Map) (universe.ApplyFn, error)

// Catalog maps kind names to builders. Like the universe registry, it
// is an explicit value the caller constructs and passes around; there
// is no package-level catalogue.
type Catalog struct {
	kinds map[string]Kind
}

// NewCatalog creates an empty catalogue.
func NewCatalog() *Catalog {
	return &Catalog{kinds: make(map[string]Kind)}
}

// Register adds a kind. Duplicate names are a configuration error.
func (c *Catalog) Register(name string, k Kind) error {
	if _, exists := c.kinds[name]; exists {
		return &universe.ConfigError{Reason: fmt.Sprintf("duplicate rule kind: %s", name)}
	}
	c.kinds[name] = k
	return nil
}

// Kinds returns the registered kind names in sorted order.
func (c *Catalog) Kinds() []string {
	names := make([]string, 0, len(c.kinds))
	for name := range c.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile turns a declaration into a runnable rule.
func (c *Catalog) Compile(d Decl) (universe.Rule, error) {
	kind, ok := c.kinds[d.Kind]
	if !ok {
		return universe.Rule{}, &universe.ConfigError{Reason: fmt.Sprintf("unknown rule kind: %s", d.Kind)}
	}

	apply, err := kind(d.Params)
	if err != nil {
		return universe.Rule{}, fmt.Errorf("rule %q: %w", d.Name, err)
	}

	rule := universe.Rule{
		Name:     d.Name,
		Apply:    apply,
		Priority: d.Priority,
		Role:     d.Role,
	}
	if d.Guard != nil {
		guard, err := d.Guard.Compile()
		if err != nil {
			return universe.Rule{}, fmt.Errorf("rule %q guard: %w", d.Name, err)
		}
		rule.Guard = guard
	}
	if d.Until != nil {
		until, err := d.Until.Compile()
		if err != nil {
			return universe.Rule{}, fmt.Errorf("rule %q until: %w", d.Name, err)
		}
		rule.Until = until
	}
	return rule, nil
}

// CompileAll compiles a declaration list, preserving order.
func (c *Catalog) CompileAll(decls []Decl) ([]universe.Rule, error) {
	compiled := make([]universe.Rule, 0, len(decls))
	for _, d := range decls {
		rule, err := c.Compile(d)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, rule)
	}
	return compiled, nil
}

// DefaultCatalog returns the built-in kinds: set, increment, scale,
// step_toward, remove.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	// Registration of built-ins cannot collide.
	must := func(name string, k Kind) {
		if err := c.Register(name, k); err != nil {
			panic(err)
		}
	}
	must("set", setKind)
	must("increment", incrementKind)
	must("scale", scaleKind)
	must("step_toward", stepTowardKind)
	must("remove", removeKind)
	return c
}

// setKind writes a fixed value: params {key, value}.
func setKind(params state.Map) (universe.ApplyFn, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	value, ok := params["value"]
	if !ok {
		return nil, &universe.ConfigError{Reason: `set requires param "value"`}
	}
	return func(s state.Map) (state.Map, error) {
		next := s.Clone()
		next[key] = value
		return next, nil
	}, nil
}

// incrementKind adds a constant to a numeric key: params {key, by}.
// A missing key starts from zero; "by" defaults to 1.
func incrementKind(params state.Map) (universe.ApplyFn, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	by, err := numberParam(params, "by", 1)
	if err != nil {
		return nil, err
	}
	return func(s state.Map) (state.Map, error) {
		current, ok := state.Number(s[key])
		if !ok {
			if _, present := s[key]; present {
				return nil, fmt.Errorf("key %q is not numeric", key)
			}
			current = 0
		}
		next := s.Clone()
		next[key] = numeric(current + by)
		return next, nil
	}, nil
}

// scaleKind multiplies a numeric key: params {key, factor}.
func scaleKind(params state.Map) (universe.ApplyFn, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	factor, err := numberParam(params, "factor", math.NaN())
	if err != nil {
		return nil, err
	}
	if math.IsNaN(factor) {
		return nil, &universe.ConfigError{Reason: `scale requires numeric param "factor"`}
	}
	return func(s state.Map) (state.Map, error) {
		current, ok := state.Number(s[key])
		if !ok {
			return nil, fmt.Errorf("key %q is not numeric", key)
		}
		next := s.Clone()
		next[key] = state.Float(current * factor)
		return next, nil
	}, nil
}

// stepTowardKind moves a numeric key toward a target by at most step:
// params {key, target, step}. Overshoot is clamped to the target, so
// the key is a fixpoint once reached.
func stepTowardKind(params state.Map) (universe.ApplyFn, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	target, err := numberParam(params, "target", math.NaN())
	if err != nil {
		return nil, err
	}
	step, err := numberParam(params, "step", math.NaN())
	if err != nil {
		return nil, err
	}
	if math.IsNaN(target) || math.IsNaN(step) {
		return nil, &universe.ConfigError{Reason: `step_toward requires numeric params "target" and "step"`}
	}
	if step <= 0 {
		return nil, &universe.ConfigError{Reason: "step_toward step must be positive"}
	}
	return func(s state.Map) (state.Map, error) {
		current, ok := state.Number(s[key])
		if !ok {
			return nil, fmt.Errorf("key %q is not numeric", key)
		}
		distance := target - current
		moved := current
		switch {
		case math.Abs(distance) <= step:
			moved = target
		case distance > 0:
			moved = current + step
		default:
			moved = current - step
		}
		next := s.Clone()
		next[key] = numeric(moved)
		return next, nil
	}, nil
}

// removeKind deletes a key: params {key}. Removing an absent key is a
// no-op.
func removeKind(params state.Map) (universe.ApplyFn, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	return func(s state.Map) (state.Map, error) {
		next := s.Clone()
		delete(next, key)
		return next, nil
	}, nil
}

func stringParam(params state.Map, name string) (string, error) {
	v, ok := params[name]
	if !ok {
		return "", &universe.ConfigError{Reason: fmt.Sprintf("missing param %q", name)}
	}
	s, ok := v.(state.String)
	if !ok {
		return "", &universe.ConfigError{Reason: fmt.Sprintf("param %q must be a string", name)}
	}
	return string(s), nil
}

func numberParam(params state.Map, name string, fallback float64) (float64, error) {
	v, ok := params[name]
	if !ok {
		return fallback, nil
	}
	n, ok := state.Number(v)
	if !ok {
		return 0, &universe.ConfigError{Reason: fmt.Sprintf("param %q must be numeric", name)}
	}
	return n, nil
}

// numeric keeps integral results as Int so counter-style universes stay
// in the integer domain.
func numeric(f float64) state.Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return state.Int(int64(f))
	}
	return state.Float(f)
}
