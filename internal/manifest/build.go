package manifest

import (
	"fmt"

	"github.com/roach88/demiurge/internal/engine"
	"github.com/roach88/demiurge/internal/rules"
	"github.com/roach88/demiurge/internal/state"
	"github.com/roach88/demiurge/internal/universe"
)

// Build turns a validated manifest into a runnable universe plus the
// engine options it declares. Observers are not part of the manifest:
// they are process concerns the caller attaches via Options.Observers.
func Build(m *Manifest, catalog *rules.Catalog) (*universe.Universe, engine.Options, error) {
	initial, err := state.MapFromGo(m.State)
	if err != nil {
		return nil, engine.Options{}, fmt.Errorf("manifest %q state: %w", m.Name, err)
	}

	decls := make([]rules.Decl, 0, len(m.Rules))
	for _, rd := range m.Rules {
		decl, err := ruleDecl(rd)
		if err != nil {
			return nil, engine.Options{}, fmt.Errorf("manifest %q: %w", m.Name, err)
		}
		decls = append(decls, decl)
	}
	compiled, err := catalog.CompileAll(decls)
	if err != nil {
		return nil, engine.Options{}, fmt.Errorf("manifest %q: %w", m.Name, err)
	}

	u, err := universe.New(initial, compiled)
	if err != nil {
		return nil, engine.Options{}, fmt.Errorf("manifest %q: %w", m.Name, err)
	}

	metric, err := engine.MetricByName(m.Metric.Name, m.Metric.Key)
	if err != nil {
		return nil, engine.Options{}, fmt.Errorf("manifest %q: %w", m.Name, err)
	}

	opts := engine.Options{
		Metric:   metric,
		Epsilon:  m.Engine.Epsilon,
		MaxEpoch: m.Engine.MaxEpoch,
	}
	return u, opts, nil
}

func ruleDecl(rd RuleDecl) (rules.Decl, error) {
	params, err := state.MapFromGo(rd.Params)
	if err != nil {
		return rules.Decl{}, fmt.Errorf("rule %q params: %w", rd.Name, err)
	}

	decl := rules.Decl{
		Name:     rd.Name,
		Kind:     rd.Kind,
		Priority: rd.Priority,
		Role:     rd.Role,
		Params:   params,
	}
	if rd.Guard != nil {
		guard, err := predicate(*rd.Guard)
		if err != nil {
			return rules.Decl{}, fmt.Errorf("rule %q guard: %w", rd.Name, err)
		}
		decl.Guard = &guard
	}
	if rd.Until != nil {
		until, err := predicate(*rd.Until)
		if err != nil {
			return rules.Decl{}, fmt.Errorf("rule %q until: %w", rd.Name, err)
		}
		decl.Until = &until
	}
	return decl, nil
}

func predicate(pd PredicateDecl) (rules.Predicate, error) {
	p := rules.Predicate{Key: pd.Key, Op: pd.Op}
	if pd.Value != nil {
		value, err := state.FromGo(pd.Value)
		if err != nil {
			return rules.Predicate{}, fmt.Errorf("predicate value: %w", err)
		}
		p.Value = value
	}
	return p, nil
}
