// Package manifest loads declarative universe definitions. Manifests
// are CUE files validated against an embedded schema, so malformed
// definitions fail with file positions before anything runs.
package manifest

// Manifest is a declarative universe definition as decoded from CUE.
type Manifest struct {
	Name   string         `json:"name"`
	State  map[string]any `json:"state"`
	Engine EngineParams   `json:"engine"`
	Metric MetricDecl     `json:"metric"`
	Rules  []RuleDecl     `json:"rules"`
}

// EngineParams are the run parameters. Schema defaults: epsilon 0,
// maxEpoch 100.
type EngineParams struct {
	Epsilon  float64 `json:"epsilon"`
	MaxEpoch int     `json:"maxEpoch"`
}

// MetricDecl names a stock metric. Key is required for key_delta.
type MetricDecl struct {
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
}

// RuleDecl declares one rule by catalogue kind.
type RuleDecl struct {
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	Priority int            `json:"priority"`
	Role     string         `json:"role,omitempty"`
	Params   map[string]any `json:"params"`
	Guard    *PredicateDecl `json:"guard,omitempty"`
	Until    *PredicateDecl `json:"until,omitempty"`
}

// PredicateDecl declares a guard or until condition.
type PredicateDecl struct {
	Key   string `json:"key"`
	Op    string `json:"op"`
	Value any    `json:"value,omitempty"`
}
