package trace

import (
	"context"
	"encoding/json"
	"fmt"
)

// Run is one row of the runs table.
type Run struct {
	ID               string  `json:"id"`
	Universe         string  `json:"universe"`
	Epsilon          float64 `json:"epsilon"`
	MaxEpoch         int     `json:"max_epoch"`
	Reason           string  `json:"reason"`
	Converged        bool    `json:"converged"`
	Epochs           int     `json:"epochs"`
	FinalFingerprint string  `json:"final_fingerprint"`
	CreatedAt        string  `json:"created_at"`
}

// Event is one row of the events table. Kind is one of "step",
// "epoch", "fixpoint", "error"; Detail carries the reason or the error
// text for terminal events.
type Event struct {
	RunID       string   `json:"run_id"`
	Seq         int64    `json:"seq"`
	Kind        string   `json:"kind"`
	Epoch       int      `json:"epoch"`
	Delta       float64  `json:"delta"`
	RulesFired  []string `json:"rules_fired,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Detail      string   `json:"detail,omitempty"`
}

// ListRuns returns all recorded runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, universe, epsilon, max_epoch, reason, converged, epochs, final_fingerprint, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Universe, &r.Epsilon, &r.MaxEpoch, &r.Reason, &r.Converged, &r.Epochs, &r.FinalFingerprint, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ReadRun returns a single run row.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, universe, epsilon, max_epoch, reason, converged, epochs, final_fingerprint, created_at
		FROM runs WHERE id = ?
	`, runID).Scan(&r.ID, &r.Universe, &r.Epsilon, &r.MaxEpoch, &r.Reason, &r.Converged, &r.Epochs, &r.FinalFingerprint, &r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return r, nil
}

// ReadEvents returns a run's event log in seq order.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, epoch, delta, rules_fired, fingerprint, detail
		FROM events
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read events %s: %w", runID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var rulesJSON string
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.Kind, &ev.Epoch, &ev.Delta, &rulesJSON, &ev.Fingerprint, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.RulesFired = unmarshalRules(rulesJSON)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Verify compares two runs' event logs position by position, ignoring
// run IDs and seq numbers. An empty divergence string means the runs
// are identical - the determinism property: same universe, same
// parameters, same trace.
func (s *Store) Verify(ctx context.Context, runA, runB string) (string, error) {
	a, err := s.ReadEvents(ctx, runA)
	if err != nil {
		return "", err
	}
	b, err := s.ReadEvents(ctx, runB)
	if err != nil {
		return "", err
	}

	if len(a) != len(b) {
		return fmt.Sprintf("event count differs: %d vs %d", len(a), len(b)), nil
	}
	for i := range a {
		if diff := diffEvents(a[i], b[i]); diff != "" {
			return fmt.Sprintf("event %d: %s", i, diff), nil
		}
	}
	return "", nil
}

func diffEvents(a, b Event) string {
	switch {
	case a.Kind != b.Kind:
		return fmt.Sprintf("kind %s vs %s", a.Kind, b.Kind)
	case a.Epoch != b.Epoch:
		return fmt.Sprintf("epoch %d vs %d", a.Epoch, b.Epoch)
	case a.Delta != b.Delta:
		return fmt.Sprintf("delta %v vs %v", a.Delta, b.Delta)
	case marshalRules(a.RulesFired) != marshalRules(b.RulesFired):
		return fmt.Sprintf("rules %v vs %v", a.RulesFired, b.RulesFired)
	case a.Fingerprint != b.Fingerprint:
		return fmt.Sprintf("fingerprint %s vs %s", a.Fingerprint, b.Fingerprint)
	case a.Detail != b.Detail:
		return fmt.Sprintf("detail %q vs %q", a.Detail, b.Detail)
	default:
		return ""
	}
}

func marshalRules(rules []string) string {
	if len(rules) == 0 {
		return "[]"
	}
	encoded, err := json.Marshal(rules)
	if err != nil {
		// []string cannot fail to marshal.
		return "[]"
	}
	return string(encoded)
}

func unmarshalRules(encoded string) []string {
	var rules []string
	if err := json.Unmarshal([]byte(encoded), &rules); err != nil || len(rules) == 0 {
		return nil
	}
	return rules
}
