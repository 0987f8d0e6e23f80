// Package engine implements the demiurge fixpoint loop.
//
// The engine is the heart of demiurge - it borrows a universe, applies
// its rules epoch by epoch, and stops when a caller-supplied metric
// between successive states falls to epsilon or the epoch budget runs
// out.
//
// ARCHITECTURE:
//
// Single-threaded loop:
// A run executes entirely on the calling goroutine. This ensures:
//   - Predictable rule application order (priority desc, registration
//     order for ties)
//   - Reproducible observer event sequences given the same inputs
//   - Simple reasoning about what state an observer saw
//
// Per-epoch flow:
//  1. Eligible rules resolved against the epoch's opening state
//  2. Rules applied sequentially, each output feeding the next
//  3. Metric compares opening state to the composed result
//  4. Observers notified (step, then epoch or fixpoint)
//  5. Converged, budget exhausted, or continue
//
// Observer callbacks run synchronously on the loop goroutine and are
// panic-isolated; a broken observer cannot corrupt a run.
//
// Determinism:
// All events carry a monotonic seq from the run's logical Clock, never
// wall-clock timestamps. Two runs with identical inputs produce
// identical result states and identical event sequences.
package engine
