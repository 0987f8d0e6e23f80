package trace

import (
	"context"
	"log/slog"

	"github.com/roach88/demiurge/internal/observer"
	"github.com/roach88/demiurge/internal/state"
)

// Recorder is an observer that writes a run's event log to a Store.
// The run row is inserted lazily on the first observed event (the
// recorder learns the run ID from the event stream) and finalized when
// the terminal fixpoint or error event arrives.
//
// Write failures are logged and dropped: a broken trace database must
// not affect run correctness.
type Recorder struct {
	store        *Store
	universeName string
	epsilon      float64
	maxEpoch     int
	logger       *slog.Logger

	begun map[string]bool
}

// NewRecorder creates a recorder for runs of the named universe.
func NewRecorder(store *Store, universeName string, epsilon float64, maxEpoch int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:        store,
		universeName: universeName,
		epsilon:      epsilon,
		maxEpoch:     maxEpoch,
		logger:       logger,
		begun:        make(map[string]bool),
	}
}

func (r *Recorder) Name() string { return "trace" }

func (r *Recorder) ensureRun(ctx context.Context, runID string) {
	if r.begun[runID] {
		return
	}
	if err := r.store.beginRun(ctx, runID, r.universeName, r.epsilon, r.maxEpoch); err != nil {
		r.logger.Warn("trace begin failed", "run", runID, "error", err)
		return
	}
	r.begun[runID] = true
}

func (r *Recorder) OnStep(ev observer.StepEvent) {
	ctx := context.Background()
	r.ensureRun(ctx, ev.RunID)
	r.write(Event{
		RunID:       ev.RunID,
		Seq:         ev.Seq,
		Kind:        "step",
		Epoch:       ev.Epoch,
		Delta:       ev.Delta,
		RulesFired:  ev.RulesFired,
		Fingerprint: r.fingerprint(ev.RunID, ev.State),
	})
}

func (r *Recorder) OnEpoch(ev observer.EpochEvent) {
	ctx := context.Background()
	r.ensureRun(ctx, ev.RunID)
	r.write(Event{
		RunID:       ev.RunID,
		Seq:         ev.Seq,
		Kind:        "epoch",
		Epoch:       ev.Epoch,
		Fingerprint: r.fingerprint(ev.RunID, ev.State),
	})
}

func (r *Recorder) OnFixpoint(ev observer.FixpointEvent) {
	ctx := context.Background()
	r.ensureRun(ctx, ev.RunID)

	fingerprint := r.fingerprint(ev.RunID, ev.State)
	r.write(Event{
		RunID:       ev.RunID,
		Seq:         ev.Seq,
		Kind:        "fixpoint",
		Epoch:       ev.Epoch,
		Delta:       ev.Delta,
		Fingerprint: fingerprint,
		Detail:      ev.Reason,
	})
	if err := r.store.finishRun(ctx, ev.RunID, ev.Reason, ev.Converged, ev.Epoch, fingerprint); err != nil {
		r.logger.Warn("trace finish failed", "run", ev.RunID, "error", err)
	}
	delete(r.begun, ev.RunID)
}

func (r *Recorder) OnError(ev observer.ErrorEvent) {
	ctx := context.Background()
	r.ensureRun(ctx, ev.RunID)

	r.write(Event{
		RunID:  ev.RunID,
		Seq:    ev.Seq,
		Kind:   "error",
		Epoch:  ev.Epoch,
		Detail: ev.Err.Error(),
	})
	if err := r.store.finishRun(ctx, ev.RunID, "ERROR", false, ev.Epoch, ""); err != nil {
		r.logger.Warn("trace finish failed", "run", ev.RunID, "error", err)
	}
	delete(r.begun, ev.RunID)
}

func (r *Recorder) write(ev Event) {
	if err := r.store.writeEvent(context.Background(), ev); err != nil {
		r.logger.Warn("trace write failed", "run", ev.RunID, "seq", ev.Seq, "error", err)
	}
}

func (r *Recorder) fingerprint(runID string, s state.Map) string {
	fp, err := state.Fingerprint(s)
	if err != nil {
		r.logger.Warn("state not fingerprintable", "run", runID, "error", err)
		return ""
	}
	return fp
}
