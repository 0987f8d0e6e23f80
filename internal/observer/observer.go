package observer

import (
	"github.com/roach88/demiurge/internal/state"
)

// StepEvent reports one completed epoch's rewrite: which rules fired
// and how far the state moved. Delivered every epoch, including the
// terminal one.
type StepEvent struct {
	RunID      string
	Seq        int64
	Epoch      int
	Delta      float64
	RulesFired []string
	State      state.Map
}

// EpochEvent reports that the run is continuing into the next epoch,
// carrying the post-increment state snapshot. Not delivered for the
// terminal epoch; observers that only care about quiescence points
// should watch FixpointEvent instead.
type EpochEvent struct {
	RunID string
	Seq   int64
	Epoch int
	State state.Map
}

// FixpointEvent is the terminal event of a run, delivered exactly once
// on every non-error exit (converged, budget exhausted, no eligible
// rule, cancelled).
type FixpointEvent struct {
	RunID     string
	Seq       int64
	Epoch     int
	Delta     float64
	Converged bool
	Reason    string
	State     state.Map
}

// ErrorEvent is the terminal event of a run that aborted on a rule or
// metric failure. No FixpointEvent follows.
type ErrorEvent struct {
	RunID string
	Seq   int64
	Epoch int
	Err   error
}

// Observer is a passive subscriber to engine events. Observers never
// influence control flow: the engine ignores anything an observer does,
// and a panicking observer is isolated by the Bus.
//
// Implementations must not retain references into event state maps
// beyond the callback's scope; the engine may be about to replace them.
type Observer interface {
	Name() string
	OnStep(StepEvent)
	OnEpoch(EpochEvent)
	OnFixpoint(FixpointEvent)
	OnError(ErrorEvent)
}

// Funcs adapts plain callbacks into an Observer. Nil callbacks are
// skipped, so a Funcs with only Step set observes steps and nothing
// else. The zero value is a valid no-op observer.
type Funcs struct {
	ObserverName string
	Step         func(StepEvent)
	Epoch        func(EpochEvent)
	Fixpoint     func(FixpointEvent)
	Error        func(ErrorEvent)
}

func (f *Funcs) Name() string {
	if f.ObserverName == "" {
		return "funcs"
	}
	return f.ObserverName
}

func (f *Funcs) OnStep(ev StepEvent) {
	if f.Step != nil {
		f.Step(ev)
	}
}

func (f *Funcs) OnEpoch(ev EpochEvent) {
	if f.Epoch != nil {
		f.Epoch(ev)
	}
}

func (f *Funcs) OnFixpoint(ev FixpointEvent) {
	if f.Fixpoint != nil {
		f.Fixpoint(ev)
	}
}

func (f *Funcs) OnError(ev ErrorEvent) {
	if f.Error != nil {
		f.Error(ev)
	}
}

type combined struct {
	members []Observer
}

// Combine merges observers into one that delegates each event to every
// member in order. This is the only compositional primitive observers
// need; isolation of failing members is the Bus's job, not Combine's.
func Combine(observers ...Observer) Observer {
	members := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			members = append(members, o)
		}
	}
	return &combined{members: members}
}

func (c *combined) Name() string { return "combined" }

func (c *combined) OnStep(ev StepEvent) {
	for _, o := range c.members {
		o.OnStep(ev)
	}
}

func (c *combined) OnEpoch(ev EpochEvent) {
	for _, o := range c.members {
		o.OnEpoch(ev)
	}
}

func (c *combined) OnFixpoint(ev FixpointEvent) {
	for _, o := range c.members {
		o.OnFixpoint(ev)
	}
}

func (c *combined) OnError(ev ErrorEvent) {
	for _, o := range c.members {
		o.OnError(ev)
	}
}
