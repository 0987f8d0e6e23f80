package observer

import (
	"fmt"
	"log/slog"
)

// Bus fans one event out to an ordered set of observers. Delivery is
// synchronous, in registration order, on the goroutine running the
// engine.
//
// A panic raised by one observer must not block delivery to the next:
// it is recovered, logged, and the run continues. This isolates
// telemetry bugs from simulation correctness. Observer failures are
// therefore invisible to the engine and to remaining observers.
type Bus struct {
	observers []Observer
	logger    *slog.Logger
}

// NewBus creates a bus over the given observers. Nil entries are
// dropped. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger, observers ...Observer) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	kept := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return &Bus{observers: kept, logger: logger}
}

// Len returns the number of registered observers.
func (b *Bus) Len() int {
	return len(b.observers)
}

func (b *Bus) Step(ev StepEvent) {
	for _, o := range b.observers {
		b.deliver(o, "step", func() { o.OnStep(ev) })
	}
}

func (b *Bus) Epoch(ev EpochEvent) {
	for _, o := range b.observers {
		b.deliver(o, "epoch", func() { o.OnEpoch(ev) })
	}
}

func (b *Bus) Fixpoint(ev FixpointEvent) {
	for _, o := range b.observers {
		b.deliver(o, "fixpoint", func() { o.OnFixpoint(ev) })
	}
}

func (b *Bus) Error(ev ErrorEvent) {
	for _, o := range b.observers {
		b.deliver(o, "error", func() { o.OnError(ev) })
	}
}

// deliver invokes one callback with panic isolation.
func (b *Bus) deliver(o Observer, event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("observer panicked, continuing run",
				"observer", o.Name(),
				"event", event,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	fn()
}
