package observer

import (
	"context"
	"log/slog"
	"strconv"

	backend "github.com/redis/go-redis/v9"

	"github.com/roach88/demiurge/internal/state"
)

// RedisPublisher streams run events into Redis so external consumers
// can follow a run without being wired into the process. Step events
// are appended to a per-run stream; the terminal state is written as
// canonical JSON under a plain key on fixpoint.
//
// Publish failures are logged and dropped: an unreachable Redis must
// not affect run correctness.
type RedisPublisher struct {
	client *backend.Client
	prefix string
	logger *slog.Logger
}

// NewRedisPublisher creates a publisher from an existing client.
// The prefix defaults to "demiurge:run:".
func NewRedisPublisher(client *backend.Client, prefix string, logger *slog.Logger) *RedisPublisher {
	if prefix == "" {
		prefix = "demiurge:run:"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) streamKey(runID string) string {
	return p.prefix + runID + ":events"
}

func (p *RedisPublisher) stateKey(runID string) string {
	return p.prefix + runID + ":state"
}

func (p *RedisPublisher) OnStep(ev StepEvent) {
	values := map[string]any{
		"kind":  "step",
		"epoch": ev.Epoch,
		"delta": strconv.FormatFloat(ev.Delta, 'g', -1, 64),
	}
	for i, name := range ev.RulesFired {
		values["rule."+strconv.Itoa(i)] = name
	}
	err := p.client.XAdd(context.Background(), &backend.XAddArgs{
		Stream: p.streamKey(ev.RunID),
		Values: values,
	}).Err()
	if err != nil {
		p.logger.Warn("redis step publish failed", "run", ev.RunID, "error", err)
	}
}

func (p *RedisPublisher) OnEpoch(EpochEvent) {}

func (p *RedisPublisher) OnFixpoint(ev FixpointEvent) {
	ctx := context.Background()

	err := p.client.XAdd(ctx, &backend.XAddArgs{
		Stream: p.streamKey(ev.RunID),
		Values: map[string]any{
			"kind":      "fixpoint",
			"epoch":     ev.Epoch,
			"reason":    ev.Reason,
			"converged": strconv.FormatBool(ev.Converged),
		},
	}).Err()
	if err != nil {
		p.logger.Warn("redis fixpoint publish failed", "run", ev.RunID, "error", err)
	}

	encoded, err := state.MarshalCanonical(ev.State)
	if err != nil {
		p.logger.Warn("terminal state not serializable", "run", ev.RunID, "error", err)
		return
	}
	if err := p.client.Set(ctx, p.stateKey(ev.RunID), encoded, 0).Err(); err != nil {
		p.logger.Warn("redis state write failed", "run", ev.RunID, "error", err)
	}
}

func (p *RedisPublisher) OnError(ev ErrorEvent) {
	err := p.client.XAdd(context.Background(), &backend.XAddArgs{
		Stream: p.streamKey(ev.RunID),
		Values: map[string]any{
			"kind":  "error",
			"epoch": ev.Epoch,
			"error": ev.Err.Error(),
		},
	}).Err()
	if err != nil {
		p.logger.Warn("redis error publish failed", "run", ev.RunID, "error", err)
	}
}
