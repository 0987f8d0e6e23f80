package observer

import "log/slog"

// Logging returns an observer that writes one structured log line per
// event. Step and epoch lines go out at debug level, terminal lines at
// info (or error for aborted runs).
func Logging(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Funcs{
		ObserverName: "logging",
		Step: func(ev StepEvent) {
			logger.Debug("step",
				"run", ev.RunID,
				"epoch", ev.Epoch,
				"delta", ev.Delta,
				"rules_fired", ev.RulesFired,
			)
		},
		Epoch: func(ev EpochEvent) {
			logger.Debug("epoch", "run", ev.RunID, "epoch", ev.Epoch)
		},
		Fixpoint: func(ev FixpointEvent) {
			logger.Info("fixpoint",
				"run", ev.RunID,
				"epoch", ev.Epoch,
				"delta", ev.Delta,
				"converged", ev.Converged,
				"reason", ev.Reason,
			)
		},
		Error: func(ev ErrorEvent) {
			logger.Error("run aborted",
				"run", ev.RunID,
				"epoch", ev.Epoch,
				"error", ev.Err,
			)
		},
	}
}
