package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/demiurge/internal/engine"
	"github.com/roach88/demiurge/internal/manifest"
	"github.com/roach88/demiurge/internal/observer"
	"github.com/roach88/demiurge/internal/rules"
	"github.com/roach88/demiurge/internal/state"
	"github.com/roach88/demiurge/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions, envCfg EnvConfig) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <manifest.cue>",
		Short: "Run a universe manifest to its fixpoint",
		Long: `Load a universe manifest, build its rule set from the catalogue, and
drive it to a fixpoint.

With --db, the run's event trace is recorded to a SQLite database for
later inspection with "demiurge trace".

Example:
  demiurge run ./universes/counter.cue
  demiurge run --db ./trace.db ./universes/counter.cue --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", envCfg.Database, "path to SQLite trace database (optional)")

	return cmd
}

// runPayload is the JSON shape of a run's outcome.
type runPayload struct {
	RunID     string         `json:"run_id"`
	Universe  string         `json:"universe"`
	Epoch     int            `json:"epoch"`
	Delta     float64        `json:"delta"`
	Converged bool           `json:"converged"`
	Reason    string         `json:"reason"`
	State     map[string]any `json:"state"`
}

func runManifest(cmd *cobra.Command, opts *RunOptions, path string) error {
	m, err := manifest.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}

	u, runOpts, err := manifest.Build(m, rules.DefaultCatalog())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build universe", err)
	}

	runOpts.Observers = append(runOpts.Observers, observer.Logging(slog.Default()))

	if opts.Database != "" {
		st, err := trace.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing trace database", "error", closeErr)
			}
		}()
		recorder := trace.NewRecorder(st, m.Name, runOpts.Epsilon, runOpts.MaxEpoch, slog.Default())
		runOpts.Observers = append(runOpts.Observers, recorder)
	}

	result, err := engine.Run(cmd.Context(), u, runOpts)
	if err != nil {
		return WrapExitError(ExitFailure, "run failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(formatRunResult(m.Name, result), runPayload{
		RunID:     result.RunID,
		Universe:  m.Name,
		Epoch:     result.Epoch,
		Delta:     result.Delta,
		Converged: result.Converged,
		Reason:    string(result.Reason),
		State:     state.Interface(result.State).(map[string]any),
	})
}

func formatRunResult(name string, result *engine.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "universe %s: %s at epoch %d (delta=%v)\n", name, result.Reason, result.Epoch, result.Delta)
	fmt.Fprintf(&b, "run id: %s\n", result.RunID)
	b.WriteString("terminal state:")
	for _, key := range result.State.SortedKeys() {
		fmt.Fprintf(&b, "\n  %s: %v", key, state.Interface(result.State[key]))
	}
	return b.String()
}
