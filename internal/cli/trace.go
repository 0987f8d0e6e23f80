package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/demiurge/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Verify   []string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions, envCfg EnvConfig) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect recorded run traces",
		Long: `Without arguments, list all recorded runs. With a run ID, print that
run's event log in sequence order.

With --verify A,B, compare two runs' event logs and report the first
divergence; identical logs confirm the determinism property.

Example:
  demiurge trace --db ./trace.db
  demiurge trace --db ./trace.db 0190b5a2-...
  demiurge trace --db ./trace.db --verify run-a,run-b`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", envCfg.Database, "path to SQLite trace database (required)")
	cmd.Flags().StringSliceVar(&opts.Verify, "verify", nil, "two run IDs to compare for determinism")

	return cmd
}

func runTrace(cmd *cobra.Command, opts *TraceOptions, args []string) error {
	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required (or set DEMIURGE_DB)")
	}

	st, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	defer st.Close()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	ctx := cmd.Context()

	if len(opts.Verify) > 0 {
		if len(opts.Verify) != 2 {
			return NewExitError(ExitCommandError, "--verify takes exactly two run IDs")
		}
		divergence, err := st.Verify(ctx, opts.Verify[0], opts.Verify[1])
		if err != nil {
			return WrapExitError(ExitCommandError, "verify failed", err)
		}
		if divergence != "" {
			return NewExitError(ExitFailure, "traces diverge: "+divergence)
		}
		return formatter.Success("traces identical", map[string]any{"identical": true})
	}

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return formatter.Success(formatRuns(runs), runs)
	}

	events, err := st.ReadEvents(ctx, args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	if len(events) == 0 {
		return NewExitError(ExitCommandError, "no events for run "+args[0])
	}
	return formatter.Success(formatEvents(events), events)
}

func formatRuns(runs []trace.Run) string {
	if len(runs) == 0 {
		return "no recorded runs"
	}
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s  %s  epochs=%d  converged=%v", r.ID, r.Universe, r.Reason, r.Epochs, r.Converged)
	}
	return b.String()
}

func formatEvents(events []trace.Event) string {
	var b strings.Builder
	for i, ev := range events {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%4d  %-8s  epoch=%d  delta=%v", ev.Seq, ev.Kind, ev.Epoch, ev.Delta)
		if len(ev.RulesFired) > 0 {
			fmt.Fprintf(&b, "  rules=%s", strings.Join(ev.RulesFired, ","))
		}
		if ev.Detail != "" {
			fmt.Fprintf(&b, "  %s", ev.Detail)
		}
	}
	return b.String()
}
