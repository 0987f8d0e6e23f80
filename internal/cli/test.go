package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/demiurge/internal/harness"
)

// NewTestCommand creates the test command, running harness scenarios.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenario.yaml>...",
		Short: "Run conformance scenarios",
		Long: `Execute scenario files against the engine and report pass/fail per
scenario. Exits non-zero if any scenario fails.

Example:
  demiurge test ./scenarios/counter.yaml ./scenarios/decay.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, rootOpts, args)
		},
	}
	return cmd
}

type scenarioOutcome struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`
}

func runScenarios(cmd *cobra.Command, rootOpts *RootOptions, paths []string) error {
	var outcomes []scenarioOutcome
	failed := 0

	for _, path := range paths {
		sc, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		result, err := harness.Run(cmd.Context(), sc)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to run scenario", err)
		}

		outcome := scenarioOutcome{Name: sc.Name, Passed: result.Passed(), Failures: result.Failures}
		if !outcome.Passed {
			failed++
		}
		outcomes = append(outcomes, outcome)
	}

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	if err := formatter.Success(formatOutcomes(outcomes), outcomes); err != nil {
		return err
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", failed, len(outcomes)))
	}
	return nil
}

func formatOutcomes(outcomes []scenarioOutcome) string {
	var b strings.Builder
	for i, o := range outcomes {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := "PASS"
		if !o.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s  %s", status, o.Name)
		for _, f := range o.Failures {
			fmt.Fprintf(&b, "\n      %s", f)
		}
	}
	return b.String()
}
