package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/demiurge/internal/manifest"
	"github.com/roach88/demiurge/internal/rules"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest.cue>",
		Short: "Validate a universe manifest without running it",
		Long: `Validate a manifest against the schema and compile its rule set
against the catalogue. Exits non-zero with positional diagnostics on
the first problem found.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid manifest", err)
			}
			// Rule declarations must also compile, not just parse.
			if _, _, err := manifest.Build(m, rules.DefaultCatalog()); err != nil {
				return WrapExitError(ExitCommandError, "invalid manifest", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			text := fmt.Sprintf("manifest ok: universe %q, %d rules, metric %s, epsilon %v, max epoch %d",
				m.Name, len(m.Rules), m.Metric.Name, m.Engine.Epsilon, m.Engine.MaxEpoch)
			return formatter.Success(text, map[string]any{
				"universe":  m.Name,
				"rules":     len(m.Rules),
				"metric":    m.Metric.Name,
				"epsilon":   m.Engine.Epsilon,
				"max_epoch": m.Engine.MaxEpoch,
			})
		},
	}
	return cmd
}
