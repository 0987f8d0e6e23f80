package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/demiurge/internal/rules"
)

// Stock metric names, as accepted by manifests.
var metricNames = []string{"abs_sum", "key_delta", "keys_changed"}

// NewKindsCommand creates the kinds command, listing the rule and
// metric catalogues a manifest can reference.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kinds",
		Short:         "List available rule kinds and metrics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := rules.DefaultCatalog().Kinds()

			var b strings.Builder
			b.WriteString("rule kinds:")
			for _, k := range kinds {
				b.WriteString("\n  - " + k)
			}
			b.WriteString("\nmetrics:")
			for _, m := range metricNames {
				b.WriteString("\n  - " + m)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(b.String(), map[string]any{
				"rule_kinds": kinds,
				"metrics":    metricNames,
			})
		},
	}
	return cmd
}
