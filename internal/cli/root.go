package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the demiurge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	envCfg, envErr := loadEnvConfig()
	defaultFormat := envCfg.Format
	if defaultFormat == "" {
		defaultFormat = "text"
	}

	cmd := &cobra.Command{
		Use:   "demiurge",
		Short: "demiurge - fixpoint engine for rule-rewritten universes",
		Long: `demiurge runs declarative universes to a fixpoint: a state, an
ordered rule set, and a metric are iterated until the metric between
successive states falls to epsilon or the epoch budget runs out.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", defaultFormat, "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts, envCfg))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewKindsCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts, envCfg))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
