package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/laborsync/internal/engine"
)

// RootOptions holds global flags for all commands, plus the seams tests use
// to replace the environment, the clock and the upstream.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	Output     string
	Ledger     string
	NoLedger   bool
	Catalog    string
	LogFile    string

	// LookupEnv reads the credential variable. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Clock overrides the wall clock.
	Clock engine.Clock

	// Fetcher overrides the HTTP client.
	Fetcher engine.Fetcher

	// LogWriter overrides stderr as the console log sink.
	LogWriter io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the laborsync CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{LookupEnv: os.LookupEnv})
}

// NewRootCommandWithOptions creates the root command bound to opts.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laborsync",
		Short: "Incremental sync of monthly BLS labor indicators",
		Long: `laborsync keeps a local table of monthly U.S. labor-market indicators in
step with the BLS public timeseries API.

Each sync re-requests a trailing window of recent years, merges revisions
into the persisted CSV without duplicates or regressions, and replaces the
file atomically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&opts.Output, "output", "o", "", "table file (overrides config)")
	flags.StringVar(&opts.Ledger, "ledger", "", "run ledger database (overrides config)")
	flags.BoolVar(&opts.NoLedger, "no-ledger", false, "do not open the run ledger")
	flags.StringVar(&opts.Catalog, "catalog", "", "CUE series catalog (overrides config)")
	flags.StringVar(&opts.LogFile, "log-file", "", "also write logs to this rotated file")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewLatestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
