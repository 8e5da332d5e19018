package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/laborsync/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit   int
	Outcome string
	Since   string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sync runs, newest first",
		Long: `List runs recorded in the ledger with their outcome and counters.

Exit codes:
  0 - Runs listed (possibly none)
  2 - Invalid filter
  3 - Ledger disabled
  6 - Ledger could not be read

Examples:
  laborsync history
  laborsync history --outcome failed --since 2024-06-01
  laborsync history --since "2 weeks ago"
  laborsync history --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only runs with this outcome (updated|no_change|failed)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "only runs started on or after this time (YYYY-MM-DD or e.g. \"3 days ago\")")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid limit %d", opts.Limit))
	}
	filter := store.RunFilter{Outcome: opts.Outcome, Limit: opts.Limit}
	if opts.Since != "" {
		since, err := parseSince(opts.Since, sess.now())
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --since", err)
		}
		filter.Since = since
	}

	ledger, err := sess.openLedger()
	if err != nil {
		return WrapExitError(ExitStorageError, "failed to open ledger", err)
	}
	if ledger == nil {
		return NewExitError(ExitConfigError, "run ledger is disabled")
	}
	defer ledger.Close()

	runs, err := ledger.FindRuns(cmd.Context(), filter)
	if errors.Is(err, store.ErrInvalidFilter) {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	if err != nil {
		return WrapExitError(ExitStorageError, "failed to list runs", err)
	}
	return sess.formatter(cmd).Success(historyView{Runs: runs})
}

type historyView struct {
	Runs []store.Run `json:"runs"`
}

func (v historyView) WriteText(w io.Writer) error {
	if len(v.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tOUTCOME\tROWS\tRECORDS\tREJECTED\tDETAIL")
	for _, r := range v.Runs {
		detail := r.ErrorCode
		if detail == "" {
			detail = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Outcome, r.Rows, r.Records, r.Rejected, detail)
	}
	return tw.Flush()
}
