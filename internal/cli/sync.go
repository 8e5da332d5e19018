package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/laborsync/internal/config"
	"github.com/roach88/laborsync/internal/engine"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	planFlags
	Concurrency int
	Timeout     time.Duration

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch new observations and merge them into the table",
		Long: `Run one incremental synchronization.

The table file is loaded (absent means cold start), the year windows to
request are planned from its latest month, every window is fetched, and the
parsed observations are merged over the existing table. The file is replaced
atomically and only when the merge changed something.

The upstream registration key is read from the environment variable named by
credential_env (default BLS_API_KEY).

Exit codes:
  0 - Table updated or already current
  3 - Configuration error (missing credential, invalid settings)
  4 - Transport error (network, timeout, non-2xx status)
  5 - Malformed upstream response
  6 - Storage error (table file unreadable or not writable)

Examples:
  laborsync sync
  laborsync sync --output ./bls_data.csv --format json
  laborsync sync --min-history-year 2000 --concurrency 4`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	opts.planFlags.register(cmd)
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "requests in flight at once")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-request timeout")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, func(cfg *config.Config) {
		opts.planFlags.apply(cmd, cfg)
		if cmd.Flags().Changed("concurrency") {
			cfg.Concurrency = opts.Concurrency
		}
		if cmd.Flags().Changed("timeout") {
			cfg.Timeout = opts.Timeout
		}
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	cat, err := sess.catalog()
	if err != nil {
		return err
	}

	eopts := sess.engineOptions(cat)
	eopts.RunIDs = opts.RunIDs

	ledger, err := sess.openLedger()
	if err != nil {
		// The ledger is diagnostic; a sync proceeds without it.
		sess.log.Warn("ledger unavailable", zap.String("path", sess.cfg.Ledger), zap.Error(err))
	} else if ledger != nil {
		defer func() {
			if closeErr := ledger.Close(); closeErr != nil {
				sess.log.Error("error closing ledger", zap.Error(closeErr))
			}
		}()
		eopts.Ledger = ledger
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := engine.New(eopts).Run(ctx)
	view := syncView{Report: report, Output: sess.cfg.Output}
	f := sess.formatter(cmd)
	if err != nil {
		code := engine.CodeOf(err)
		_ = f.Error(string(code), err.Error(), view)
		return WrapExitError(exitCodeFor(code), "sync failed", err)
	}
	return f.Success(view)
}

type syncView struct {
	*engine.Report
	Output string `json:"output"`
}

func (v syncView) WriteText(w io.Writer) error {
	r := v.Report
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s\n", r.RunID, r.Outcome)
	fmt.Fprintf(&b, "  table     %s (%d months", v.Output, r.Rows)
	if r.TableHash != "" {
		fmt.Fprintf(&b, ", hash %s", shortHash(r.TableHash))
	}
	b.WriteString(")\n")
	if len(r.Windows) > 0 {
		windows := make([]string, len(r.Windows))
		for i, win := range r.Windows {
			windows[i] = win.String()
		}
		fmt.Fprintf(&b, "  plan      %s start, windows %s (%d requests)\n",
			r.Mode, strings.Join(windows, ", "), r.Requests)
	}
	if r.Outcome != engine.OutcomeFailed || r.Records > 0 {
		fmt.Fprintf(&b, "  records   %d accepted, %d annual averages skipped, %d rejected\n",
			r.Records, r.Skipped, r.Rejected)
		fmt.Fprintf(&b, "  merge     %d months added, %d cells added, %d revised, %d unchanged\n",
			r.Stats.RowsAdded, r.Stats.CellsAdded, r.Stats.CellsRevised, r.Stats.CellsUnchanged)
	}
	for _, rej := range r.Rejections {
		fmt.Fprintf(&b, "  rejected  %s %s %s %q: %s\n", rej.SeriesID, rej.Year, rej.Period, rej.Value, rej.Reason)
	}
	if extra := r.Rejected - len(r.Rejections); extra > 0 {
		fmt.Fprintf(&b, "  rejected  ... and %d more\n", extra)
	}
	fmt.Fprintf(&b, "  duration  %s\n", r.Duration.Round(time.Millisecond))
	_, err := io.WriteString(w, b.String())
	return err
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
