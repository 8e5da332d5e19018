package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/laborsync/internal/engine"
	"github.com/roach88/laborsync/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Re-parse a run's archived payloads and verify its hash",
		Long: `Re-parse the upstream payloads archived for a run and compare the hash of
the resulting table with the one recorded when the run happened.

The table file is not touched.

Exit codes:
  0 - Replay reproduces the recorded hash
  1 - Hash mismatch, or the run archived no payloads
  2 - Unknown run id
  5 - An archived payload no longer parses

Examples:
  laborsync replay 0190b6c2-7c1e-7b7a-9f7e-3f5d2c1a0b99
  laborsync replay 0190b6c2-7c1e-7b7a-9f7e-3f5d2c1a0b99 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}
	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	cat, err := sess.catalog()
	if err != nil {
		return err
	}

	ledger, err := sess.openLedger()
	if err != nil {
		return WrapExitError(ExitStorageError, "failed to open ledger", err)
	}
	if ledger == nil {
		return NewExitError(ExitConfigError, "run ledger is disabled")
	}
	defer ledger.Close()

	ctx := cmd.Context()
	run, err := ledger.GetRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	if err != nil {
		return WrapExitError(ExitStorageError, "failed to read run", err)
	}

	payloads, err := ledger.ReadPayloads(ctx, runID)
	if err != nil {
		return WrapExitError(ExitStorageError, "failed to read payloads", err)
	}
	if len(payloads) == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s archived no payloads", runID))
	}

	tbl, err := engine.New(sess.engineOptions(cat)).Replay(ctx, payloads)
	if err != nil {
		return WrapExitError(exitCodeFor(engine.CodeOf(err)), "replay failed", err)
	}

	view := replayView{
		RunID:    runID,
		Payloads: len(payloads),
		Rows:     tbl.Len(),
		Hash:     tbl.Hash(),
		Recorded: run.FreshHash,
	}
	view.Match = view.Hash == view.Recorded

	f := sess.formatter(cmd)
	if !view.Match {
		_ = f.Error("REPLAY_MISMATCH", "replayed hash differs from the recorded hash", view)
		return NewExitError(ExitFailure, "replay mismatch")
	}
	return f.Success(view)
}

type replayView struct {
	RunID    string `json:"run_id"`
	Payloads int    `json:"payloads"`
	Rows     int    `json:"rows"`
	Hash     string `json:"hash"`
	Recorded string `json:"recorded_hash"`
	Match    bool   `json:"match"`
}

func (v replayView) WriteText(w io.Writer) error {
	mark := "✓"
	if !v.Match {
		mark = "✗"
	}
	_, err := fmt.Fprintf(w, "%s run %s: %d payloads, %d months\n  replayed %s\n  recorded %s\n",
		mark, v.RunID, v.Payloads, v.Rows, v.Hash, v.Recorded)
	return err
}
