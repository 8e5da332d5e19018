package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/laborsync/internal/config"
	"github.com/roach88/laborsync/internal/engine"
	"github.com/roach88/laborsync/internal/planner"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	planFlags
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the year windows the next sync would request",
		Long: `Load the table file and print the windows a sync would request now.

No credential is needed and nothing is fetched or written.

Examples:
  laborsync plan
  laborsync plan --max-span 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, cmd)
		},
	}

	opts.planFlags.register(cmd)
	return cmd
}

func runPlan(opts *PlanOptions, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, func(cfg *config.Config) {
		opts.planFlags.apply(cmd, cfg)
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	cat, err := sess.catalog()
	if err != nil {
		return err
	}

	mode, windows, err := engine.New(sess.engineOptions(cat)).Plan()
	if err != nil {
		return WrapExitError(exitCodeFor(engine.CodeOf(err)), "plan failed", err)
	}

	return sess.formatter(cmd).Success(planView{
		Output:      sess.cfg.Output,
		CurrentYear: sess.now().Year(),
		Mode:        mode,
		Windows:     windows,
		Series:      cat.Len(),
	})
}

type planView struct {
	Output      string           `json:"output"`
	CurrentYear int              `json:"current_year"`
	Mode        planner.Mode     `json:"mode"`
	Windows     []planner.Window `json:"windows"`
	Series      int              `json:"series"`
}

func (v planView) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s start for %s (%d series, current year %d)\n",
		v.Mode, v.Output, v.Series, v.CurrentYear); err != nil {
		return err
	}
	for _, win := range v.Windows {
		if _, err := fmt.Fprintf(w, "  %s (%d years)\n", win, win.Span()); err != nil {
			return err
		}
	}
	return nil
}
