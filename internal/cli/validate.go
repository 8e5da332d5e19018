package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/laborsync/internal/tablefile"
	"github.com/roach88/laborsync/internal/timeseries"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [table-file]",
		Short: "Check a table file against the format rules",
		Long: `Validate a table file: header starting with Date, one row per first-of-month
date, unique months and columns, finite numeric values.

Without an argument the configured output file is checked.

Exit codes:
  0 - File is valid
  1 - File violates the format
  2 - File does not exist
  6 - File could not be read

Examples:
  laborsync validate
  laborsync validate ./bls_data.csv --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	path := sess.cfg.Output
	if len(args) == 1 {
		path = args[0]
	}

	f := sess.formatter(cmd)
	tbl, err := tablefile.New(path).Load()
	switch {
	case tablefile.IsFormatError(err):
		_ = f.Error("INVALID_TABLE", err.Error(), nil)
		return WrapExitError(ExitFailure, "table file is invalid", err)
	case err != nil:
		return WrapExitError(ExitStorageError, "failed to read table file", err)
	case tbl == nil:
		return NewExitError(ExitCommandError, fmt.Sprintf("table file %s does not exist", path))
	}

	view := validateView{
		Path:    path,
		Months:  tbl.Len(),
		Columns: tbl.Columns(),
		Cells:   tbl.Cells(),
		Hash:    tbl.Hash(),
	}
	if first, ok := tbl.MinMonth(); ok {
		view.First = &first
	}
	if last, ok := tbl.MaxMonth(); ok {
		view.Last = &last
	}
	return f.Success(view)
}

type validateView struct {
	Path    string            `json:"path"`
	Months  int               `json:"months"`
	Columns []string          `json:"columns"`
	Cells   int               `json:"cells"`
	First   *timeseries.Month `json:"first,omitempty"`
	Last    *timeseries.Month `json:"last,omitempty"`
	Hash    string            `json:"hash"`
}

func (v validateView) WriteText(w io.Writer) error {
	span := "no months"
	if v.First != nil && v.Last != nil {
		span = fmt.Sprintf("%s to %s", v.First, v.Last)
	}
	_, err := fmt.Fprintf(w, "✓ %s is valid: %d months (%s), %d columns, %d cells\n  hash %s\n",
		v.Path, v.Months, span, len(v.Columns), v.Cells, v.Hash)
	return err
}
