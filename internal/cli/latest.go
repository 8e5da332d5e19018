package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/laborsync/internal/timeseries"
)

// maxDisplayDecimals bounds the precision of text output.
const maxDisplayDecimals = 3

// LatestOptions holds flags for the latest command.
type LatestOptions struct {
	*RootOptions
}

// NewLatestCommand creates the latest command.
func NewLatestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LatestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the latest value of every indicator",
		Long: `Print each indicator's most recent observation in the table file together
with the change from its previous observation.

Examples:
  laborsync latest
  laborsync latest --output ./bls_data.csv --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(opts, cmd)
		},
	}
	return cmd
}

func runLatest(opts *LatestOptions, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	tbl, err := sess.tables().Load()
	if err != nil {
		return WrapExitError(ExitStorageError, "failed to load table", err)
	}
	if tbl.Empty() {
		return NewExitError(ExitFailure, fmt.Sprintf("no data in %s; run sync first", sess.cfg.Output))
	}

	return sess.formatter(cmd).Success(latestView{
		Output:     sess.cfg.Output,
		Indicators: timeseries.Latest(tbl),
	})
}

type latestView struct {
	Output     string                `json:"output"`
	Indicators []timeseries.Snapshot `json:"indicators"`
}

func (v latestView) WriteText(w io.Writer) error {
	p := message.NewPrinter(language.AmericanEnglish)
	width := 0
	for _, s := range v.Indicators {
		width = max(width, len(s.Indicator))
	}

	var b strings.Builder
	for _, s := range v.Indicators {
		fmt.Fprintf(&b, "%-*s  %s  %s", width, s.Indicator, s.Month.Time().Format("Jan 2006"), formatNumber(p, s.Value))
		if s.Previous != nil {
			fmt.Fprintf(&b, "  (%s vs %s)", formatDelta(p, s.Previous.Delta), s.Previous.Month.Time().Format("Jan 2006"))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// decimals returns how many fractional digits the shortest representation of
// v needs, capped at maxDisplayDecimals.
func decimals(v float64) int {
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return min(len(s)-i-1, maxDisplayDecimals)
}

// formatNumber renders v with digit grouping, e.g. 157,806 or 34.27.
func formatNumber(p *message.Printer, v float64) string {
	return p.Sprintf("%.*f", decimals(v), v)
}

// formatDelta renders a signed change, e.g. +553 or -0.1.
func formatDelta(p *message.Printer, d float64) string {
	// Float subtraction leaves noise like 0.20000000000000018.
	rounded := math.Round(d*1000) / 1000
	return p.Sprintf("%+.*f", decimals(rounded), rounded)
}
