package engine

import (
	"context"

	"github.com/roach88/laborsync/internal/parser"
	"github.com/roach88/laborsync/internal/store"
	"github.com/roach88/laborsync/internal/timeseries"
)

// Replay re-parses archived payloads in seq order and returns the table they
// reshape to. It does not touch the table file.
func (e *Engine) Replay(ctx context.Context, payloads []store.Payload) (*timeseries.Table, error) {
	if e.opts.Catalog == nil {
		return nil, configurationError("no series catalog configured", nil)
	}
	results := make([]*parser.Result, 0, len(payloads))
	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := parser.Parse(p.Body, e.opts.Catalog)
		if err != nil {
			w := p.Window
			return nil, malformedError(&w, p.Body, err)
		}
		results = append(results, res)
	}
	return parser.Combine(results...).Table, nil
}
