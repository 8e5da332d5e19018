package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/laborsync/internal/catalog"
	"github.com/roach88/laborsync/internal/fetch"
	"github.com/roach88/laborsync/internal/merge"
	"github.com/roach88/laborsync/internal/parser"
	"github.com/roach88/laborsync/internal/planner"
	"github.com/roach88/laborsync/internal/store"
	"github.com/roach88/laborsync/internal/timeseries"
)

const (
	// DefaultConcurrency is how many requests are in flight at once.
	DefaultConcurrency = 2

	// MaxSeriesBatchSize is the most series upstream accepts per request.
	MaxSeriesBatchSize = 50

	// maxReportedRejections caps how many rejections a Report carries.
	// The count is always complete.
	maxReportedRejections = 20
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeUpdated  Outcome = "updated"
	OutcomeNoChange Outcome = "no_change"
	OutcomeFailed   Outcome = "failed"
)

// Fetcher retrieves one raw upstream payload.
// Implemented by *fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) ([]byte, error)
}

// TableStore loads and atomically replaces the persisted table.
// Load returns nil, nil when nothing has been persisted yet.
// Implemented by *tablefile.Gateway.
type TableStore interface {
	Load() (*timeseries.Table, error)
	Save(t *timeseries.Table) error
}

// Ledger records finished runs. Implemented by *store.Store.
type Ledger interface {
	Record(ctx context.Context, run store.Run, payloads []store.Payload) error
}

// Options configures an Engine. Catalog, Fetcher and Tables are required for
// Run; the rest have defaults.
type Options struct {
	// Credential is the opaque upstream registration key.
	Credential string

	MinHistoryYear  int
	MaxSpan         int
	Concurrency     int
	SeriesBatchSize int

	Catalog *catalog.Catalog
	Fetcher Fetcher
	Tables  TableStore
	Ledger  Ledger // optional

	Clock  Clock
	RunIDs RunIDGenerator
	Logger *zap.Logger
}

// Report summarizes one run.
type Report struct {
	RunID      string             `json:"run_id"`
	Outcome    Outcome            `json:"outcome"`
	Mode       planner.Mode       `json:"mode,omitempty"`
	Windows    []planner.Window   `json:"windows"`
	Requests   int                `json:"requests"`
	Records    int                `json:"records"`
	Skipped    int                `json:"skipped"`
	Rejected   int                `json:"rejected"`
	Rejections []parser.Rejection `json:"rejections,omitempty"`
	Rows       int                `json:"rows"`
	Stats      merge.Stats        `json:"stats"`
	TableHash  string             `json:"table_hash,omitempty"`
	FreshHash  string             `json:"fresh_hash,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	Duration   time.Duration      `json:"duration_ns"`
	ErrorCode  ErrorCode          `json:"error_code,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Engine executes sync runs. It holds no table state between runs; every run
// starts from the persisted table.
type Engine struct {
	opts Options
	log  *zap.Logger
}

// New creates an Engine, filling defaults for the optional fields.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.RunIDs == nil {
		opts.RunIDs = UUIDv7Generator{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SeriesBatchSize < 1 || opts.SeriesBatchSize > MaxSeriesBatchSize {
		opts.SeriesBatchSize = MaxSeriesBatchSize
	}
	return &Engine{opts: opts, log: opts.Logger}
}

// request is one upstream call: a window and a batch of series codes.
// seq is its position in processing order.
type request struct {
	seq    int
	window planner.Window
	series []string
}

// Run performs one sync. On failure the returned report has OutcomeFailed
// and the error is a *RunError; the table file is not modified.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	started := e.opts.Clock.Now()
	report := &Report{
		RunID:     e.opts.RunIDs.Generate(),
		StartedAt: started,
		Windows:   []planner.Window{},
	}
	log := e.log.With(zap.String("run_id", report.RunID))

	if err := e.checkRun(started.Year()); err != nil {
		e.fail(report, log, err)
		return report, err
	}

	reqs, bodies, err := e.sync(ctx, report, log)
	if err != nil {
		e.fail(report, log, err)
	} else {
		report.Duration = e.opts.Clock.Now().Sub(started)
		log.Info("sync finished",
			zap.String("outcome", string(report.Outcome)),
			zap.Int("rows", report.Rows),
			zap.Int("rows_added", report.Stats.RowsAdded),
			zap.Int("cells_revised", report.Stats.CellsRevised),
			zap.Int("rejected", report.Rejected),
			zap.Duration("duration", report.Duration),
		)
	}

	e.record(ctx, report, reqs, bodies, log)
	return report, err
}

// Plan loads the persisted table and returns the windows the next run would
// request. It needs no credential and performs no fetches.
func (e *Engine) Plan() (planner.Mode, []planner.Window, error) {
	if e.opts.Tables == nil {
		return "", nil, configurationError("no table store configured", nil)
	}
	year := e.opts.Clock.Now().Year()
	if err := e.planOptions().Validate(year); err != nil {
		return "", nil, configurationError("invalid plan options", err)
	}
	prior, err := e.opts.Tables.Load()
	if err != nil {
		return "", nil, storageError("load table", err)
	}
	windows, err := planner.Plan(prior, year, e.planOptions())
	if err != nil {
		return "", nil, configurationError("invalid plan options", err)
	}
	return planner.ModeFor(prior), windows, nil
}

// checkRun rejects configurations that cannot run. It performs no I/O.
func (e *Engine) checkRun(currentYear int) error {
	if strings.TrimSpace(e.opts.Credential) == "" {
		return configurationError("missing upstream credential", nil)
	}
	if e.opts.Catalog == nil || e.opts.Catalog.Len() == 0 {
		return configurationError("series catalog is empty", nil)
	}
	if e.opts.Fetcher == nil {
		return configurationError("no fetcher configured", nil)
	}
	if e.opts.Tables == nil {
		return configurationError("no table store configured", nil)
	}
	if err := e.planOptions().Validate(currentYear); err != nil {
		return configurationError("invalid plan options", err)
	}
	return nil
}

func (e *Engine) planOptions() planner.Options {
	return planner.Options{
		MinHistoryYear: e.opts.MinHistoryYear,
		MaxSpan:        e.opts.MaxSpan,
	}
}

// sync runs the pipeline after configuration checks. It returns the requests
// and bodies it fetched so the ledger can archive them.
func (e *Engine) sync(ctx context.Context, report *Report, log *zap.Logger) ([]request, [][]byte, error) {
	prior, err := e.opts.Tables.Load()
	if err != nil {
		return nil, nil, storageError("load table", err)
	}

	windows, err := planner.Plan(prior, report.StartedAt.Year(), e.planOptions())
	if err != nil {
		return nil, nil, configurationError("invalid plan options", err)
	}
	report.Mode = planner.ModeFor(prior)
	report.Windows = windows

	reqs := e.requests(windows)
	report.Requests = len(reqs)
	log.Info("sync started",
		zap.String("mode", string(report.Mode)),
		zap.Int("prior_rows", prior.Len()),
		zap.Int("windows", len(windows)),
		zap.Int("requests", len(reqs)),
	)

	bodies, err := e.fetchAll(ctx, reqs, log)
	if err != nil {
		return nil, nil, err
	}

	results := make([]*parser.Result, len(reqs))
	for i, r := range reqs {
		res, err := parser.Parse(bodies[i], e.opts.Catalog)
		if err != nil {
			payload := bodies[i]
			var me *parser.MalformedResponseError
			if errors.As(err, &me) {
				payload = me.Payload
			}
			w := r.window
			return reqs, bodies, malformedError(&w, payload, err)
		}
		for _, rej := range res.Rejected {
			log.Warn("observation rejected",
				zap.String("series_id", rej.SeriesID),
				zap.String("year", rej.Year),
				zap.String("period", rej.Period),
				zap.String("value", rej.Value),
				zap.String("reason", string(rej.Reason)),
			)
		}
		results[i] = res
	}

	fresh := parser.Combine(results...)
	if len(fresh.Unknown) > 0 {
		log.Warn("upstream returned series missing from the catalog",
			zap.Strings("series_ids", fresh.Unknown),
		)
	}
	report.Records = len(fresh.Records)
	report.Skipped = fresh.Skipped
	report.Rejected = len(fresh.Rejected)
	if n := len(fresh.Rejected); n > 0 {
		report.Rejections = fresh.Rejected[:min(n, maxReportedRejections)]
	}
	report.FreshHash = fresh.Table.Hash()

	merged := merge.Merge(prior, fresh.Table)
	report.Stats = merged.Stats
	report.Rows = merged.Table.Len()
	if prior != nil {
		report.TableHash = prior.Hash()
	}

	if !merged.Changed {
		report.Outcome = OutcomeNoChange
		log.Debug("merge produced no change; table file left untouched")
		return reqs, bodies, nil
	}

	if err := e.opts.Tables.Save(merged.Table); err != nil {
		return reqs, bodies, storageError("save table", err)
	}
	report.Outcome = OutcomeUpdated
	report.TableHash = merged.Table.Hash()
	return reqs, bodies, nil
}

// requests expands windows into per-batch requests, window-major, so seq
// order is ascending window order.
func (e *Engine) requests(windows []planner.Window) []request {
	codes := e.opts.Catalog.Codes()
	size := e.opts.SeriesBatchSize
	var reqs []request
	for _, w := range windows {
		for start := 0; start < len(codes); start += size {
			end := min(start+size, len(codes))
			reqs = append(reqs, request{
				seq:    len(reqs),
				window: w,
				series: codes[start:end],
			})
		}
	}
	return reqs
}

// fetchAll runs every request with bounded concurrency. Bodies are slotted by
// seq, so completion order never affects processing order. The first failure
// cancels the rest.
func (e *Engine) fetchAll(ctx context.Context, reqs []request, log *zap.Logger) ([][]byte, error) {
	bodies := make([][]byte, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, r := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return transportError(r.window, err)
			}
			log.Debug("fetching",
				zap.Int("seq", r.seq),
				zap.Stringer("window", r.window),
				zap.Int("series", len(r.series)),
			)
			body, err := e.opts.Fetcher.Fetch(gctx, fetch.Request{
				SeriesIDs:  r.series,
				StartYear:  r.window.Start,
				EndYear:    r.window.End,
				Credential: e.opts.Credential,
			})
			if err != nil {
				return transportError(r.window, err)
			}
			bodies[r.seq] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func (e *Engine) fail(report *Report, log *zap.Logger, err error) {
	report.Outcome = OutcomeFailed
	report.ErrorCode = CodeOf(err)
	report.Error = err.Error()
	report.Duration = e.opts.Clock.Now().Sub(report.StartedAt)
	log.Error("sync failed",
		zap.String("code", string(report.ErrorCode)),
		zap.Error(err),
	)
}

// record writes the run to the ledger. Configuration failures are not
// recorded, since they happen before any I/O. Ledger errors are logged and
// never change the outcome.
func (e *Engine) record(ctx context.Context, report *Report, reqs []request, bodies [][]byte, log *zap.Logger) {
	if e.opts.Ledger == nil || report.ErrorCode == ErrCodeConfiguration {
		return
	}

	run := store.Run{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.StartedAt.Add(report.Duration),
		Outcome:    string(report.Outcome),
		Reason:     report.Error,
		ErrorCode:  string(report.ErrorCode),
		Windows:    report.Windows,
		Records:    report.Records,
		Skipped:    report.Skipped,
		Rejected:   report.Rejected,
		Rows:       report.Rows,
		TableHash:  report.TableHash,
		FreshHash:  report.FreshHash,
	}

	var payloads []store.Payload
	if bodies != nil {
		payloads = make([]store.Payload, len(reqs))
		for i, r := range reqs {
			payloads[i] = store.Payload{
				Seq:    r.seq,
				Window: r.window,
				Series: r.series,
				Body:   bodies[i],
			}
		}
	}

	// A cancelled run is still worth recording.
	if err := e.opts.Ledger.Record(context.WithoutCancel(ctx), run, payloads); err != nil {
		log.Warn("ledger record failed", zap.Error(fmt.Errorf("record run %s: %w", report.RunID, err)))
	}
}
