package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/laborsync/internal/catalog"
	"github.com/roach88/laborsync/internal/config"
	"github.com/roach88/laborsync/internal/engine"
	"github.com/roach88/laborsync/internal/fetch"
	"github.com/roach88/laborsync/internal/logging"
	"github.com/roach88/laborsync/internal/store"
	"github.com/roach88/laborsync/internal/tablefile"
)

// planFlags are the window settings sync and plan both accept.
type planFlags struct {
	MinHistoryYear int
	MaxSpan        int
}

func (p *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.MinHistoryYear, "min-history-year", 0, "first year fetched on cold start (0 = two years back)")
	cmd.Flags().IntVar(&p.MaxSpan, "max-span", 0, "widest request window in years")
}

func (p *planFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("min-history-year") {
		cfg.MinHistoryYear = p.MinHistoryYear
	}
	if cmd.Flags().Changed("max-span") {
		cfg.MaxSpan = p.MaxSpan
	}
}

// session is the per-invocation state every command builds first.
type session struct {
	opts     *RootOptions
	cfg      config.Config
	log      *zap.Logger
	closeLog func() error
	clock    engine.Clock
}

// newSession loads configuration, applies flag overrides and builds the
// logger. adjust runs after the global overrides and before validation.
func newSession(opts *RootOptions, adjust func(*config.Config)) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitConfigError, "failed to load configuration", err)
	}
	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if opts.Ledger != "" {
		cfg.Ledger = opts.Ledger
	}
	if opts.NoLedger {
		cfg.Ledger = ""
	}
	if opts.Catalog != "" {
		cfg.Catalog = opts.Catalog
	}
	if opts.LogFile != "" {
		cfg.Log.File = opts.LogFile
	}
	if adjust != nil {
		adjust(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitConfigError, "invalid configuration", err)
	}

	log, closeLog, err := logging.New(logging.Options{
		Verbose:    opts.Verbose,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Stderr:     opts.LogWriter,
	})
	if err != nil {
		return nil, WrapExitError(ExitConfigError, "failed to initialize logger", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &session{opts: opts, cfg: cfg, log: log, closeLog: closeLog, clock: clock}, nil
}

func (s *session) Close() {
	if s.closeLog != nil {
		_ = s.closeLog()
	}
}

func (s *session) catalog() (*catalog.Catalog, error) {
	if s.cfg.Catalog == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(s.cfg.Catalog)
	if err != nil {
		return nil, WrapExitError(ExitConfigError, "failed to load series catalog", err)
	}
	return cat, nil
}

func (s *session) credential() string {
	lookup := s.opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return s.cfg.Credential(lookup)
}

func (s *session) fetcher() engine.Fetcher {
	if s.opts.Fetcher != nil {
		return s.opts.Fetcher
	}
	return fetch.New(s.cfg.APIURL, s.cfg.Timeout)
}

func (s *session) tables() *tablefile.Gateway {
	return tablefile.New(s.cfg.Output)
}

// openLedger opens the configured ledger. A disabled ledger returns nil, nil.
func (s *session) openLedger() (*store.Store, error) {
	if s.cfg.Ledger == "" {
		return nil, nil
	}
	return store.Open(s.cfg.Ledger)
}

func (s *session) now() time.Time {
	return s.clock.Now()
}

// engineOptions assembles engine options for cat. Fetcher and tables are
// always set; the ledger is the caller's choice.
func (s *session) engineOptions(cat *catalog.Catalog) engine.Options {
	return engine.Options{
		Credential:      s.credential(),
		MinHistoryYear:  s.cfg.ResolveMinHistoryYear(s.now().Year()),
		MaxSpan:         s.cfg.MaxSpan,
		Concurrency:     s.cfg.Concurrency,
		SeriesBatchSize: s.cfg.SeriesBatchSize,
		Catalog:         cat,
		Fetcher:         s.fetcher(),
		Tables:          s.tables(),
		Clock:           s.clock,
		Logger:          s.log,
	}
}

func (s *session) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: s.opts.Format, Writer: cmd.OutOrStdout()}
}
