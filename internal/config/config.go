// Package config holds laborsync settings: defaults, an optional YAML file
// and validation. Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// MaxSeriesBatchSize is the most series upstream accepts per request.
const MaxSeriesBatchSize = 50

// Config holds all sync settings.
type Config struct {
	// Output is the CSV table file (default "data/bls_data.csv").
	Output string `yaml:"output"`

	// Ledger is the SQLite run ledger (default "data/laborsync.db").
	// Empty disables the ledger.
	Ledger string `yaml:"ledger"`

	// Catalog is an optional CUE series catalog. Empty uses the built-in six
	// series.
	Catalog string `yaml:"catalog"`

	// APIURL is the upstream timeseries endpoint.
	APIURL string `yaml:"api_url"`

	// CredentialEnv names the environment variable holding the upstream
	// registration key (default "BLS_API_KEY").
	CredentialEnv string `yaml:"credential_env"`

	// MinHistoryYear is the first year fetched on cold start. Zero means two
	// years before the current year.
	MinHistoryYear int `yaml:"min_history_year"`

	// MaxSpan is the widest request window in years (default 20).
	MaxSpan int `yaml:"max_span"`

	// Concurrency bounds in-flight requests (default 2).
	Concurrency int `yaml:"concurrency"`

	// SeriesBatchSize is how many series go in one request (default 50).
	SeriesBatchSize int `yaml:"series_batch_size"`

	// Timeout is the per-request HTTP timeout (default 60s).
	Timeout time.Duration `yaml:"timeout"`

	Log LogConfig `yaml:"log"`
}

// LogConfig controls the optional rotated log file.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Output:          "data/bls_data.csv",
		Ledger:          "data/laborsync.db",
		APIURL:          "https://api.bls.gov/publicAPI/v2/timeseries/data/",
		CredentialEnv:   "BLS_API_KEY",
		MaxSpan:         20,
		Concurrency:     2,
		SeriesBatchSize: MaxSeriesBatchSize,
		Timeout:         60 * time.Second,
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are an error so typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid setting at once. The returned error wraps
// ErrInvalid.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Output) == "" {
		add("output must not be empty")
	}
	if strings.TrimSpace(c.CredentialEnv) == "" {
		add("credential_env must not be empty")
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("api_url %q is not an absolute URL", c.APIURL)
	}
	if c.MinHistoryYear < 0 {
		add("min_history_year %d must not be negative", c.MinHistoryYear)
	}
	if c.MaxSpan < 1 {
		add("max_span %d must be at least 1", c.MaxSpan)
	}
	if c.Concurrency < 1 {
		add("concurrency %d must be at least 1", c.Concurrency)
	}
	if c.SeriesBatchSize < 1 || c.SeriesBatchSize > MaxSeriesBatchSize {
		add("series_batch_size %d not in [1, %d]", c.SeriesBatchSize, MaxSeriesBatchSize)
	}
	if c.Timeout <= 0 {
		add("timeout %s must be positive", c.Timeout)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		add("log rotation limits must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// ResolveMinHistoryYear returns the cold-start year for currentYear.
func (c Config) ResolveMinHistoryYear(currentYear int) int {
	if c.MinHistoryYear == 0 {
		return currentYear - 2
	}
	return c.MinHistoryYear
}

// Credential reads the registration key through lookup, normally
// os.LookupEnv. Surrounding whitespace is dropped; an unset variable yields
// "".
func (c Config) Credential(lookup func(string) (string, bool)) string {
	if lookup == nil {
		return ""
	}
	v, ok := lookup(c.CredentialEnv)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
