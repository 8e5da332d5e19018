package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "data/bls_data.csv", cfg.Output)
	assert.Equal(t, "data/laborsync.db", cfg.Ledger)
	assert.Equal(t, "BLS_API_KEY", cfg.CredentialEnv)
	assert.Equal(t, 20, cfg.MaxSpan)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 50, cfg.SeriesBatchSize)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "out/labor.csv", cfg.Output)
	assert.Equal(t, "", cfg.Ledger, "explicit empty value disables the ledger")
	assert.Equal(t, "series.cue", cfg.Catalog)
	assert.Equal(t, "http://localhost:8080/data/", cfg.APIURL)
	assert.Equal(t, "LABOR_KEY", cfg.CredentialEnv)
	assert.Equal(t, 1990, cfg.MinHistoryYear)
	assert.Equal(t, 10, cfg.MaxSpan)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 25, cfg.SeriesBatchSize)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "logs/laborsync.log", cfg.Log.File)
	assert.Equal(t, 5, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.Log.MaxBackups, "unset nested keys keep defaults")
	require.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "partial.yaml"))
	require.NoError(t, err)

	want := Default()
	want.MaxSpan = 5
	assert.Equal(t, want, cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "typo.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_spann")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Output = " "
	cfg.APIURL = "not a url"
	cfg.MaxSpan = 0
	cfg.Concurrency = 0
	cfg.SeriesBatchSize = 51
	cfg.Timeout = 0
	cfg.MinHistoryYear = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"output", "api_url", "max_span", "concurrency", "series_batch_size", "timeout", "min_history_year"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestResolveMinHistoryYear(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2022, cfg.ResolveMinHistoryYear(2024))

	cfg.MinHistoryYear = 1948
	assert.Equal(t, 1948, cfg.ResolveMinHistoryYear(2024))
}

func TestCredential(t *testing.T) {
	cfg := Default()
	env := map[string]string{"BLS_API_KEY": "  abc123\n", "OTHER": "x"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	assert.Equal(t, "abc123", cfg.Credential(lookup))

	cfg.CredentialEnv = "MISSING"
	assert.Equal(t, "", cfg.Credential(lookup))
	assert.Equal(t, "", cfg.Credential(nil))
}
