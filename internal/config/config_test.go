package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/lazysearch/internal/tablebase"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 16, cfg.HashMB)
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, 10*time.Millisecond, cfg.MoveOverhead)
	assert.True(t, cfg.Persist)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	require.NoError(t, cfg.Validate())
	assert.IsType(t, tablebase.NoopProber{}, cfg.Tablebase())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazysearch.yaml")
	yaml := "hash-mb: 128\nthreads: 4\nmove-overhead: 50ms\nlog-level: debug\nuse-lichess-tb: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("LAZYSEARCH_THREADS", "8")
	t.Setenv("LAZYSEARCH_MULTIPV", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.HashMB)
	assert.Equal(t, 8, cfg.Threads) // the environment wins over the file
	assert.Equal(t, 3, cfg.MultiPV)
	assert.Equal(t, 50*time.Millisecond, cfg.MoveOverhead)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.IsType(t, &tablebase.CachedProber{}, cfg.Tablebase())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 0\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "threads")

	require.NoError(t, os.WriteFile(path, []byte("log-level: loud\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "log-level")
}

func TestStoredRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.HashMB = 256
	cfg.MoveOverhead = 30 * time.Millisecond
	cfg.UseLichessTB = true

	other := Default()
	other.ApplyStored(cfg.Stored())

	assert.Equal(t, 256, other.HashMB)
	assert.Equal(t, 30*time.Millisecond, other.MoveOverhead)
	assert.True(t, other.UseLichessTB)
}
