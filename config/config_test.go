package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: 127.0.0.1:7000
segment_size: 8192
log_level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, 8192, cfg.SegmentSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, Default().MaxFetchCount, cfg.MaxFetchCount)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MQ_DATA_DIR":        "/var/mq",
		"MQ_MAX_FETCH_COUNT": "7",
		"MQ_MAX_CONNECTIONS": "64",
		"MQ_LOG_DEVELOPMENT": "true",
	}
	cfg := Default()
	require.NoError(t, cfg.applyLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, "/var/mq", cfg.DataDir)
	assert.Equal(t, 7, cfg.MaxFetchCount)
	assert.Equal(t, int64(64), cfg.MaxConnections)
	assert.True(t, cfg.LogDevelopment)
}

func TestApplyEnvBadValue(t *testing.T) {
	cfg := Default()
	err := cfg.applyLookup(func(k string) (string, bool) {
		if k == "MQ_SEGMENT_SIZE" {
			return "big", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, "MQ_SEGMENT_SIZE")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.SegmentSize = 10
	cfg.MaxFetchCount = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment_size")
	assert.Contains(t, err.Error(), "max_fetch_count")
}
