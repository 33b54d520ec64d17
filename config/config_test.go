package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "litebridge.yaml")
	require.NoError(t, os.WriteFile(file, []byte("db: from-file.db\nport: 9000\nlog-level: debug\n"), 0o600))

	t.Setenv("LITEBRIDGE_PORT", "9100")

	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs, v))
	require.NoError(t, fs.Parse([]string{"--sqlite-driver", " MATTN "}))

	cfg, err := Load(v, file)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.DatabasePath)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "mattn", cfg.SQLiteDriver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNormalizeClampsLimits(t *testing.T) {
	cfg := &Config{TraceBufferSize: -1, MaxErrorLogs: 0, PausableSliceMS: 0}
	cfg.Normalize()
	assert.Equal(t, 1, cfg.TraceBufferSize)
	assert.Equal(t, 1, cfg.MaxErrorLogs)
	assert.Equal(t, 1, cfg.PausableSliceMS)
}
