package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("bogus"))
}

func TestSetupLoggingRotatesHistory(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
	path := filepath.Join(t.TempDir(), "litebridge.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	f, err := setupLogging(path, "info", false)
	require.NoError(t, err)
	require.NotNil(t, f)
	require.NoError(t, f.Close())

	history, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(history))
}

func TestFindAvailablePortSkipsBusyPort(t *testing.T) {
	l, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)
	defer l.Close()
	busy := l.Addr().(*net.TCPAddr).Port

	port, err := findAvailablePort(busy)
	require.NoError(t, err)
	assert.NotEqual(t, busy, port)
	assert.Greater(t, port, busy)
}
