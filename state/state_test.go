package state

import (
	"path/filepath"
	"testing"

	"litebridge/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppStateLifecycle(t *testing.T) {
	s := NewAppState()
	dir := t.TempDir()

	a, err := database.Open(filepath.Join(dir, "a.db"), database.DefaultOptions())
	require.NoError(t, err)
	b, err := database.Open(filepath.Join(dir, "b.db"), database.DefaultOptions())
	require.NoError(t, err)
	require.True(t, a.CanOpen())

	s.AddDatabase(a)
	s.AddDatabase(b)
	assert.Equal(t, []string{a.Path(), b.Path()}, s.Paths())

	got, ok := s.GetDatabase(a.Path())
	require.True(t, ok)
	assert.Same(t, a, got)

	removed, err := s.RemoveAndCloseDatabase(a.Path())
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, a.IsOpened())

	removed, err = s.RemoveAndCloseDatabase(a.Path())
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, s.CloseAll())
	assert.Empty(t, s.Paths())
}
