package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "prefs")
	fb := NewFileBackend(dir)
	require.NoError(t, fb.Initialize(ctx))
	require.NoError(t, fb.Health(ctx))

	_, err := fb.GetPreference(ctx, "missing")
	require.True(t, IsNotFound(err))

	require.NoError(t, fb.SetPreference(ctx, "override", "user-key"))
	got, err := fb.GetPreference(ctx, "override")
	require.NoError(t, err)
	require.Equal(t, "user-key", got)

	// a second instance sees the write: nothing is cached in memory
	other := NewFileBackend(dir)
	got, err = other.GetPreference(ctx, "override")
	require.NoError(t, err)
	require.Equal(t, "user-key", got)

	require.NoError(t, fb.DeletePreference(ctx, "override"))
	require.True(t, IsNotFound(fb.DeletePreference(ctx, "override")))
	_, err = other.GetPreference(ctx, "override")
	require.True(t, IsNotFound(err))
}

func TestFileBackendCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, preferencesFile), []byte("{not json"), 0o600))

	fb := NewFileBackend(dir)
	_, err := fb.GetPreference(context.Background(), "override")
	require.Error(t, err)
	require.False(t, IsNotFound(err))
}

func TestFileBackendLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	fb := NewFileBackend(dir)
	require.NoError(t, fb.SetPreference(context.Background(), "k", "v"))

	_, err := os.Stat(filepath.Join(dir, preferencesFile+".tmp"))
	require.True(t, os.IsNotExist(err))
}
