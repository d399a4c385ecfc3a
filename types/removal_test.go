package types

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRemoveDeletesRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	e, err := NewEntry(path, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.Remove(context.Background(), RemovalOptions{}))

	_, err = os.Lstat(path)
	require.True(t, os.IsNotExist(err))
}

func TestRemoveDryRunLeavesFileInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	e, err := NewEntry(path, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.Remove(context.Background(), RemovalOptions{DryRun: true}))
	require.FileExists(t, path)
}

func TestTrashUniquifiesOnCollision(t *testing.T) {
	dir := t.TempDir()
	trash := filepath.Join(dir, "trash")
	path := filepath.Join(dir, "f")

	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))
	e, err := NewEntry(path, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.Trash(trash))
	require.FileExists(t, filepath.Join(trash, "f"))

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))
	e2, err := NewEntry(path, time.Now())
	require.NoError(t, err)
	require.NoError(t, e2.Trash(trash))
	require.FileExists(t, filepath.Join(trash, "f-1"))
}
