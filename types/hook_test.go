package types

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZeroHookIsAlwaysAccepted(t *testing.T) {
	var h Hook
	ok, err := h.Run(context.Background(), "/tmp/x", false)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFuncHookPropagatesRejection(t *testing.T) {
	h := NewFuncHook(func(_ context.Context, _ string) (bool, error) {
		return false, nil
	})
	ok, err := h.Run(context.Background(), "/tmp/x", false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommandHookEscapesSpecialCharacters(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, `weird"na$me`)
	require.NoError(t, os.WriteFile(marker, nil, 0o644))

	out := filepath.Join(dir, "out")
	h := NewCommandHook(`test -f %s && touch "` + out + `"`)
	ok, err := h.Run(context.Background(), marker, false)
	require.NoError(t, err)
	require.True(t, ok)
	require.FileExists(t, out)
}

func TestCommandHookNonZeroExitIsRejection(t *testing.T) {
	h := NewCommandHook("test -f %s")
	ok, err := h.Run(context.Background(), "/does/not/exist", false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommandHookDryRunSkipsExecution(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	h := NewCommandHook(`touch "` + out + `"`)
	ok, err := h.Run(context.Background(), "/tmp/x", true)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoFileExists(t, out)
}
