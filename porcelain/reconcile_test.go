package porcelain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwiegley/dirscan/plumbing"
	"github.com/jwiegley/dirscan/types"
)

func TestReconcileMinimalScanKeepsSkippedChildrenUnchanged(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "quiet")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	childPath := filepath.Join(sub, "f.txt")
	require.NoError(t, os.WriteFile(childPath, []byte("x"), 0o644))

	subInfo, err := os.Stat(sub)
	require.NoError(t, err)
	childInfo, err := types.StatPath(childPath)
	require.NoError(t, err)
	dirInfo, err := types.StatPath(sub)
	require.NoError(t, err)

	shadow := map[string]*types.Entry{
		sub:       {Path: sub, Info: dirInfo, PrevInfo: dirInfo},
		childPath: {Path: childPath, Info: childInfo, PrevInfo: childInfo},
	}

	opts := plumbing.WalkOptions{
		MinimalScan: true,
		LastMod:     map[string]int64{sub: subInfo.ModTime().UnixNano()},
	}
	checksum := types.ChecksumOptions{Now: time.Now()}

	result := map[string]*types.Entry{}
	rec, err := Reconcile(dir, shadow, result, opts, checksum)
	require.NoError(t, err)

	require.Contains(t, result, childPath)

	require.Empty(t, rec.Removed)

	var unchangedPaths []string
	for _, e := range rec.Unchanged {
		unchangedPaths = append(unchangedPaths, e.Path)
	}
	require.Contains(t, unchangedPaths, childPath)
}
