package porcelain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jwiegley/dirscan/plumbing"
	"github.com/jwiegley/dirscan/types"
)

func TestCheckpointerSavesAccumulatingResultNotShadow(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, ".files.dat")

	result := map[string]*types.Entry{}
	c := &Checkpointer{ThresholdBytes: 10, DatabasePath: dbPath, TempDir: dir}
	track := c.Track(result)

	// Simulate reconciliation progressively populating result as entries
	// are visited, the way Reconcile does, before the byte threshold trips.
	result["/a"] = &types.Entry{Path: "/a", Info: &types.StatInfo{}}
	result["/b"] = &types.Entry{Path: "/b", Info: &types.StatInfo{}}

	track(11)

	saved, err := plumbing.LoadStore(dbPath)
	require.NoError(t, err)
	require.Contains(t, saved, "/a")
	require.Contains(t, saved, "/b")
}
