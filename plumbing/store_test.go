package plumbing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwiegley/dirscan/types"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, ".files.dat")

	entries := map[string]*types.Entry{
		"/a/b": {
			Path:      "/a/b",
			FirstSeen: time.Unix(1000, 0),
			Info: &types.StatInfo{
				ModTime: time.Unix(2000, 0),
				AccTime: time.Unix(2500, 0),
				Size:    42,
				Mode:    0o644,
				Dev:     7,
				Ino:     99,
			},
			HasSum:    true,
			Checksum:  [20]byte{1, 2, 3},
			LastCheck: time.Unix(3000, 0),
		},
	}

	require.NoError(t, SaveStore(dbPath, dir, entries))
	loaded, err := LoadStore(dbPath)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded["/a/b"]
	require.NotNil(t, got)
	require.Equal(t, entries["/a/b"].FirstSeen.Unix(), got.FirstSeen.Unix())
	require.Equal(t, entries["/a/b"].Info.Size, got.Info.Size)
	require.True(t, got.HasSum)
	require.Equal(t, entries["/a/b"].Checksum, got.Checksum)
}

func TestLoadStoreMissingFileIsEmpty(t *testing.T) {
	loaded, err := LoadStore(filepath.Join(t.TempDir(), "nope.dat"))
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestLoadStoreCorruptChecksumFails(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, ".files.dat")
	require.NoError(t, SaveStore(dbPath, dir, map[string]*types.Entry{}))

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(dbPath, data, 0o644))

	_, err = LoadStore(dbPath)
	require.Error(t, err)
	var se *types.ScanError
	require.ErrorAs(t, err, &se)
	require.Equal(t, types.CodeStateCorruption, se.Code)
}

func TestLoadStoreLegacyFormat(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, ".files.dat")

	var buf []byte
	buf = append(buf, []byte(magicLegacy)...)
	buf = append(buf, 0, 0, 0, 1) // one entry
	buf = append(buf, 0, 0, 0, 4) // len("/a/b")
	buf = append(buf, []byte("/a/b")...)
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 42) // timestamp = 42ns

	require.NoError(t, os.WriteFile(dbPath, buf, 0o644))

	loaded, err := LoadStore(dbPath)
	require.NoError(t, err)
	require.Contains(t, loaded, "/a/b")
}
