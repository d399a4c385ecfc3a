package porcelain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jwiegley/dirscan/plumbing"
)

func TestResolveMaxSizeParsesBareBytes(t *testing.T) {
	dir := t.TempDir()
	s := NewScanner(Options{Directory: dir, MaxSize: "12345"})
	require.NoError(t, s.resolveMaxSize())
	require.Equal(t, int64(12345), s.Opts.MaxSizeBytes)
}

func TestResolveMaxSizeParsesPercentageOfVolume(t *testing.T) {
	dir := t.TempDir()
	total, err := plumbing.VolumeCapacityBytes(dir)
	require.NoError(t, err)

	s := NewScanner(Options{Directory: dir, MaxSize: "50%"})
	require.NoError(t, s.resolveMaxSize())
	require.Equal(t, int64(float64(total)*0.5), s.Opts.MaxSizeBytes)
}

func TestResolveMaxSizeExplicitBytesWins(t *testing.T) {
	dir := t.TempDir()
	s := NewScanner(Options{Directory: dir, MaxSize: "50%", MaxSizeBytes: 999})
	require.NoError(t, s.resolveMaxSize())
	require.Equal(t, int64(999), s.Opts.MaxSizeBytes)
}
