package plumbing

import (
	"golang.org/x/sys/unix"

	"github.com/jwiegley/dirscan/types"
)

// VolumeCapacityBytes returns the total capacity, in bytes, of the
// filesystem containing path, via statfs(2) — the Go equivalent of the
// os.statvfs(directory) call a percentage-based size policy needs to turn
// "keep this directory under 20% of the volume" into an absolute byte
// count.
func VolumeCapacityBytes(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, types.NewScanError(types.CodeTransientIO, path, err)
	}
	return int64(st.Blocks) * int64(st.Bsize), nil
}

// PercentOfVolume resolves a percentage of total volume capacity (as used
// by a "maxSize: 20%" policy configuration) to an absolute byte count.
func PercentOfVolume(path string, pct float64) (int64, error) {
	total, err := VolumeCapacityBytes(path)
	if err != nil {
		return 0, err
	}
	return int64(float64(total) * pct / 100.0), nil
}
