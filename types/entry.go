package types

import (
	"crypto/sha1"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// StatInfo is a cached snapshot of the fields of an os.Lstat result this
// module actually cares about. Entries hold two of these — the one recorded
// the last time the entry was seen, and the one from the current pass — so a
// change can be detected without re-stat'ing the previous state.
type StatInfo struct {
	ModTime  time.Time
	AccTime  time.Time
	Size     int64
	Mode     os.FileMode
	Dev      uint64
	Ino      uint64
}

// StatPath lstats path and converts it into a StatInfo, pulling the
// platform-specific atime/dev/ino fields out of the raw Stat_t the same way
// the index-entry constructor in a from-scratch VCS would.
func StatPath(path string) (*StatInfo, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	info := &StatInfo{
		ModTime: fi.ModTime(),
		Size:    fi.Size(),
		Mode:    fi.Mode(),
	}
	if st, ok := fi.Sys().(*unix.Stat_t); ok {
		info.Dev = uint64(st.Dev)
		info.Ino = uint64(st.Ino)
		info.AccTime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	}
	return info, nil
}

// Entry is the durable record this module keeps for one tracked path: the
// stat snapshot from the last time it was seen, the checksum computed for
// it (if checksumming is enabled), and the bookkeeping needed to decide
// whether it has changed, aged out, or should be re-hashed on this pass.
type Entry struct {
	Path string

	// FirstSeen is the timestamp recorded the first time this path was
	// observed, used as the fallback when neither atime nor mtime is
	// available for age comparisons.
	FirstSeen time.Time

	// PrevInfo is the stat snapshot recorded on the previous scan; nil for
	// an entry that has not yet completed one full pass.
	PrevInfo *StatInfo

	// Info is the stat snapshot from the current pass.
	Info *StatInfo

	// Checksum is the SHA-1 of the entry's contents, populated when
	// checksumming is enabled. Zero value means "not computed".
	Checksum [20]byte
	HasSum   bool

	// LastCheck is the last time contentsHaveChanged() actually recomputed
	// a checksum for this entry, used to jitter useChecksumAlways re-hashes.
	LastCheck time.Time
}

// NewEntry builds a tracked Entry for path, stat'ing it once.
func NewEntry(path string, now time.Time) (*Entry, error) {
	info, err := StatPath(path)
	if err != nil {
		return nil, err
	}
	return &Entry{Path: path, FirstSeen: now, Info: info}, nil
}

// Timestamp returns the entry's canonical timestamp, preferring atime over
// mtime over the first-seen stamp. Any nonzero atime wins, so on a
// filesystem mounted noatime the stale atime is still used rather than
// mtime; FirstSeen is used only when there is no stat snapshot or both
// times are zero.
func (e *Entry) Timestamp() time.Time {
	if e.Info == nil {
		return e.FirstSeen
	}
	if !e.Info.AccTime.IsZero() {
		return e.Info.AccTime
	}
	if !e.Info.ModTime.IsZero() {
		return e.Info.ModTime
	}
	return e.FirstSeen
}

// IsRegularFile reports whether the entry's current stat snapshot is a
// regular file.
func (e *Entry) IsRegularFile() bool {
	return e.Info != nil && e.Info.Mode.IsRegular()
}

// IsDirectory reports whether the entry's current stat snapshot is a
// directory.
func (e *Entry) IsDirectory() bool {
	return e.Info != nil && e.Info.Mode.IsDir()
}

// IsSymlink reports whether the entry's current stat snapshot is a symlink.
func (e *Entry) IsSymlink() bool {
	return e.Info != nil && e.Info.Mode&os.ModeSymlink != 0
}

// ShouldEnterDirectory reports whether a directory entry at depth should be
// recursed into under maxDepth: true while depth < maxDepth, and always true
// when maxDepth <= 0. depth 0 is the scan root itself. plumbing.Walk does not
// call this; it applies its own rule, where MaxDepth 0 means no descent.
func (e *Entry) ShouldEnterDirectory(depth, maxDepth int) bool {
	if !e.IsDirectory() {
		return false
	}
	if maxDepth <= 0 {
		return true
	}
	return depth < maxDepth
}

// ChecksumOptions controls how ContentsHaveChanged decides whether to
// recompute a checksum, mirroring dirscan.py's useChecksum/useChecksumAlways/
// checkWindow knobs.
type ChecksumOptions struct {
	UseChecksum       bool
	UseChecksumAlways bool
	CheckWindow       int // days; 0 disables the periodic re-check
	Now               time.Time
	// OnBytesHashed, if set, is called with the number of bytes streamed
	// through SHA-1 every time a checksum is (re)computed, letting a caller
	// accumulate scanned-byte totals for checkpoint triggering.
	OnBytesHashed func(n int64)
}

// jitterDays derives a stable 0..window-1 offset from the entry's path so
// that re-hash days are spread out across entries instead of all landing on
// the same day, without depending on process-lifetime randomness.
func jitterDays(path string, window int) int {
	if window <= 0 {
		return 0
	}
	sum := sha1.Sum([]byte(path))
	var acc uint32
	for _, b := range sum[:4] {
		acc = acc<<8 | uint32(b)
	}
	return int(acc % uint32(window))
}

// ContentsHaveChanged decides whether the entry's contents differ from the
// previous pass. When checksumming is disabled this is a comparison of mtime
// and size; when enabled (UseChecksum or UseChecksumAlways), a checksum is
// recomputed either because mtime or size
// moved or, under UseChecksumAlways, because CheckWindow days have elapsed
// since the last recompute (jittered per-entry so entries don't all re-hash
// on the same day).
func (e *Entry) ContentsHaveChanged(opts ChecksumOptions) (bool, error) {
	hashing := opts.UseChecksum || opts.UseChecksumAlways
	if e.PrevInfo == nil {
		if hashing && e.IsRegularFile() {
			if err := e.computeChecksum(opts.Now, opts.OnBytesHashed); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	mtimeChanged := !e.PrevInfo.ModTime.Equal(e.Info.ModTime) || e.PrevInfo.Size != e.Info.Size

	if !hashing || !e.IsRegularFile() {
		return mtimeChanged, nil
	}

	needsRehash := mtimeChanged
	if !needsRehash && opts.UseChecksumAlways && opts.CheckWindow > 0 {
		elapsedDays := int(opts.Now.Sub(e.LastCheck).Hours() / 24)
		needsRehash = elapsedDays >= opts.CheckWindow+jitterDays(e.Path, opts.CheckWindow)
	}

	if !needsRehash {
		return false, nil
	}

	prevSum, hadSum := e.Checksum, e.HasSum
	if err := e.computeChecksum(opts.Now, opts.OnBytesHashed); err != nil {
		return false, err
	}
	if !hadSum {
		return mtimeChanged, nil
	}
	return prevSum != e.Checksum, nil
}

// computeChecksum streams the file through SHA-1 in fixed-size chunks
// rather than reading it whole into memory.
func (e *Entry) computeChecksum(now time.Time, onBytesHashed func(int64)) error {
	f, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha1.New()
	n, err := io.CopyBuffer(h, f, make([]byte, 32*1024))
	if err != nil {
		return err
	}
	copy(e.Checksum[:], h.Sum(nil))
	e.HasSum = true
	e.LastCheck = now
	if onBytesHashed != nil {
		onBytesHashed(n)
	}
	return nil
}

// Size returns the entry's size: the stat size for a file or symlink, or
// the recursively-summed size of regular files reachable under a directory.
// Symlinks encountered while summing a directory are not followed and do
// not contribute their own size (see DESIGN.md decision on symlink sizing).
func (e *Entry) Size() (int64, error) {
	if !e.IsDirectory() {
		if e.Info == nil {
			return 0, nil
		}
		return e.Info.Size, nil
	}

	var total int64
	err := filepath.WalkDir(e.Path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
