package plumbing

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/jwiegley/dirscan/types"
)

// Lock is an advisory lock held on the file descriptor of the path it was
// acquired on (porcelain.Scanner uses a "<database>.lock" file beside the
// state file), coordinating multiple dirscan invocations against the same directory the
// same way flock(2) coordinates multiple processes touching one file: no
// enforcement against a process that doesn't ask, but cooperative callers
// never race each other.
type Lock struct {
	f *os.File
}

// AcquireShared opens path and takes a shared (read) lock, suitable for a
// dry-run or a read-only reporting pass that must not block a concurrent
// writer indefinitely but does want a consistent view.
func AcquireShared(path string) (*Lock, error) {
	return acquire(path, unix.LOCK_SH)
}

// AcquireExclusive opens path and takes an exclusive (write) lock, held for
// the duration of a scan that will rewrite the state file.
func AcquireExclusive(path string) (*Lock, error) {
	return acquire(path, unix.LOCK_EX)
}

func acquire(path string, how int) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, types.NewScanError(types.CodeLockFailure, path, err)
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return nil, types.NewScanError(types.CodeLockFailure, path, err)
	}
	return &Lock{f: f}, nil
}

// Release unlocks and closes the underlying file descriptor. Safe to call
// from a deferred panic-recovery path — it never itself panics.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	return l.f.Close()
}
