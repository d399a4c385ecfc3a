package types

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/flanksource/commons/logger"

	"github.com/jwiegley/dirscan/constants"
)

// RemovalOptions controls how Entry.Remove disposes of a path.
type RemovalOptions struct {
	// Secure runs SecureWipeCommand against regular files instead of a plain
	// os.Remove; the command itself must unlink the file (the default
	// "shred -u" does).
	Secure bool
	// SecureWipeCommand is a %s-templated shell command, e.g. "shred -u -n1 %s".
	SecureWipeCommand string
	// Sudo re-attempts a failed removal with "sudo rm -fr <path>" once,
	// mirroring dirscan.py's sudo-retry-on-EPERM behavior.
	Sudo bool
	// DryRun logs what would happen without touching the filesystem.
	DryRun bool
}

// Remove deletes path according to opts: directories are handed to a fast
// "rm -fr" subprocess (falling back to os.RemoveAll if the binary is
// unavailable), regular files are optionally handed to the secure-wipe
// command instead of os.Remove, and any
// failure is retried once with sudo if opts.Sudo is set. Absence is
// verified afterward but a lingering path is only logged, never raised,
// matching dirscan.py's best-effort removal contract.
func (e *Entry) Remove(ctx context.Context, opts RemovalOptions) error {
	if opts.DryRun {
		logger.Infof("dry-run: would remove %s", e.Path)
		return nil
	}

	var err error
	switch {
	case e.IsDirectory():
		err = removeTree(ctx, e.Path)
	case opts.Secure && e.IsRegularFile():
		err = secureWipe(ctx, e.Path, opts.SecureWipeCommand)
	default:
		err = os.Remove(e.Path)
	}

	if err != nil && opts.Sudo {
		err = exec.CommandContext(ctx, "sudo", "rm", "-fr", e.Path).Run()
	}
	if err != nil {
		return NewScanError(CodeTransientIO, e.Path, err)
	}

	if _, statErr := os.Lstat(e.Path); statErr == nil {
		logger.Warnf("path %s still exists after removal", e.Path)
	}
	return nil
}

func removeTree(ctx context.Context, path string) error {
	if _, err := exec.LookPath("rm"); err == nil {
		return exec.CommandContext(ctx, "rm", "-fr", path).Run()
	}
	return os.RemoveAll(path)
}

func secureWipe(ctx context.Context, path, template string) error {
	if template == "" {
		template = constants.DefaultSecureWipeCommand
	}
	cmd := fmt.Sprintf(template, `"`+escapeShellPath(path)+`"`)
	return exec.CommandContext(ctx, "sh", "-c", cmd).Run()
}

// Trash moves path into trashDir instead of deleting it, uniquifying the
// destination name on collision (name, name-1, name-2, ...). Symlinks are
// removed outright rather than trashed, matching dirscan.py's trash().
func (e *Entry) Trash(trashDir string) error {
	if e.IsSymlink() {
		return NewScanError(CodeTransientIO, e.Path, os.Remove(e.Path))
	}

	if err := os.MkdirAll(trashDir, constants.DefaultDirPerm); err != nil {
		return NewScanError(CodeTransientIO, e.Path, err)
	}

	base := filepath.Base(e.Path)
	dest := filepath.Join(trashDir, base)
	for i := 1; ; i++ {
		if _, err := os.Lstat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(trashDir, fmt.Sprintf("%s-%d", base, i))
	}

	if err := os.Rename(e.Path, dest); err != nil {
		return NewScanError(CodeTransientIO, e.Path, err)
	}
	return nil
}
