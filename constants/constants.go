// Package constants holds the fixed defaults and file modes shared across the
// scanner packages.
package constants

const (
	DefaultFilePerm = 0o644 // rw-r--r--
	DefaultDirPerm  = 0o755 // rwxr-xr-x

	// DefaultDatabaseName is the basename of the state file created inside the
	// scanned directory when the caller does not supply one explicitly.
	DefaultDatabaseName = ".files.dat"

	// DefaultCheckpointBytes is the amount of file content the Checkpointer
	// will hash before forcing a mid-scan save, matching the 10 GiB default
	// dirscan.py has always shipped with.
	DefaultCheckpointBytes int64 = 10 * 1 << 30

	// DefaultTrashDir is where Entry.Trash moves removed files when trash
	// mode is enabled instead of hard deletion.
	DefaultTrashDir = ".Trash"

	// DefaultSecureWipeCommand is the shell template used for secure removal
	// when no override is configured. %s is replaced with the escaped path.
	DefaultSecureWipeCommand = "shred -u -n1 %s"

	ResetColor = "\033[0m"
	BoldColor  = "\033[1m"
	GreenColor = "\033[32m"
	RedColor   = "\033[31m"
)

// Default ignore patterns applied during a walk, on top of the state
// database's own basename which is always ignored.
var DefaultIgnorePatterns = []string{
	`^\.DS_Store$`,
	`^\.localized$`,
}
