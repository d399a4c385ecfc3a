package plumbing

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/flanksource/commons/logger"

	"github.com/jwiegley/dirscan/types"
)

// WalkOptions configures a directory walk.
type WalkOptions struct {
	// MaxDepth bounds recursion: 0 enumerates only root's direct children and
	// descends no further ("root-only directory enumeration"), N descends N
	// levels below root, and -1 (UnboundedDepth) recurses without limit —
	// the sentinel a caller uses to represent "depth not specified", since 0
	// is itself a meaningful bound rather than a stand-in for "unset".
	// Mirrors dirscan.py's `-D/--depth`: "0 = entries of dir, -1 = recurse".
	MaxDepth int
	// IgnorePatterns are regexps matched against each entry's base name; a
	// match causes the entry (and, for a directory, everything under it) to
	// be skipped entirely — it is neither reported nor tracked.
	IgnorePatterns []*regexp.Regexp
	// MinimalScan skips descending into directories whose mtime has not
	// moved since LastMod for the same path, on the theory that nothing
	// inside could have changed either. LastMod is populated by the caller
	// from the previous scan's state.
	MinimalScan bool
	LastMod     map[string]int64 // path -> previous mtime in UnixNano
}

// UnboundedDepth is the MaxDepth sentinel for "recurse without limit".
const UnboundedDepth = -1

// CompileIgnorePatterns compiles a list of regexp strings, skipping (rather
// than failing on) an unparseable pattern — a malformed ignore rule should
// not abort an entire scan.
func CompileIgnorePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}

func matchesIgnore(name string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Walk visits every path under root (root itself excluded), calling visit
// for each one that isn't ignored. depth 1 is a direct child of root. A
// directory is always visited itself regardless of MaxDepth — MaxDepth only
// decides whether Walk descends into *its* children — matching
// dirscan.py's `_scanEntries`, which records every listed entry unconditionally
// and only gates the recursive call beneath a directory on depth. Symlinks
// are never followed — fs.WalkDir already lstats rather than stats, so this
// falls out for free rather than needing an explicit check.
//
// It also returns the set of directories MinimalScan caused it to skip
// descending into. The caller (the Reconciler) still owes those
// directories' previously-tracked children a pass through reconciliation —
// they were never visited, so they must not be inferred as removed.
func Walk(root string, opts WalkOptions, visit func(path string, depth int, d fs.DirEntry) error) ([]string, error) {
	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))
	var skipped []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A single unreadable entry is logged and skipped; it never
			// aborts the walk (transient I/O, not fatal).
			logger.Warnf("walk %s: %v", path, err)
			return nil
		}
		if path == root {
			return nil
		}

		depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth

		if matchesIgnore(d.Name(), opts.IgnorePatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			return visit(path, depth, d)
		}

		if opts.MinimalScan && opts.LastMod != nil {
			if info, err := d.Info(); err == nil {
				if prev, ok := opts.LastMod[path]; ok && prev == info.ModTime().UnixNano() {
					if err := visit(path, depth, d); err != nil {
						return err
					}
					skipped = append(skipped, path)
					return filepath.SkipDir
				}
			}
		}

		if err := visit(path, depth, d); err != nil {
			return err
		}
		// depth counts this directory's own distance from root (its direct
		// children are at depth+1), so children are descended into only
		// while depth hasn't yet exceeded MaxDepth; a negative MaxDepth is
		// the unbounded sentinel and never trips this.
		if opts.MaxDepth >= 0 && depth > opts.MaxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	return skipped, err
}

// EntryFromDirEntry builds a fresh types.Entry for a path visited by Walk.
func EntryFromDirEntry(path string) (*types.Entry, error) {
	info, err := types.StatPath(path)
	if err != nil {
		return nil, err
	}
	return &types.Entry{Path: path, Info: info}, nil
}
