// Package porcelain implements the policy layer of the scanner: reconciling
// a walk against the previously-recorded state, applying age and size
// limits, dispatching user hooks, and orchestrating a full scan run. It
// sits on top of plumbing the same way a status/commit command sits on top
// of a raw index reader/writer.
package porcelain

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jwiegley/dirscan/plumbing"
	"github.com/jwiegley/dirscan/types"
)

// Reconciliation is the outcome of comparing a fresh walk against the
// previously-recorded state: three-way partitioned into added, changed and
// unchanged entries seen during the walk, plus whatever remained in the
// shadow set once the walk finished — those are the removed paths.
type Reconciliation struct {
	Added     []*types.Entry
	Changed   []*types.Entry
	Unchanged []*types.Entry
	Removed   []*types.Entry
}

// Reconcile walks root, comparing every path it visits against shadow (a
// copy of the previously-recorded state, keyed by path). shadow is mutated
// in place: every path the walk visits is deleted from it, so whatever
// remains once the walk completes is exactly the set of paths that used to
// exist but no longer do — the shadow-set algorithm a git status walk uses
// to find deleted files, generalized to three-way change classification
// instead of two-way tracked/untracked.
//
// result is filled in live as each path is classified — added and changed
// entries go in optimistically (Scanner corrects or evicts them once hooks
// have run; unchanged entries need no correction at all) — so that a
// caller's mid-walk checkpoint (see porcelain.Checkpointer) reflects actual
// scan progress instead of the shrinking, not-yet-visited shadow set.
func Reconcile(root string, shadow, result map[string]*types.Entry, opts plumbing.WalkOptions, checksum types.ChecksumOptions) (*Reconciliation, error) {
	rec := &Reconciliation{}

	skippedDirs, err := plumbing.Walk(root, opts, func(path string, depth int, d fs.DirEntry) error {
		prev, tracked := shadow[path]
		delete(shadow, path)

		entry, err := plumbing.EntryFromDirEntry(path)
		if err != nil {
			// A path that vanished between listing and stat'ing is treated
			// as a transient miss, not a hard failure of the whole walk.
			return nil
		}

		if !tracked {
			entry.FirstSeen = checksum.Now
			rec.Added = append(rec.Added, entry)
			result[path] = entry
			return nil
		}

		entry.FirstSeen = prev.FirstSeen
		entry.PrevInfo = prev.Info
		entry.HasSum = prev.HasSum
		entry.Checksum = prev.Checksum
		entry.LastCheck = prev.LastCheck

		changed, err := entry.ContentsHaveChanged(checksum)
		if err != nil {
			return nil
		}
		if changed {
			rec.Changed = append(rec.Changed, entry)
		} else {
			rec.Unchanged = append(rec.Unchanged, entry)
		}
		result[path] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	// MinimalScan left these directories' children unvisited entirely — they
	// are still on disk, so carry their previous entries through as
	// unchanged instead of letting them fall out as removed for having
	// never been seen this pass. This is what keeps age-based policy still
	// firing on a minimally-scanned tree.
	for _, dir := range skippedDirs {
		prefix := dir + string(filepath.Separator)
		for p, e := range shadow {
			if strings.HasPrefix(p, prefix) {
				delete(shadow, p)
				rec.Unchanged = append(rec.Unchanged, e)
				result[p] = e
			}
		}
	}

	for _, e := range shadow {
		rec.Removed = append(rec.Removed, e)
	}

	return rec, nil
}
