package porcelain

import (
	"sort"
	"time"

	"github.com/jwiegley/dirscan/types"
)

// PolicyOptions bundles the two fixed-order policies applied after
// reconciliation: an age limit and an aggregate size limit.
type PolicyOptions struct {
	// Days is the age limit, in days, past which an entry is offered to
	// OnPastLimit for eviction. Zero disables the age policy.
	Days float64
	// MaxSizeBytes is the aggregate size limit across all tracked entries.
	// Zero disables the size policy.
	MaxSizeBytes int64
	Now          time.Time
}

// AgeViolations returns the entries whose canonical timestamp is more than
// Days old, oldest first — the fixed evaluation order the age policy runs
// in, applied before the size policy per section 4.6.
func AgeViolations(entries []*types.Entry, opts PolicyOptions) []*types.Entry {
	if opts.Days <= 0 {
		return nil
	}
	limit := opts.Now.Add(-time.Duration(opts.Days*24) * time.Hour)

	var violators []*types.Entry
	for _, e := range entries {
		if e.Timestamp().Before(limit) {
			violators = append(violators, e)
		}
	}
	sort.Slice(violators, func(i, j int) bool {
		return violators[i].Timestamp().Before(violators[j].Timestamp())
	})
	return violators
}

// AgeInDays reports how many days old entry's canonical timestamp is,
// relative to now — used for the onEntryPastLimit(age) callback argument.
func AgeInDays(e *types.Entry, now time.Time) float64 {
	return now.Sub(e.Timestamp()).Hours() / 24
}

// sizedEntry pairs an entry with its precomputed size so the size policy
// doesn't re-stat directories on every comparison during the sort.
type sizedEntry struct {
	entry *types.Entry
	size  int64
}

// SizeViolations computes which entries to remove, in the order to remove
// them, to bring the aggregate size at or under MaxSizeBytes. Candidates
// are sorted largest-first, with ties broken by oldest-timestamp-first, and
// the running total is decremented as each candidate is accepted — a
// stable pass over the initial sort rather than a re-sort after every
// removal (see DESIGN.md decision on live recomputation).
func SizeViolations(entries []*types.Entry, opts PolicyOptions) ([]*types.Entry, error) {
	if opts.MaxSizeBytes <= 0 {
		return nil, nil
	}

	sized := make([]sizedEntry, 0, len(entries))
	var total int64
	for _, e := range entries {
		sz, err := e.Size()
		if err != nil {
			continue
		}
		sized = append(sized, sizedEntry{entry: e, size: sz})
		total += sz
	}
	if total <= opts.MaxSizeBytes {
		return nil, nil
	}

	sort.Slice(sized, func(i, j int) bool {
		if sized[i].size != sized[j].size {
			return sized[i].size > sized[j].size
		}
		return sized[i].entry.Timestamp().Before(sized[j].entry.Timestamp())
	})

	var toRemove []*types.Entry
	for _, se := range sized {
		if total <= opts.MaxSizeBytes {
			break
		}
		toRemove = append(toRemove, se.entry)
		total -= se.size
	}
	return toRemove, nil
}
