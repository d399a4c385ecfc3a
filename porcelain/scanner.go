package porcelain

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"

	"github.com/jwiegley/dirscan/constants"
	"github.com/jwiegley/dirscan/plumbing"
	"github.com/jwiegley/dirscan/types"
)

// Options fully resolves everything a Scanner run needs, the same
// keyword-options contract dirscan.py's DirScanner constructor takes: a
// front end (config file, CLI flags, or a caller embedding this module
// directly) is responsible for producing one of these, and the Scanner
// itself never reads a config file.
type Options struct {
	Directory    string
	DatabasePath string // defaults to <Directory>/constants.DefaultDatabaseName
	TempDir      string // defaults to filepath.Dir(DatabasePath)

	Depth       int
	MinimalScan bool

	UseChecksum       bool
	UseChecksumAlways bool
	CheckWindow       int

	Days float64
	// MaxSize is the aggregate size limit, either a bare byte count ("500000000")
	// or a percentage of the scan root's volume capacity ("20%"), matching
	// dirscan.py's maxSize parameter. resolveMaxSize fills MaxSizeBytes from
	// this at the start of Run if MaxSizeBytes hasn't already been set.
	MaxSize      string
	MaxSizeBytes int64

	IgnorePatterns []string

	Removal  types.RemovalOptions
	Trash    bool
	TrashDir string

	CheckpointBytes int64

	Hooks types.HookSet

	Now func() time.Time
}

func (o *Options) resolve() {
	if o.DatabasePath == "" {
		o.DatabasePath = filepath.Join(o.Directory, constants.DefaultDatabaseName)
	}
	if o.TempDir == "" {
		o.TempDir = filepath.Dir(o.DatabasePath)
	}
	if o.TrashDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			o.TrashDir = filepath.Join(home, constants.DefaultTrashDir)
		} else {
			o.TrashDir = filepath.Join(o.Directory, constants.DefaultTrashDir)
		}
	}
	if o.CheckpointBytes == 0 {
		o.CheckpointBytes = constants.DefaultCheckpointBytes
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.IgnorePatterns = append(append([]string{}, constants.DefaultIgnorePatterns...), o.IgnorePatterns...)
	o.IgnorePatterns = append(o.IgnorePatterns, "^"+filepath.Base(o.DatabasePath)+"$")
	o.IgnorePatterns = append(o.IgnorePatterns, "^"+filepath.Base(o.DatabasePath)+`\.lock$`)
}

// Scanner runs one full scan pass: lock, load, walk, reconcile, apply
// policy, dispatch hooks, save, unlock — the fixed pipeline every scan
// follows regardless of what the hooks themselves do.
type Scanner struct {
	Opts Options
	Dispatcher
}

// NewScanner resolves opts' defaults and returns a ready-to-run Scanner.
func NewScanner(opts Options) *Scanner {
	opts.resolve()
	return &Scanner{Opts: opts, Dispatcher: Dispatcher{Hooks: opts.Hooks, DryRun: opts.Removal.DryRun}}
}

// Run performs one scan of Opts.Directory. It always releases the lock it
// acquires, including when a hook panics — the panic is re-raised after
// the lock is released so a caller's recover still sees it.
func (s *Scanner) Run(ctx context.Context) (err error) {
	lock, err := plumbing.AcquireExclusive(s.Opts.DatabasePath + ".lock")
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			lock.Release()
			panic(r)
		}
	}()
	defer lock.Release()

	shadow, err := plumbing.LoadStore(s.Opts.DatabasePath)
	if err != nil {
		return err
	}

	if err := s.resolveMaxSize(); err != nil {
		return err
	}

	if s.Opts.MinimalScan && s.Opts.Depth != 0 {
		logger.Warnf("minimal-scan combined with nonzero depth: changes in unvisited subdirectories will be invisible")
	}

	now := s.Opts.Now()
	// result accumulates live as Reconcile classifies each visited path, so
	// the Checkpointer's mid-walk saves reflect actual scan progress rather
	// than the shadow set, which only ever shrinks toward the entries not
	// yet visited.
	result := map[string]*types.Entry{}
	checkpointer := &Checkpointer{ThresholdBytes: s.Opts.CheckpointBytes, DatabasePath: s.Opts.DatabasePath, TempDir: s.Opts.TempDir}

	checksumOpts := types.ChecksumOptions{
		UseChecksum:       s.Opts.UseChecksum,
		UseChecksumAlways: s.Opts.UseChecksumAlways,
		CheckWindow:       s.Opts.CheckWindow,
		Now:               now,
		OnBytesHashed:     checkpointer.Track(result),
	}

	walkOpts := plumbing.WalkOptions{
		MaxDepth:       s.Opts.Depth,
		IgnorePatterns: plumbing.CompileIgnorePatterns(s.Opts.IgnorePatterns),
		MinimalScan:    s.Opts.MinimalScan,
		LastMod:        lastModIndex(shadow),
	}

	rec, err := Reconcile(s.Opts.Directory, shadow, result, walkOpts, checksumOpts)
	if err != nil {
		return err
	}

	for _, e := range rec.Added {
		if !s.Dispatcher.Added(ctx, e.Path) {
			// A declined addition is left untracked entirely, so the next
			// scan sees it as new again and re-fires OnAdded.
			delete(result, e.Path)
		}
	}
	for _, e := range rec.Changed {
		if s.Dispatcher.Changed(ctx, e.Path) {
			continue
		}
		// A declined change is persisted with its *previous* stat snapshot,
		// so the next scan still compares against the old state and
		// re-fires OnChanged instead of silently accepting the new one.
		stale := *e
		stale.Info = e.PrevInfo
		result[e.Path] = &stale
	}
	for _, e := range rec.Removed {
		if s.Dispatcher.Removed(ctx, e.Path) {
			continue // never entered result: no longer tracked
		}
		result[e.Path] = e // hook declined; keep reporting it as removed next pass
	}

	if err := s.applyPolicy(ctx, result, now); err != nil {
		return err
	}

	return plumbing.SaveStore(s.Opts.DatabasePath, s.Opts.TempDir, result)
}

// resolveMaxSize turns Opts.MaxSize into Opts.MaxSizeBytes: a bare integer
// is taken as a byte count, and an "N%" value is resolved against the scan
// root's volume capacity via plumbing.PercentOfVolume, exactly as
// dirscan.py's constructor turns "20%" into a byte count via os.statvfs. An
// already-set MaxSizeBytes always wins, matching dirscan.py's precedence of
// checking maxSize only when the caller hasn't already supplied bytes.
func (s *Scanner) resolveMaxSize() error {
	if s.Opts.MaxSizeBytes != 0 || s.Opts.MaxSize == "" {
		return nil
	}
	if pct, ok := strings.CutSuffix(s.Opts.MaxSize, "%"); ok {
		p, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return types.NewScanError(types.CodeTransientIO, s.Opts.Directory, err)
		}
		bytes, err := plumbing.PercentOfVolume(s.Opts.Directory, p)
		if err != nil {
			return err
		}
		s.Opts.MaxSizeBytes = bytes
		return nil
	}
	bytes, err := strconv.ParseInt(s.Opts.MaxSize, 10, 64)
	if err != nil {
		return types.NewScanError(types.CodeTransientIO, s.Opts.Directory, err)
	}
	s.Opts.MaxSizeBytes = bytes
	return nil
}

// applyPolicy runs the age policy and then the size policy, in that fixed
// order, removing evicted entries from result and from disk.
func (s *Scanner) applyPolicy(ctx context.Context, result map[string]*types.Entry, now time.Time) error {
	all := make([]*types.Entry, 0, len(result))
	for _, e := range result {
		all = append(all, e)
	}

	for _, e := range AgeViolations(all, PolicyOptions{Days: s.Opts.Days, Now: now}) {
		s.evict(ctx, result, e, now)
	}

	remaining := make([]*types.Entry, 0, len(result))
	for _, e := range result {
		remaining = append(remaining, e)
	}
	sizeVictims, err := SizeViolations(remaining, PolicyOptions{MaxSizeBytes: s.Opts.MaxSizeBytes, Now: now})
	if err != nil {
		return err
	}
	for _, e := range sizeVictims {
		s.evict(ctx, result, e, now)
	}
	return nil
}

func (s *Scanner) evict(ctx context.Context, result map[string]*types.Entry, e *types.Entry, now time.Time) {
	if !s.Dispatcher.PastLimit(ctx, e.Path, AgeInDays(e, now)) {
		return
	}

	var err error
	if s.Opts.Trash {
		err = e.Trash(s.Opts.TrashDir)
	} else {
		err = e.Remove(ctx, s.Opts.Removal)
	}
	if err != nil {
		logger.Warnf("evict %s: %v", e.Path, err)
		return
	}
	delete(result, e.Path)
}

func lastModIndex(entries map[string]*types.Entry) map[string]int64 {
	idx := make(map[string]int64, len(entries))
	for p, e := range entries {
		if e.Info != nil {
			idx[p] = e.Info.ModTime.UnixNano()
		}
	}
	return idx
}
