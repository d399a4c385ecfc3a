package porcelain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwiegley/dirscan/types"
)

// recorder captures the tag+path pairs a hook set produces, mirroring the
// msgBuffer global test_dirscan.py's test double writes to.
type recorder struct {
	events  []string
	respond bool
}

func (r *recorder) hook(tag string) func(context.Context, string) (bool, error) {
	return func(_ context.Context, path string) (bool, error) {
		if r.respond {
			r.events = append(r.events, tag+" "+path)
		}
		return r.respond, nil
	}
}

func (r *recorder) pastLimitHook(tag string) func(context.Context, string, float64) (bool, error) {
	return func(_ context.Context, path string, _ float64) (bool, error) {
		if r.respond {
			r.events = append(r.events, tag+" "+path)
		}
		return r.respond, nil
	}
}

func newTestScanner(t *testing.T, dir string, r *recorder) *Scanner {
	t.Helper()
	opts := Options{
		Directory: dir,
		Hooks: types.HookSet{
			OnAdded:     types.NewFuncHook(r.hook("A")),
			OnChanged:   types.NewFuncHook(r.hook("M")),
			OnRemoved:   types.NewFuncHook(r.hook("R")),
			OnPastLimit: types.NewPastLimitFuncHook(r.pastLimitHook("O")),
		},
	}
	return NewScanner(opts)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileAdded(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{respond: true}
	s := newTestScanner(t, dir, r)

	writeFile(t, filepath.Join(dir, "hello"), "Hello, world!\n")
	require.NoError(t, s.Run(context.Background()))
	require.FileExists(t, s.Opts.DatabasePath)
	require.Equal(t, []string{"A " + filepath.Join(dir, "hello")}, r.events)

	r.events = nil
	writeFile(t, filepath.Join(dir, "goodbye"), "Goodbye, world!\n")
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"A " + filepath.Join(dir, "goodbye")}, r.events)
}

func TestFileChanged(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{respond: true}
	s := newTestScanner(t, dir, r)
	path := filepath.Join(dir, "hello")

	writeFile(t, path, "Hello, world!\n")
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"A " + path}, r.events)

	r.events = nil
	future := time.Now().Add(2 * time.Second)
	writeFile(t, path, "Goodbye, world!\n")
	require.NoError(t, os.Chtimes(path, future, future))
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"M " + path}, r.events)
}

func TestFileRemoved(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{respond: true}
	s := newTestScanner(t, dir, r)
	path := filepath.Join(dir, "hello")

	writeFile(t, path, "Hello, world!\n")
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"A " + path}, r.events)

	require.NoError(t, os.Remove(path))

	r.events = nil
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"R " + path}, r.events)
}

func TestFilePastLimit(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{respond: true}
	s := newTestScanner(t, dir, r)
	path := filepath.Join(dir, "hello")

	writeFile(t, path, "Hello, world!\n")
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"A " + path}, r.events)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	r.events = nil
	s.Opts.Days = 1
	require.NoError(t, s.Run(context.Background()))
	// Backdating the file also moves its mtime, so OnChanged fires during
	// reconciliation before the age policy evicts it.
	require.Equal(t, []string{"M " + path, "O " + path}, r.events)
}

func TestFileAddedDeclined(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{respond: false}
	s := newTestScanner(t, dir, r)
	path := filepath.Join(dir, "hello")

	writeFile(t, path, "Hello, world!\n")
	require.NoError(t, s.Run(context.Background()))
	require.Empty(t, r.events)

	r.respond = true
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"A " + path}, r.events)
}

func TestFileChangedDeclinedRefiresLater(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{respond: true}
	s := newTestScanner(t, dir, r)
	path := filepath.Join(dir, "hello")

	writeFile(t, path, "Hello, world!\n")
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"A " + path}, r.events)

	future := time.Now().Add(2 * time.Second)
	writeFile(t, path, "Goodbye, world!\n")
	require.NoError(t, os.Chtimes(path, future, future))

	r.respond = false
	r.events = nil
	require.NoError(t, s.Run(context.Background()))
	require.Empty(t, r.events)

	r.respond = true
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"M " + path}, r.events)
}

func TestDryRunSkipsCommandHookExecution(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	opts := Options{
		Directory: dir,
		Removal:   types.RemovalOptions{DryRun: true},
		Hooks: types.HookSet{
			OnAdded: types.NewCommandHook(`touch "` + marker + `"`),
		},
	}
	s := NewScanner(opts)
	require.True(t, s.Dispatcher.DryRun)

	writeFile(t, filepath.Join(dir, "hello"), "Hello, world!\n")
	require.NoError(t, s.Run(context.Background()))
	require.NoFileExists(t, marker)
}

func TestSizeLimitRemovesLargestFirst(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{respond: true}
	s := newTestScanner(t, dir, r)

	writeFile(t, filepath.Join(dir, "small"), "0123456789")           // 10 bytes
	writeFile(t, filepath.Join(dir, "big"), string(make([]byte, 100))) // 100 bytes
	require.NoError(t, s.Run(context.Background()))

	r.events = nil
	s.Opts.MaxSizeBytes = 50
	require.NoError(t, s.Run(context.Background()))
	require.Contains(t, r.events, "O "+filepath.Join(dir, "big"))
	require.NotContains(t, r.events, "O "+filepath.Join(dir, "small"))
}
