package types

import (
	"context"
	"os/exec"
	"strings"

	"github.com/flanksource/commons/logger"
)

// Hook is the polymorphic action a caller registers for an entry lifecycle
// event: either a Go function invoked directly, or a shell command template
// with a %s placeholder substituted with the (escaped) entry path. Exactly
// one of Func or Command should be set; NewFuncHook/NewCommandHook enforce
// that.
type Hook struct {
	// Func returns whether the event was accepted (ok) alongside any error.
	// A hook returning ok=false suppresses the entry's state update, exactly
	// as dirscan.py's onEntry* callbacks returning a falsy value leaves the
	// entry to be re-reported on the next scan.
	Func    func(ctx context.Context, path string) (ok bool, err error)
	Command string
}

// NewFuncHook wraps a Go callable as a Hook.
func NewFuncHook(fn func(ctx context.Context, path string) (bool, error)) Hook {
	return Hook{Func: fn}
}

// NewCommandHook wraps a shell command template as a Hook. The template may
// contain %s exactly once; it is substituted with the shell-escaped path.
func NewCommandHook(template string) Hook {
	return Hook{Command: template}
}

// IsZero reports whether no action was registered.
func (h Hook) IsZero() bool {
	return h.Func == nil && h.Command == ""
}

// escapeShellPath escapes $, ", and \ with a leading backslash so a path can
// be safely interpolated into a double-quoted shell command string, the
// direct port of dirscan.py's re.sub("([$\"\\\\])", r"\\\1", path).
func escapeShellPath(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '$', '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Run invokes the hook for path. ok reports whether the event was accepted;
// a command hook is accepted iff it exits zero. A zero Hook is always
// accepted and does nothing, so unset hooks never block state updates. When
// dryRun is set, a command hook is logged but not executed and ok is true,
// mirroring dirscan.py's run(cmd, path, dryrun) — a Func hook is unaffected,
// since dry-run is a shell-execution concern the caller's own function is
// free to honor itself.
func (h Hook) Run(ctx context.Context, path string, dryRun bool) (ok bool, err error) {
	if h.IsZero() {
		return true, nil
	}
	if h.Func != nil {
		return h.Func(ctx, path)
	}
	cmd := strings.Replace(h.Command, "%s", `"`+escapeShellPath(path)+`"`, 1)
	logger.Debugf("executing: %s", cmd)
	if dryRun {
		return true, nil
	}
	if err := exec.CommandContext(ctx, "sh", "-c", cmd).Run(); err != nil {
		return false, nil
	}
	return true, nil
}

// PastLimitHook is the action registered for age- or size-policy eviction.
// Its Func variant receives the entry's age in days alongside the path, per
// onEntryPastLimit(age); its Command variant only ever sees the path,
// matching dirscan.py's shell-triggered onEntryEvent, which never forwards
// age to an external command.
type PastLimitHook struct {
	Func    func(ctx context.Context, path string, ageDays float64) (ok bool, err error)
	Command string
}

// NewPastLimitFuncHook wraps a Go callable as a PastLimitHook.
func NewPastLimitFuncHook(fn func(ctx context.Context, path string, ageDays float64) (bool, error)) PastLimitHook {
	return PastLimitHook{Func: fn}
}

// NewPastLimitCommandHook wraps a shell command template as a PastLimitHook.
func NewPastLimitCommandHook(template string) PastLimitHook {
	return PastLimitHook{Command: template}
}

// IsZero reports whether no action was registered.
func (h PastLimitHook) IsZero() bool {
	return h.Func == nil && h.Command == ""
}

// Run invokes the hook for path, passing ageDays to a Func hook. A zero
// PastLimitHook is always accepted. dryRun behaves as it does for Hook.Run:
// a command hook is logged and skipped, never executed.
func (h PastLimitHook) Run(ctx context.Context, path string, ageDays float64, dryRun bool) (ok bool, err error) {
	if h.IsZero() {
		return true, nil
	}
	if h.Func != nil {
		return h.Func(ctx, path, ageDays)
	}
	cmd := strings.Replace(h.Command, "%s", `"`+escapeShellPath(path)+`"`, 1)
	logger.Debugf("executing: %s", cmd)
	if dryRun {
		return true, nil
	}
	if err := exec.CommandContext(ctx, "sh", "-c", cmd).Run(); err != nil {
		return false, nil
	}
	return true, nil
}

// HookSet groups the four lifecycle hooks a Scanner dispatches to: added,
// changed, removed and past-limit (age or size policy eviction).
type HookSet struct {
	OnAdded     Hook
	OnChanged   Hook
	OnRemoved   Hook
	OnPastLimit PastLimitHook
}
