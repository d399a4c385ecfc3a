package porcelain

import (
	"context"

	"github.com/flanksource/commons/logger"

	"github.com/jwiegley/dirscan/types"
)

// Dispatcher runs the lifecycle hooks registered for a scan, logging every
// dispatch so a run's decisions are visible without instrumenting the
// caller's own hook functions.
type Dispatcher struct {
	Hooks types.HookSet
	// DryRun suppresses execution of command-template hooks: the command is
	// logged and treated as accepted, but never actually run.
	DryRun bool
}

func (d Dispatcher) dispatch(ctx context.Context, hook types.Hook, tag, path string) bool {
	ok, err := hook.Run(ctx, path, d.DryRun)
	if err != nil {
		logger.Warnf("%s %s: hook error: %v", tag, path, err)
		return false
	}
	if !ok {
		logger.Debugf("%s %s: hook declined, entry left unresolved", tag, path)
		return false
	}
	logger.Infof("%s %s", tag, path)
	return true
}

// Added dispatches OnAdded for a newly-discovered entry.
func (d Dispatcher) Added(ctx context.Context, path string) bool {
	return d.dispatch(ctx, d.Hooks.OnAdded, "A", path)
}

// Changed dispatches OnChanged for a modified entry.
func (d Dispatcher) Changed(ctx context.Context, path string) bool {
	return d.dispatch(ctx, d.Hooks.OnChanged, "M", path)
}

// Removed dispatches OnRemoved for a vanished entry.
func (d Dispatcher) Removed(ctx context.Context, path string) bool {
	return d.dispatch(ctx, d.Hooks.OnRemoved, "R", path)
}

// PastLimit dispatches OnPastLimit for an entry evicted by age or size
// policy, passing the entry's age in days the way onEntryPastLimit(age) does.
func (d Dispatcher) PastLimit(ctx context.Context, path string, ageDays float64) bool {
	ok, err := d.Hooks.OnPastLimit.Run(ctx, path, ageDays, d.DryRun)
	if err != nil {
		logger.Warnf("O %s: hook error: %v", path, err)
		return false
	}
	if !ok {
		logger.Debugf("O %s: hook declined, entry left unresolved", path)
		return false
	}
	logger.Infof("O %s (%.1f days old)", path, ageDays)
	return true
}
