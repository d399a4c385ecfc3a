package types

import (
	stderrors "errors"
	"fmt"

	cferrors "github.com/input-output-hk/catalyst-forge-libs/errors"
)

// Error codes classifying every failure this module can surface. Mirrors the
// five categories a scan run distinguishes: everything that is fatal to the
// run itself (state corruption, lock failure) versus everything that is
// logged and skipped (transient I/O, missing path, hook failure).
const (
	CodeTransientIO     cferrors.ErrorCode = "TRANSIENT_IO"
	CodeMissingPath     cferrors.ErrorCode = "MISSING_PATH"
	CodeHookFailure     cferrors.ErrorCode = "HOOK_FAILURE"
	CodeStateCorruption cferrors.ErrorCode = "STATE_CORRUPTION"
	CodeLockFailure     cferrors.ErrorCode = "LOCK_FAILURE"
)

// ScanError attaches an ErrorCode and the offending path to an underlying
// error so a caller can branch with errors.As instead of matching strings.
type ScanError struct {
	Code cferrors.ErrorCode
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// NewScanError builds a ScanError, wrapping err with fmt.Errorf's %w so the
// chain stays intact for errors.Is/errors.As.
func NewScanError(code cferrors.ErrorCode, path string, err error) error {
	if err == nil {
		return nil
	}
	return &ScanError{Code: code, Path: path, Err: fmt.Errorf("%w", err)}
}

// IsFatal reports whether a scan should abort entirely on this error, as
// opposed to logging it and continuing with the next entry. Only state-file
// corruption and lock failures halt a run; everything else is best-effort.
func IsFatal(err error) bool {
	var se *ScanError
	if stderrors.As(err, &se) {
		return se.Code == CodeStateCorruption || se.Code == CodeLockFailure
	}
	return false
}
