package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these to classify a failure.
var (
	ErrPermissionDenied  = errors.New("usage stats permission not granted")
	ErrPermissionRequest = errors.New("usage stats permission request failed")
	ErrSourceQuery       = errors.New("usage source query failed")
	ErrRegistryLookup    = errors.New("application registry lookup failed")
	ErrAppNotFound       = errors.New("application not found")
)

// ErrorCode is the stable code reported to callers of the external operations.
type ErrorCode string

const (
	CodeNoPermission      ErrorCode = "NO_PERMISSION"
	CodeRequestPermission ErrorCode = "ERROR_REQUESTING_PERMISSION"
	CodeGetUsageStats     ErrorCode = "ERROR_GETTING_USAGE_STATS"
	CodeGetCurrentApp     ErrorCode = "ERROR_GETTING_CURRENT_APP"
	CodeGetTodayStats     ErrorCode = "ERROR_GETTING_TODAY_STATS"
	CodeGetInstalledApps  ErrorCode = "ERROR_GETTING_INSTALLED_APPS"
	CodeGetDetailedStats  ErrorCode = "ERROR_GETTING_DETAILED_STATS"
	CodeGetReport         ErrorCode = "ERROR_GETTING_REPORT"
	CodeUnknown           ErrorCode = "ERROR_UNKNOWN"
)

// UsageError is a tagged failure carrying a stable code.
type UsageError struct {
	Op   string
	Code ErrorCode
	Kind error // one of the Err* kinds above
	Err  error // underlying cause, may be nil
}

func (e *UsageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *UsageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPermissionError reports a query attempted without authorization.
func NewPermissionError(op string) *UsageError {
	return &UsageError{Op: op, Code: CodeNoPermission, Kind: ErrPermissionDenied}
}

// NewSourceError wraps a failed UsageSource call.
func NewSourceError(op string, code ErrorCode, err error) *UsageError {
	return &UsageError{Op: op, Code: code, Kind: ErrSourceQuery, Err: err}
}

// CodeOf returns the stable code of err, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return CodeUnknown
}

// WithCode re-tags a UsageError under a different code, keeping NO_PERMISSION intact.
func WithCode(err error, code ErrorCode) error {
	var ue *UsageError
	if !errors.As(err, &ue) || ue.Code == CodeNoPermission {
		return err
	}
	tagged := *ue
	tagged.Code = code
	return &tagged
}
