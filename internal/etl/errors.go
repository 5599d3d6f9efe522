package etl

import (
	"errors"
	"fmt"
)

// InvalidOperationError is returned for operation names outside the fixed set.
// It is raised before any ledger write happens.
type InvalidOperationError struct {
	Name string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid operation: %q", e.Name)
}

// UpstreamSyncError wraps any failure reaching the external payment platform.
// It is the only error class the retry policy acts on.
type UpstreamSyncError struct {
	Operation Operation
	Err       error
}

func (e *UpstreamSyncError) Error() string {
	return fmt.Sprintf("%s: upstream sync failed: %v", e.Operation, e.Err)
}

func (e *UpstreamSyncError) Unwrap() error {
	return e.Err
}

// IsInvalidOperation reports whether err is an InvalidOperationError.
func IsInvalidOperation(err error) bool {
	var target *InvalidOperationError
	return errors.As(err, &target)
}

// IsUpstream reports whether err is, or wraps, an UpstreamSyncError.
func IsUpstream(err error) bool {
	var target *UpstreamSyncError
	return errors.As(err, &target)
}
