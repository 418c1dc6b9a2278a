package engine

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrBackupActivation  = errors.New("failed activating backup service")
	ErrAlreadyRun        = errors.New("engine already run")
	ErrMissingDependency = errors.New("missing engine dependency")
)

// StartupError reports a host registry failure for one eligible service.
type StartupError struct {
	ServiceID string
	Err       error

	// Panicked is set when the failure was a recovered panic.
	Panicked bool
}

func (e *StartupError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("start service %q: panic: %v", e.ServiceID, e.Err)
	}
	return fmt.Sprintf("start service %q: %v", e.ServiceID, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// CompanionError reports a failed companion allow-list step. It is only
// ever logged.
type CompanionError struct {
	AppID string
	Op    string // "query" or "add"
	Err   error
}

func (e *CompanionError) Error() string {
	return fmt.Sprintf("companion %s %s: %v", e.AppID, e.Op, e.Err)
}

func (e *CompanionError) Unwrap() error { return e.Err }
