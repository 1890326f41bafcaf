package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognized is returned by Detect when no platform signature
	// matches, and by Resolve for a platform with no registered factory.
	// There is no fallback core: the caller must surface this.
	ErrUnrecognized = errors.New("rom matches no known platform")

	// ErrIncompatibleState is wrapped by ImportState when the blob was
	// produced by a different platform or an unknown blob version. The
	// live core state is unchanged.
	ErrIncompatibleState = errors.New("state blob incompatible with this core")

	// ErrOutOfRange is returned when a rewind reaches past the buffered
	// history. Nothing is restored.
	ErrOutOfRange = errors.New("rewind depth exceeds buffered history")
)

// FaultError wraps an unrecoverable internal core error reported by Step.
// It is fatal to the session: the core is torn down and must be reloaded.
type FaultError struct {
	Platform Platform
	Err      error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s core fault: %v", e.Platform.Abbrev(), e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }
