package challenge

import "errors"

var (
	// ErrInvalidTargetTime is returned when a hold target outside the allowed set is selected.
	ErrInvalidTargetTime = errors.New("invalid target time")
	// ErrNotRunning is returned when a command is sent before Run starts.
	ErrNotRunning = errors.New("challenge engine not running")
	// ErrStopped is returned when a command is sent after Run has returned.
	ErrStopped = errors.New("challenge engine stopped")
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("challenge engine already running")
)
