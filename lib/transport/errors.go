package transport

import "errors"

// These use errors.New (not oops.Errorf) so callers can match them with errors.Is().
var (
	// ErrNotStarted is returned by Accept before Start has succeeded.
	ErrNotStarted = errors.New("listener not started")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("listener already started")
	// ErrListenerClosed is returned by Start and Accept after Close.
	ErrListenerClosed = errors.New("listener closed")
)
