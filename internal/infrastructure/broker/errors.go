package broker

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a running broker.
	ErrAlreadyStarted = errors.New("broker: already started")

	// ErrNotStarted is returned by operations that need a running broker.
	ErrNotStarted = errors.New("broker: not started")
)
