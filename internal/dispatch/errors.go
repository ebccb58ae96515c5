package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrInvalidMessage is returned when a message has no command kind.
	ErrInvalidMessage = errors.New("dispatch: invalid message")
)
