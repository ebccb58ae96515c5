package program

import "errors"

// Domain errors for the program package.
var (
	// ErrAlreadyStarted is returned when running a unit that is not pending.
	ErrAlreadyStarted = errors.New("program: unit already started")

	// ErrProgramNotFound is returned when a program name is not in the library.
	ErrProgramNotFound = errors.New("program: not found")

	// ErrInvalidProgram is returned when a program definition is malformed.
	ErrInvalidProgram = errors.New("program: invalid")

	// ErrUnknownAlias is returned when a program refers to a device alias with no identity.
	ErrUnknownAlias = errors.New("program: unknown device alias")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("program: execution not found")
)
