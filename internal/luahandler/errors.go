package luahandler

import "errors"

// Errors for Lua handler operations.
var (
	// ErrStateClosed is returned when invoking a closed handler.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNoFunction is returned when the script defines no function for
	// the invoked method.
	ErrNoFunction = errors.New("lua function not found")

	// ErrExecutionTimeout is returned when a call runs past its timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")
)
