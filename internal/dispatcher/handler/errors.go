package handler

import "errors"

// Handler errors.
var (
	// ErrNilFunc indicates a handler with nothing to call.
	ErrNilFunc = errors.New("handler: nothing to invoke")

	// ErrUnknownMethod indicates the handler does not implement the method.
	ErrUnknownMethod = errors.New("handler: unknown method")

	// ErrArgumentCount indicates the wrong number of arguments.
	ErrArgumentCount = errors.New("handler: wrong argument count")

	// ErrArgumentType indicates an argument cannot be passed to the method.
	ErrArgumentType = errors.New("handler: wrong argument type")
)
