package proxy

import "errors"

// Errors returned by the provider and by proxy instances.
var (
	// ErrUnknownType indicates a name that is neither a composed type nor an
	// interface visible after the definition is loaded.
	ErrUnknownType = errors.New("unknown type")

	// ErrNoSuchMethod indicates a method name the proxy type does not have.
	ErrNoSuchMethod = errors.New("no such method")

	// ErrNoInvoker indicates an instance created without an invoker.
	ErrNoInvoker = errors.New("instance has no invoker")
)
