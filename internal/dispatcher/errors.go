package dispatcher

import (
	"errors"
	"fmt"

	"github.com/dshills/composite/internal/iface"
)

// Dispatcher errors.
var (
	// ErrInvalidArgument indicates a nil interface, handler or method.
	ErrInvalidArgument = errors.New("dispatcher: invalid argument")

	// ErrUnresolvedHandler indicates no binding and no default handler.
	// Returned errors are *UnresolvedHandlerError values matching it.
	ErrUnresolvedHandler = errors.New("dispatcher: no invocation handler")

	// ErrUnknownIdentityMethod indicates an Object method the identity path
	// does not implement.
	ErrUnknownIdentityMethod = errors.New("dispatcher: unknown identity method")

	// ErrArity indicates the wrong number of arguments for an identity method.
	ErrArity = errors.New("dispatcher: wrong argument count")

	// ErrIdentityPanic indicates the identity implementation panicked with a
	// non-error value.
	ErrIdentityPanic = errors.New("dispatcher: identity method panicked")
)

// UnresolvedHandlerError reports an invocation that no handler could serve.
type UnresolvedHandlerError struct {
	// Interface is the declaring interface of the invoked method.
	Interface *iface.Interface
	// Method is the invoked method.
	Method *iface.Method
}

// Error implements the error interface.
func (e *UnresolvedHandlerError) Error() string {
	return fmt.Sprintf("no invocation handler for method %q on interface %s", e.Method, e.Interface)
}

// Is reports whether target is ErrUnresolvedHandler.
func (e *UnresolvedHandlerError) Is(target error) bool {
	return target == ErrUnresolvedHandler
}

// DispatchError reports a failure while the dispatcher serviced an
// identity method itself.
type DispatchError struct {
	// Method is the identity method being serviced.
	Method *iface.Method
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("invocation error on Object method %s: %v", e.Method, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DispatchError) Unwrap() error {
	return e.Err
}
