package composition

import (
	"errors"
	"fmt"
)

// Errors returned while loading and building compositions.
var (
	// ErrNoContract indicates a composition file without a contract path.
	ErrNoContract = errors.New("composition has no contract")

	// ErrNoType indicates a composition file without a type name.
	ErrNoType = errors.New("composition has no type")

	// ErrClosed indicates use of a closed assembly.
	ErrClosed = errors.New("assembly is closed")
)

// BindingError describes a binding that could not be applied.
type BindingError struct {
	// Index is the binding's position in the file, or -1 for the default.
	Index int
	// Interface is the bound interface name (empty for the default).
	Interface string
	// Script is the script path as written in the file.
	Script string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("default binding (%s): %v", e.Script, e.Err)
	}
	return fmt.Sprintf("binding %d (%s -> %s): %v", e.Index+1, e.Interface, e.Script, e.Err)
}

// Unwrap returns the underlying error.
func (e *BindingError) Unwrap() error {
	return e.Err
}
