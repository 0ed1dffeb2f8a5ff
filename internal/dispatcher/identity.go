package dispatcher

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/dshills/composite/internal/iface"
)

// Identity implements the methods declared by iface.Object for every proxy
// backed by a dispatcher.
type Identity interface {
	Equal(other any) bool
	HashCode() uint64
	String() string
}

// owner is implemented by values that belong to a dispatcher, such as
// proxy instances and Synchronized.
type owner interface {
	Dispatcher() *Dispatcher
}

// Equal reports whether other is d or belongs to d.
func (d *Dispatcher) Equal(other any) bool {
	switch o := other.(type) {
	case *Dispatcher:
		return o == d
	case owner:
		return o.Dispatcher() == d
	}
	return false
}

// HashCode returns a hash of the dispatcher's ID.
func (d *Dispatcher) HashCode() uint64 {
	h := fnv.New64a()
	_, _ = h.Write(d.id[:])
	return h.Sum64()
}

// String returns "composite.Dispatcher[<id>]".
func (d *Dispatcher) String() string {
	return fmt.Sprintf("composite.Dispatcher[%s]", d.id)
}

// invokeIdentity services an Object method on d's identity implementation.
// Every failure, including a panic, is returned as a *DispatchError.
func (d *Dispatcher) invokeIdentity(m *iface.Method, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%w: %v", ErrIdentityPanic, r)
			}
			result, err = nil, &DispatchError{Method: m, Err: cause}
		}
	}()

	arity := func(want int) error {
		if len(args) != want {
			return &DispatchError{
				Method: m,
				Err:    fmt.Errorf("%w: got %d, want %d", ErrArity, len(args), want),
			}
		}
		return nil
	}

	switch m.Name {
	case iface.MethodEquals:
		if err := arity(1); err != nil {
			return nil, err
		}
		return d.identity.Equal(args[0]), nil
	case iface.MethodHashCode:
		if err := arity(0); err != nil {
			return nil, err
		}
		return d.identity.HashCode(), nil
	case iface.MethodString:
		if err := arity(0); err != nil {
			return nil, err
		}
		return d.identity.String(), nil
	}
	return nil, &DispatchError{Method: m, Err: ErrUnknownIdentityMethod}
}

// IsDispatchError reports whether err is or wraps a *DispatchError.
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}
