// Package handler provides the invocation handler interface and adapters.
package handler

import (
	"fmt"

	"github.com/dshills/composite/internal/iface"
)

// InvocationHandler executes a method invocation.
//
// Receiver is the proxy the method was invoked on. Handlers that implement
// several interfaces can tell them apart through m.Interface().
type InvocationHandler interface {
	Invoke(receiver any, m *iface.Method, args []any) (any, error)
}

// HandlerFunc is a function adapter for the InvocationHandler interface.
type HandlerFunc struct {
	fn func(receiver any, m *iface.Method, args []any) (any, error)
}

// NewHandlerFunc creates a HandlerFunc from a function.
func NewHandlerFunc(fn func(receiver any, m *iface.Method, args []any) (any, error)) *HandlerFunc {
	return &HandlerFunc{fn: fn}
}

// Invoke implements InvocationHandler.
func (f *HandlerFunc) Invoke(receiver any, m *iface.Method, args []any) (any, error) {
	if f.fn == nil {
		return nil, fmt.Errorf("%w: handler function is nil", ErrNilFunc)
	}
	return f.fn(receiver, m, args)
}

// MethodFunc implements a single method.
type MethodFunc func(receiver any, args []any) (any, error)

// Table handles invocations by method name.
type Table struct {
	name    string
	methods map[string]MethodFunc
}

// NewTable creates an empty method table. The name only shows up in errors.
func NewTable(name string) *Table {
	return &Table{
		name:    name,
		methods: make(map[string]MethodFunc),
	}
}

// Register sets the implementation for a method name and returns the table.
func (t *Table) Register(methodName string, fn MethodFunc) *Table {
	t.methods[methodName] = fn
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Has returns true if the table implements the method name.
func (t *Table) Has(methodName string) bool {
	_, ok := t.methods[methodName]
	return ok
}

// Invoke implements InvocationHandler.
func (t *Table) Invoke(receiver any, m *iface.Method, args []any) (any, error) {
	fn, ok := t.methods[m.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", ErrUnknownMethod, t.name, m)
	}
	return fn(receiver, args)
}
