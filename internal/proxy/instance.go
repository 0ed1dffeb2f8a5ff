package proxy

import (
	"fmt"

	"github.com/dshills/composite/internal/dispatcher"
	"github.com/dshills/composite/internal/iface"
)

// Invoker receives proxy calls. *dispatcher.Dispatcher and
// *dispatcher.Synchronized both satisfy it.
type Invoker interface {
	Invoke(decl *iface.Interface, m *iface.Method, receiver any, args []any) (any, error)
}

// Instance is a proxy object. Every call is looked up in its type's method
// table and sent to the invoker with the declaring interface attached.
type Instance struct {
	typ *Type
	inv Invoker
}

// Type returns the instance's proxy type.
func (p *Instance) Type() *Type {
	return p.typ
}

// Invoker returns the invoker calls are sent to.
func (p *Instance) Invoker() Invoker {
	return p.inv
}

// Dispatcher returns the dispatcher behind the invoker, or nil when the
// invoker is not dispatcher-backed.
func (p *Instance) Dispatcher() *dispatcher.Dispatcher {
	switch inv := p.inv.(type) {
	case *dispatcher.Dispatcher:
		return inv
	case interface{ Dispatcher() *dispatcher.Dispatcher }:
		return inv.Dispatcher()
	}
	return nil
}

// Call invokes the named method with args.
func (p *Instance) Call(method string, args ...any) (any, error) {
	m, ok := p.typ.Resolve(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoSuchMethod, p.typ.name, method)
	}
	if p.inv == nil {
		return nil, ErrNoInvoker
	}
	return p.inv.Invoke(m.Interface(), m, p, args)
}

// Equal calls Equals(other) on the proxy. An error counts as not equal.
func (p *Instance) Equal(other any) bool {
	res, err := p.Call(iface.MethodEquals, other)
	if err != nil {
		return false
	}
	eq, _ := res.(bool)
	return eq
}

// HashCode calls HashCode() on the proxy. An error yields 0.
func (p *Instance) HashCode() uint64 {
	res, err := p.Call(iface.MethodHashCode)
	if err != nil {
		return 0
	}
	h, _ := res.(uint64)
	return h
}

// String calls String() on the proxy.
func (p *Instance) String() string {
	res, err := p.Call(iface.MethodString)
	if err != nil {
		return fmt.Sprintf("%s(!%v)", p.typ.name, err)
	}
	if s, ok := res.(string); ok {
		return s
	}
	return fmt.Sprint(res)
}
