package dispatcher

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/dshills/composite/internal/dispatcher/handler"
	"github.com/dshills/composite/internal/iface"
	"github.com/dshills/composite/internal/logger"
)

// Registry maps interfaces to invocation handlers, with an optional default.
//
// Registry is not safe for concurrent use. Finish registration before
// invocations start, or guard all access with Synchronized.
type Registry struct {
	bindings       map[*iface.Interface]handler.InvocationHandler
	defaultHandler handler.InvocationHandler
	log            *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return newRegistry(logger.Nop())
}

func newRegistry(log *logger.Logger) *Registry {
	return &Registry{
		bindings: make(map[*iface.Interface]handler.InvocationHandler),
		log:      log,
	}
}

// AddInvocationHandler binds h to root and to every interface root
// transitively extends. Existing bindings for those exact interfaces are
// overwritten; all other bindings are left alone.
func (r *Registry) AddInvocationHandler(root *iface.Interface, h handler.InvocationHandler) error {
	if root == nil {
		return fmt.Errorf("%w: interface is nil", ErrInvalidArgument)
	}
	if isNil(h) {
		return fmt.Errorf("%w: handler for %s is nil", ErrInvalidArgument, root)
	}

	iface.Walk(root, func(i *iface.Interface) {
		r.bindings[i] = h
	})
	r.log.Debug("Registered invocation handler.", "interface", root.Name(), "handler", fmt.Sprintf("%T", h))
	return nil
}

// SetDefaultHandler replaces the fallback handler. Nil clears it.
func (r *Registry) SetDefaultHandler(h handler.InvocationHandler) {
	if isNil(h) {
		h = nil
	}
	r.defaultHandler = h
	r.log.Debug("Set default invocation handler.", "handler", fmt.Sprintf("%T", h))
}

// Get returns the handler bound to exactly i.
func (r *Registry) Get(i *iface.Interface) (handler.InvocationHandler, bool) {
	h, ok := r.bindings[i]
	return h, ok
}

// Has returns true if a handler is bound to exactly i.
func (r *Registry) Has(i *iface.Interface) bool {
	_, ok := r.bindings[i]
	return ok
}

// Default returns the default handler, or nil.
func (r *Registry) Default() handler.InvocationHandler {
	return r.defaultHandler
}

// Resolve returns the handler bound to i, else the default handler, else nil.
func (r *Registry) Resolve(i *iface.Interface) handler.InvocationHandler {
	if h, ok := r.bindings[i]; ok {
		return h
	}
	return r.defaultHandler
}

// Interfaces returns the bound interfaces sorted by name.
func (r *Registry) Interfaces() []*iface.Interface {
	out := make([]*iface.Interface, 0, len(r.bindings))
	for i := range r.bindings {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Name() < out[b].Name()
	})
	return out
}

// Count returns the number of bound interfaces.
func (r *Registry) Count() int {
	return len(r.bindings)
}

// Handlers returns every distinct handler currently reachable, bound ones
// in interface-name order followed by the default.
func (r *Registry) Handlers() []handler.InvocationHandler {
	var out []handler.InvocationHandler
	seen := make(map[handler.InvocationHandler]bool)
	add := func(h handler.InvocationHandler) {
		if h == nil {
			return
		}
		if reflect.ValueOf(h).Comparable() {
			if seen[h] {
				return
			}
			seen[h] = true
		}
		out = append(out, h)
	}

	for _, i := range r.Interfaces() {
		add(r.bindings[i])
	}
	add(r.defaultHandler)
	return out
}

// isNil reports whether h is nil or a typed nil.
func isNil(h handler.InvocationHandler) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
