package dispatcher

import (
	"sync"

	"github.com/dshills/composite/internal/dispatcher/handler"
	"github.com/dshills/composite/internal/iface"
)

// Synchronized guards a Dispatcher with a single read/write lock.
// Invocations share the read lock; registration takes the write lock.
//
// A handler must not register handlers on, or invoke through, the same
// Synchronized while it is running. Both would wait on the lock it holds.
type Synchronized struct {
	mu sync.RWMutex
	d  *Dispatcher
}

// NewSynchronized wraps d.
func NewSynchronized(d *Dispatcher) *Synchronized {
	return &Synchronized{d: d}
}

// Dispatcher returns the wrapped dispatcher.
func (s *Synchronized) Dispatcher() *Dispatcher {
	return s.d
}

// Invoke calls Dispatcher.Invoke under the read lock.
func (s *Synchronized) Invoke(decl *iface.Interface, m *iface.Method, receiver any, args []any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.Invoke(decl, m, receiver, args)
}

// AddInvocationHandler calls Dispatcher.AddInvocationHandler under the write lock.
func (s *Synchronized) AddInvocationHandler(i *iface.Interface, h handler.InvocationHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.AddInvocationHandler(i, h)
}

// SetDefaultHandler calls Dispatcher.SetDefaultHandler under the write lock.
func (s *Synchronized) SetDefaultHandler(h handler.InvocationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.SetDefaultHandler(h)
}

// Update runs fn under the write lock, so a batch of registrations is
// never observed half applied.
func (s *Synchronized) Update(fn func(d *Dispatcher) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.d)
}

// View runs fn under the read lock.
func (s *Synchronized) View(fn func(d *Dispatcher)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.d)
}
