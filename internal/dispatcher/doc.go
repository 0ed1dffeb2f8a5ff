// Package dispatcher routes method invocations to the handler responsible
// for the interface that declared the method.
//
// Several independent handlers can jointly implement a composed contract.
// Each handler is registered for one interface and, through the hierarchy
// walk, for everything that interface extends.
//
// # Registration
//
// AddInvocationHandler binds a handler to an interface and to its whole
// closure:
//
//	d := dispatcher.NewWithDefaults()
//	_ = d.AddInvocationHandler(readWriter, rw) // ReadWriter, Reader, Writer
//	_ = d.AddInvocationHandler(writer, w)      // only Writer changes
//
// Bindings are keyed by the exact interface, and the last write wins. A
// broader registration made later never cascades onto a narrower one
// recorded earlier, except for the keys in its own closure.
//
// SetDefaultHandler sets a single fallback for interfaces with no binding.
//
// # Invocation
//
// When a method is invoked:
//
//  1. If the declaring interface is iface.Object, the dispatcher services
//     Equals, HashCode or String itself through its Identity. Registered
//     and default handlers are never consulted. Failures come back as
//     *DispatchError with the cause attached.
//  2. Otherwise the handler bound to the declaring interface is called.
//  3. With no binding, the default handler is called.
//  4. With neither, Invoke returns *UnresolvedHandlerError.
//
// A handler's result and error are returned exactly as the handler
// produced them.
//
// # Identity
//
// By default a Dispatcher is its own Identity. Proxies that report the same
// dispatcher compare equal, hash to the dispatcher's ID and print as
// composite.Dispatcher[<id>]. Config.WithIdentity replaces this for every
// proxy at once.
//
// # Concurrency
//
// Dispatcher and Registry do no locking. Register everything before
// proxies receive calls, or wrap the dispatcher in Synchronized, which
// guards invocation and registration with one read/write lock.
package dispatcher
