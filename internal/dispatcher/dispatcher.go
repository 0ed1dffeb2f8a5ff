package dispatcher

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/composite/internal/dispatcher/handler"
	"github.com/dshills/composite/internal/iface"
	"github.com/dshills/composite/internal/logger"
)

// Invocation is one method call on a proxy.
type Invocation struct {
	// Interface is the interface that declared Method.
	Interface *iface.Interface
	// Method is the invoked method.
	Method *iface.Method
	// Receiver is the proxy the method was invoked on.
	Receiver any
	// Args are the call arguments, in order.
	Args []any
}

// Dispatcher routes invocations to the handler registered for the
// declaring interface.
//
// A Dispatcher is not safe for concurrent registration and invocation.
// See Synchronized.
type Dispatcher struct {
	id       uuid.UUID
	registry *Registry
	config   Config
	identity Identity
	log      *logger.Logger

	metrics   *Metrics
	postHooks []PostInvokeHook
}

// New creates a new dispatcher with the given configuration.
func New(config Config) *Dispatcher {
	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	d := &Dispatcher{
		id:       uuid.New(),
		registry: newRegistry(log),
		config:   config,
		log:      log,
	}

	d.identity = config.Identity
	if d.identity == nil {
		d.identity = d
	}

	if config.EnableMetrics {
		d.metrics = NewMetrics()
	}

	return d
}

// NewWithDefaults creates a new dispatcher with default configuration.
func NewWithDefaults() *Dispatcher {
	return New(DefaultConfig())
}

// ID returns the dispatcher's unique ID.
func (d *Dispatcher) ID() uuid.UUID {
	return d.id
}

// AddInvocationHandler binds h to i and everything i extends.
func (d *Dispatcher) AddInvocationHandler(i *iface.Interface, h handler.InvocationHandler) error {
	return d.registry.AddInvocationHandler(i, h)
}

// SetDefaultHandler sets the handler used for interfaces with no binding.
// Nil clears it.
func (d *Dispatcher) SetDefaultHandler(h handler.InvocationHandler) {
	d.registry.SetDefaultHandler(h)
}

// Invoke routes one invocation.
//
// Methods declared by iface.Object run on the dispatcher's identity and
// never reach a registered or default handler. Other methods go to the
// handler bound to decl, else to the default handler. The handler's result
// and error are returned as is.
func (d *Dispatcher) Invoke(decl *iface.Interface, m *iface.Method, receiver any, args []any) (any, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: method is nil", ErrInvalidArgument)
	}

	if d.metrics == nil && len(d.postHooks) == 0 {
		return d.dispatch(decl, m, receiver, args)
	}

	start := time.Now()
	result, err := d.dispatch(decl, m, receiver, args)
	d.observe(Invocation{Interface: decl, Method: m, Receiver: receiver, Args: args}, time.Since(start), result, err)
	return result, err
}

// Dispatch is Invoke taking an Invocation.
func (d *Dispatcher) Dispatch(inv Invocation) (any, error) {
	return d.Invoke(inv.Interface, inv.Method, inv.Receiver, inv.Args)
}

func (d *Dispatcher) dispatch(decl *iface.Interface, m *iface.Method, receiver any, args []any) (any, error) {
	if decl == iface.Object {
		return d.invokeIdentity(m, args)
	}

	h := d.registry.Resolve(decl)
	if h == nil {
		d.log.Debug("No invocation handler.", "interface", decl.String(), "method", m.String())
		return nil, &UnresolvedHandlerError{Interface: decl, Method: m}
	}
	return h.Invoke(receiver, m, args)
}

// observe records metrics and runs post-invoke hooks.
func (d *Dispatcher) observe(inv Invocation, elapsed time.Duration, result any, err error) {
	if d.metrics != nil {
		d.metrics.RecordInvoke(metricKey(inv.Interface, inv.Method), elapsed, err)
	}
	for _, h := range d.postHooks {
		h.PostInvoke(inv, result, err)
	}
}

func metricKey(decl *iface.Interface, m *iface.Method) string {
	return decl.String() + "." + m.Name
}

// RegisterPostHook adds a hook run after every invocation that returns.
// Like registration, it must not race with Invoke.
func (d *Dispatcher) RegisterPostHook(hook PostInvokeHook) {
	d.postHooks = append(d.postHooks, hook)
}

// Registry returns the handler registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Metrics returns the metrics collector (may be nil if disabled).
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Config returns the dispatcher configuration.
func (d *Dispatcher) Config() Config {
	return d.config
}
