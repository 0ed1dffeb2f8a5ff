package composition

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dshills/composite/internal/contract"
	"github.com/dshills/composite/internal/dispatcher"
	"github.com/dshills/composite/internal/dispatcher/handler"
	"github.com/dshills/composite/internal/iface"
	"github.com/dshills/composite/internal/logger"
	"github.com/dshills/composite/internal/luahandler"
	"github.com/dshills/composite/internal/proxy"
)

// DefaultDebounce is how long Watch waits for changes to settle.
const DefaultDebounce = 100 * time.Millisecond

type options struct {
	log      *logger.Logger
	typeName string
	config   dispatcher.Config
	debounce time.Duration
	onReload func(error)
}

// Option configures Build.
type Option func(*options)

// WithLogger sets the logger used by the assembly, its dispatcher and its
// Lua handlers.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithTypeName overrides the file's type.
func WithTypeName(name string) Option {
	return func(o *options) {
		o.typeName = name
	}
}

// WithDispatcherConfig sets the dispatcher configuration. Its Logger is
// replaced by the assembly's logger when unset.
func WithDispatcherConfig(config dispatcher.Config) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithDebounce sets how long Watch waits after the last change.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithReloadHook registers a function called after every reload Watch
// performs, with the reload's error.
func WithReloadHook(fn func(error)) Option {
	return func(o *options) {
		o.onReload = fn
	}
}

// Assembly is a built composition: a synchronized dispatcher with the
// file's bindings applied and the proxy type from its contract.
type Assembly struct {
	// Dispatcher routes calls from instances.
	Dispatcher *dispatcher.Synchronized
	// Type is the proxy type named by the file.
	Type *proxy.Type

	ctx      context.Context
	opts     options
	log      *logger.Logger
	contract []byte

	mu       sync.Mutex
	file     *File
	handlers map[*luahandler.Handler]string
	closed   bool
}

// Build defines the file's contract, loads one Lua handler per distinct
// script and applies the bindings in file order, then the default. Lua
// calls made by the assembly derive from ctx.
func Build(ctx context.Context, f *File, opts ...Option) (*Assembly, error) {
	o := options{
		log:      logger.Nop(),
		typeName: f.Type,
		config:   dispatcher.DefaultConfig(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.config.Logger == nil {
		o.config = o.config.WithLogger(o.log)
	}

	contractPath := f.ContractPath()
	data, err := os.ReadFile(contractPath)
	if err != nil {
		return nil, fmt.Errorf("reading contract %s: %w", contractPath, err)
	}

	typ, err := proxy.NewProvider(o.log).DefineType(o.typeName, data, nil, proxy.Domain{CodeSource: contractPath})
	if err != nil {
		return nil, err
	}

	a := &Assembly{
		Dispatcher: dispatcher.NewSynchronized(dispatcher.New(o.config)),
		Type:       typ,
		ctx:        ctx,
		opts:       o,
		log:        o.log.With("composition", f.Path),
		contract:   data,
		handlers:   make(map[*luahandler.Handler]string),
	}

	if err := a.apply(f); err != nil {
		return nil, err
	}

	a.log.Info("Built composition.", "type", typ.Name(), "bindings", len(f.Bindings), "default", f.Default != nil)
	return a, nil
}

// NewInstance creates a proxy instance backed by the assembly's dispatcher.
func (a *Assembly) NewInstance() *proxy.Instance {
	return a.Type.New(a.Dispatcher)
}

// File returns the composition file currently applied.
func (a *Assembly) File() *File {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file
}

// Reload re-reads the composition file and its scripts and applies the new
// bindings and default under one write lock. Interfaces the new file no
// longer mentions keep their previous handler. On error nothing changes.
//
// The contract is fixed at Build; a changed contract is logged and ignored.
func (a *Assembly) Reload(ctx context.Context) error {
	a.mu.Lock()
	path := a.file.Path
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := Load(path)
	if err != nil {
		return err
	}

	if data, err := os.ReadFile(f.ContractPath()); err == nil && !bytes.Equal(data, a.contract) {
		a.log.Warn("Contract changed; rebuild to apply it.", "contract", f.ContractPath())
	}

	if err := a.apply(f); err != nil {
		return err
	}
	a.log.Info("Reloaded composition.", "bindings", len(f.Bindings), "default", f.Default != nil)
	return nil
}

// pending is one resolved binding ready to apply.
type pending struct {
	iface   *iface.Interface
	handler *luahandler.Handler
}

// apply loads f's scripts and swaps them into the dispatcher.
func (a *Assembly) apply(f *File) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	loaded := make(map[string]*luahandler.Handler)
	fail := func(err error) error {
		for _, h := range loaded {
			_ = h.Close()
		}
		return err
	}

	load := func(script string) (*luahandler.Handler, error) {
		path := f.ScriptPath(script)
		if h, ok := loaded[path]; ok {
			return h, nil
		}
		h, err := luahandler.NewFromFile(path, a.luaOptions(f)...)
		if err != nil {
			return nil, err
		}
		loaded[path] = h
		return h, nil
	}

	catalog := a.Type.Catalog()
	bindings := make([]pending, 0, len(f.Bindings))
	for i, b := range f.Bindings {
		it, ok := catalog.Interface(b.Interface)
		if !ok {
			return fail(&BindingError{Index: i, Interface: b.Interface, Script: b.Script, Err: contract.ErrUnknownInterface})
		}
		h, err := load(b.Script)
		if err != nil {
			return fail(&BindingError{Index: i, Interface: b.Interface, Script: b.Script, Err: err})
		}
		if missing := h.Missing(it); len(missing) > 0 {
			a.log.Warn("Script does not implement every method.", "script", b.Script, "interface", b.Interface, "missing", missing)
		}
		bindings = append(bindings, pending{iface: it, handler: h})
	}

	var def *luahandler.Handler
	if f.Default != nil {
		h, err := load(f.Default.Script)
		if err != nil {
			return fail(&BindingError{Index: -1, Script: f.Default.Script, Err: err})
		}
		def = h
	}

	var live []handler.InvocationHandler
	err := a.Dispatcher.Update(func(d *dispatcher.Dispatcher) error {
		for _, b := range bindings {
			if err := d.AddInvocationHandler(b.iface, b.handler); err != nil {
				return err
			}
		}
		if def != nil {
			d.SetDefaultHandler(def)
		} else {
			d.SetDefaultHandler(nil)
		}
		live = d.Registry().Handlers()
		return nil
	})
	if err != nil {
		return fail(err)
	}

	bound := make(map[*luahandler.Handler]bool, len(live))
	for _, h := range live {
		if lh, ok := h.(*luahandler.Handler); ok {
			bound[lh] = true
		}
	}

	previous := a.handlers
	a.handlers = make(map[*luahandler.Handler]string)
	for path, h := range loaded {
		if bound[h] {
			a.handlers[h] = path
		} else {
			_ = h.Close()
		}
	}
	for h, path := range previous {
		if bound[h] {
			a.handlers[h] = path
			continue
		}
		a.log.Debug("Closing unbound script.", "script", path)
		_ = h.Close()
	}

	a.file = f
	return nil
}

func (a *Assembly) luaOptions(f *File) []luahandler.Option {
	opts := []luahandler.Option{
		luahandler.WithContext(a.ctx),
		luahandler.WithLogger(a.log),
	}
	if t := f.ExecutionTimeout(); t > 0 {
		opts = append(opts, luahandler.WithExecutionTimeout(t))
	}
	for _, c := range f.Capabilities {
		opts = append(opts, luahandler.WithCapability(luahandler.Capability(c)))
	}
	return opts
}

// Handlers returns the number of open Lua handlers.
func (a *Assembly) Handlers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.handlers)
}

// Close closes every Lua handler. Instances keep their dispatcher, but
// calls into closed scripts fail with luahandler.ErrStateClosed.
func (a *Assembly) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	for h := range a.handlers {
		_ = h.Close()
	}
	a.handlers = nil
	a.log.Debug("Closed composition.")
	return nil
}
