// Package luahandler implements invocation handlers with Lua scripts.
//
// A script implements a method either as a function in a table named after
// the declaring interface or as a global function named after the method:
//
//	Reader = {}
//	function Reader.Read(n) return string.rep("x", n) end
//
//	function Write(data) return #data end
//
// The table form wins when both exist. Arguments are converted to Lua
// values; results are converted back. No result gives nil, one result gives
// that value and several give a []any. A Lua error is returned unchanged as
// a *lua.ApiError.
//
// Scripts run in a sandbox: only the base, table, string and math libraries
// are open, the file and string loaders are removed, and require only
// serves those libraries. Capabilities open os or io.
package luahandler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/composite/internal/iface"
	"github.com/dshills/composite/internal/logger"
)

// DefaultExecutionTimeout bounds each call into the script.
const DefaultExecutionTimeout = 5 * time.Second

// Handler is an invocation handler backed by one Lua state.
//
// gopher-lua states are single-threaded; Handler serializes calls with a
// mutex, so one Handler may be bound to several interfaces and invoked
// from several goroutines.
type Handler struct {
	mu sync.Mutex
	L  *lua.LState

	name    string
	timeout time.Duration
	ctx     context.Context
	caps    map[Capability]bool
	log     *logger.Logger

	closed bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithExecutionTimeout sets the per-call timeout. Zero disables it.
func WithExecutionTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

// WithCapability opens a library the sandbox keeps closed by default.
func WithCapability(c Capability) Option {
	return func(h *Handler) {
		h.caps[c] = true
	}
}

// WithContext sets the context every call derives from. Cancelling it
// aborts running and future calls.
func WithContext(ctx context.Context) Option {
	return func(h *Handler) {
		h.ctx = ctx
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

// WithName sets the chunk name used in Lua error messages.
func WithName(name string) Option {
	return func(h *Handler) {
		h.name = name
	}
}

// New loads source into a fresh sandboxed state and runs its top level.
func New(source string, opts ...Option) (*Handler, error) {
	h := &Handler{
		name:    "<script>",
		timeout: DefaultExecutionTimeout,
		ctx:     context.Background(),
		caps:    make(map[Capability]bool),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(h.L, h.caps)
	installSandbox(h.L, h.caps)

	if err := h.load(source); err != nil {
		h.L.Close()
		return nil, fmt.Errorf("loading %s: %w", h.name, err)
	}

	h.log.Debug("Loaded Lua handler.", "script", h.name)
	return h, nil
}

// NewFromFile loads the script at path. The path becomes the chunk name
// unless WithName is given.
func NewFromFile(path string, opts ...Option) (*Handler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	return New(string(data), append([]Option{WithName(path)}, opts...)...)
}

func (h *Handler) load(source string) error {
	fn, err := h.L.Load(strings.NewReader(source), h.name)
	if err != nil {
		return err
	}
	_, err = h.call(fn, nil)
	return err
}

// Name returns the chunk name.
func (h *Handler) Name() string {
	return h.name
}

// Invoke implements handler.InvocationHandler. The receiver is not passed
// to the script.
func (h *Handler) Invoke(receiver any, m *iface.Method, args []any) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrStateClosed
	}

	fn := h.lookup(m)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s has no %s", ErrNoFunction, h.name, m)
	}

	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = toLua(h.L, a)
	}

	results, err := h.call(fn, largs)
	if err != nil {
		return nil, err
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return toGo(results[0]), nil
	}
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = toGo(r)
	}
	return out, nil
}

// Implements reports whether the script defines a function for m.
func (h *Handler) Implements(m *iface.Method) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	return h.lookup(m) != nil
}

// Missing returns the methods in the closure of i that the script has no
// function for, as Interface.Method strings.
func (h *Handler) Missing(i *iface.Interface) []string {
	var missing []string
	iface.Walk(i, func(it *iface.Interface) {
		for _, m := range it.Methods() {
			if !h.Implements(m) {
				missing = append(missing, it.Name()+"."+m.Name)
			}
		}
	})
	return missing
}

// lookup finds the function for m. Callers hold h.mu.
func (h *Handler) lookup(m *iface.Method) *lua.LFunction {
	if decl := m.Interface(); decl != nil {
		if tbl, ok := h.L.GetGlobal(decl.Name()).(*lua.LTable); ok {
			if fn, ok := tbl.RawGetString(m.Name).(*lua.LFunction); ok {
				return fn
			}
		}
	}
	if fn, ok := h.L.GetGlobal(m.Name).(*lua.LFunction); ok {
		return fn
	}
	return nil
}

// call runs fn under the execution timeout and returns its results.
// Callers hold h.mu.
func (h *Handler) call(fn *lua.LFunction, args []lua.LValue) ([]lua.LValue, error) {
	ctx := h.ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	if ctx.Done() != nil {
		h.L.SetContext(ctx)
		defer h.L.RemoveContext()
	}

	top := h.L.GetTop()
	h.L.Push(fn)
	for _, a := range args {
		h.L.Push(a)
	}

	if err := h.L.PCall(len(args), lua.MultRet, nil); err != nil {
		h.L.SetTop(top)
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) && h.ctx.Err() == nil {
				return nil, fmt.Errorf("%w: %s after %s", ErrExecutionTimeout, h.name, h.timeout)
			}
			return nil, fmt.Errorf("%s: %w", h.name, ctxErr)
		}
		return nil, err
	}

	n := h.L.GetTop() - top
	results := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = h.L.Get(top + i + 1)
	}
	h.L.SetTop(top)
	return results, nil
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.L.Close()
	h.closed = true
	return nil
}
