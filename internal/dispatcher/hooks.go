package dispatcher

import "github.com/dshills/composite/internal/logger"

// PostInvokeHook is called after an invocation returns.
// It observes the outcome and cannot change what the caller receives.
type PostInvokeHook interface {
	PostInvoke(inv Invocation, result any, err error)
}

// PostInvokeFunc is a function adapter for PostInvokeHook.
type PostInvokeFunc func(inv Invocation, result any, err error)

// PostInvoke implements PostInvokeHook.
func (f PostInvokeFunc) PostInvoke(inv Invocation, result any, err error) {
	f(inv, result, err)
}

// LoggingHook logs every invocation at debug level and failures at warn.
type LoggingHook struct {
	log *logger.Logger
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(log *logger.Logger) *LoggingHook {
	return &LoggingHook{log: log}
}

// PostInvoke logs the invocation.
func (h *LoggingHook) PostInvoke(inv Invocation, result any, err error) {
	if h.log == nil {
		return
	}
	if err != nil {
		h.log.Warn("Invocation failed.", "interface", inv.Interface.String(), "method", inv.Method.String(), "error", err)
		return
	}
	h.log.Debug("Invocation complete.", "interface", inv.Interface.String(), "method", inv.Method.String(), "args", len(inv.Args))
}
