package logging

import (
	"context"
	"log/slog"

	"github.com/thoreinstein/snapkeep/internal/errors"
)

// MultiHandler fans records out to several handlers. The CLI uses it to
// write the terminal handler and the --log-file JSON audit log from one
// logger.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a MultiHandler dispatching to handlers in order.
// Nil handlers are dropped and nested MultiHandlers are flattened.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	flat := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		switch h := h.(type) {
		case nil:
		case *MultiHandler:
			flat = append(flat, h.handlers...)
		default:
			flat = append(flat, h)
		}
	}
	return &MultiHandler{handlers: flat}
}

// Tee returns a handler writing to every non-nil handler. A single handler
// is returned unwrapped; none yields slog.DiscardHandler.
func Tee(handlers ...slog.Handler) slog.Handler {
	m := NewMultiHandler(handlers...)
	switch len(m.handlers) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return m.handlers[0]
	default:
		return m
	}
}

// Enabled reports whether any underlying handler accepts level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of r to every enabled handler. A failing handler,
// such as a log file on a full disk, does not stop the others; all errors
// are returned together.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		err = errors.CombineErrors(err, handler.Handle(ctx, r.Clone()))
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = fn(handler)
	}
	return &MultiHandler{handlers: handlers}
}

// AuditLevel is the level for the --log-file handler: the terminal level,
// but never above Info, so quiet scheduled runs still record what they did.
func AuditLevel(terminal slog.Level) slog.Level {
	return min(terminal, slog.LevelInfo)
}
