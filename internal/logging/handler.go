package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Handler implements slog.Handler for terminal text output.
// Levels and keys are colorized when the writer supports it, and string
// values under the user's home directory are shortened to "~/...".
type Handler struct {
	opts   slog.HandlerOptions
	out    io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
	home   string

	timeColor  *color.Color
	levelColor map[slog.Level]*color.Color
	keyColor   *color.Color
}

// NewHandler creates a new terminal text handler that colors output when out
// is a color-capable terminal.
func NewHandler(out io.Writer, opts *slog.HandlerOptions) *Handler {
	return NewColorHandler(out, opts, ColorAuto)
}

// NewColorHandler is NewHandler with an explicit color mode.
func NewColorHandler(out io.Writer, opts *slog.HandlerOptions, mode ColorMode) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	home, _ := os.UserHomeDir()
	h := &Handler{
		opts: *opts,
		out:  out,
		mu:   &sync.Mutex{},
		home: home,
	}

	if mode.Enabled(out) {
		h.timeColor = forcedColor(color.FgHiBlack)
		h.keyColor = forcedColor(color.FgCyan)
		h.levelColor = map[slog.Level]*color.Color{
			LevelTrace:      forcedColor(color.FgHiBlack),
			slog.LevelDebug: forcedColor(color.FgMagenta),
			slog.LevelInfo:  forcedColor(color.FgGreen),
			slog.LevelWarn:  forcedColor(color.FgYellow),
			slog.LevelError: forcedColor(color.FgRed, color.Bold),
		}
	}

	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle writes "TIME LEVEL message key=value ..." followed by a newline.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(h.paint(h.timeColor, r.Time.Format(time.Kitchen)))
		b.WriteByte(' ')
	}

	fmt.Fprintf(&b, "%-5s ", h.paint(h.colorFor(r.Level), levelName(r.Level)))
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		h.appendAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *Handler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, prefix+a.Key+".", ga)
		}
		return
	}

	var value string
	switch a.Value.Kind() {
	case slog.KindString:
		value = h.shortenPath(a.Value.String())
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			value = err.Error()
		} else {
			value = fmt.Sprint(a.Value.Any())
		}
	default:
		value = a.Value.String()
	}

	fmt.Fprintf(b, " %s=%s", h.paint(h.keyColor, prefix+a.Key), value)
}

// shortenPath replaces a leading home directory with "~".
func (h *Handler) shortenPath(s string) string {
	if h.home == "" || !strings.HasPrefix(s, h.home) {
		return s
	}
	rest := s[len(h.home):]
	if rest == "" {
		return "~"
	}
	if rest[0] == filepath.Separator {
		return "~" + rest
	}
	return s
}

func (h *Handler) colorFor(level slog.Level) *color.Color {
	if h.levelColor == nil {
		return nil
	}
	switch {
	case level >= slog.LevelError:
		return h.levelColor[slog.LevelError]
	case level >= slog.LevelWarn:
		return h.levelColor[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return h.levelColor[slog.LevelInfo]
	case level >= slog.LevelDebug:
		return h.levelColor[slog.LevelDebug]
	default:
		return h.levelColor[LevelTrace]
	}
}

// forcedColor ignores color.NoColor; the handler has already decided.
func forcedColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

func (h *Handler) paint(c *color.Color, s string) string {
	if c == nil {
		return s
	}
	return c.Sprint(s)
}

func levelName(level slog.Level) string {
	if level < slog.LevelDebug {
		return "TRACE"
	}
	return level.String()
}

// WithAttrs returns a new Handler with the given attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := *h
	newH.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newH.attrs = append(newH.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		newH.attrs = append(newH.attrs, a)
	}
	return &newH
}

// WithGroup returns a new Handler whose subsequent keys are prefixed with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newH := *h
	newH.prefix = h.prefix + name + "."
	return &newH
}
