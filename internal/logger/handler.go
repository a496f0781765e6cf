package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	purple = "\033[35m"
	cyan   = "\033[36m"
	gray   = "\033[37m"
	white  = "\033[97m"
)

// PrettyHandler writes one colored line per record for local development.
type PrettyHandler struct {
	opts  slog.HandlerOptions
	w     io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{
		opts: *opts,
		w:    w,
		mu:   &sync.Mutex{},
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(h.w, "%s%s%s %s%-5s%s %s%s%s",
		gray, r.Time.Format("15:04:05.000"), reset,
		levelColor(r.Level), r.Level.String(), reset,
		white, r.Message, reset)

	for _, a := range h.attrs {
		h.printAttr(h.group, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.printAttr(h.group, a)
		return true
	})

	_, err := fmt.Fprintln(h.w)
	return err
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return red
	case level >= slog.LevelWarn:
		return yellow
	case level >= slog.LevelInfo:
		return green
	default:
		return purple
	}
}

func (h *PrettyHandler) printAttr(prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, member := range a.Value.Group() {
			h.printAttr(key, member)
		}
		return
	}

	val := a.Value.Any()
	if t, ok := val.(time.Time); ok {
		val = t.Format(time.RFC3339)
	}

	keyColor := cyan
	if a.Key == "error" {
		keyColor = red
	}
	fmt.Fprintf(h.w, " %s%s%s=%v", keyColor, key, reset, val)
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		merged = append(merged, a)
	}

	clone := *h
	clone.attrs = merged
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	if clone.group != "" {
		clone.group = clone.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}
