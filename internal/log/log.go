// Package log is a trimmed adaptation of go-ethereum's log package: a
// structured, leveled Logger backed by log/slog, with a terminal handler
// that colorizes output when attached to a TTY and a plain JSON handler for
// production log shipping. Unlike the upstream package, this one never
// reaches for a hidden package-level default logger from deep inside
// business logic — every component is constructed with the Logger it should
// use, though a process-wide default is still provided for cmd/indexer's
// own top-level messages.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Logger is the interface every component depends on.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	With(ctx ...interface{}) Logger
}

const levelTrace = slog.Level(-8)

type logger struct {
	inner *slog.Logger
}

// NewLogger wraps an slog.Handler as a Logger.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) write(level slog.Level, msg string, ctx []interface{}) {
	l.inner.Log(context.Background(), level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(levelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(slog.LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(slog.LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(slog.LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(slog.LevelError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(slog.LevelError+4, msg, ctx)
	os.Exit(1)
}

func (l *logger) With(ctx ...interface{}) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

// NewTerminalHandler returns a handler tuned for humans: colorized level
// tags when useColor is true, aligned key=value pairs otherwise.
func NewTerminalHandler(w io.Writer, useColor bool) slog.Handler {
	return &terminalHandler{w: w, useColor: useColor, minLevel: slog.LevelInfo}
}

// NewTerminalHandlerWithLevel is NewTerminalHandler with an explicit minimum
// level (used by NewTTYAwareHandler).
func NewTerminalHandlerWithLevel(w io.Writer, minLevel slog.Level, useColor bool) slog.Handler {
	return &terminalHandler{w: w, useColor: useColor, minLevel: minLevel}
}

// JSONHandler returns a handler that emits one JSON object per line at
// debug level and above, suitable for log aggregation pipelines.
func JSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// JSONHandlerWithLevel is JSONHandler with an explicit minimum level.
func JSONHandlerWithLevel(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

type terminalHandler struct {
	w        io.Writer
	useColor bool
	minLevel slog.Level
	attrs    []slog.Attr
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

var levelTags = map[slog.Level]string{
	levelTrace:        "TRACE",
	slog.LevelDebug:   "DEBUG",
	slog.LevelInfo:    "INFO ",
	slog.LevelWarn:    "WARN ",
	slog.LevelError:   "ERROR",
	slog.LevelError + 4: "CRIT ",
}

var levelColors = map[slog.Level]int{
	levelTrace:          90,
	slog.LevelDebug:     36,
	slog.LevelInfo:      32,
	slog.LevelWarn:      33,
	slog.LevelError:     31,
	slog.LevelError + 4: 35,
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	tag := levelTags[r.Level]
	if tag == "" {
		tag = r.Level.String()
	}
	if h.useColor {
		tag = fmt.Sprintf("\x1b[%dm%s\x1b[0m", levelColors[r.Level], tag)
	}
	ts := r.Time.Format("01-02|15:04:05.000")
	line := fmt.Sprintf("%s [%s] %-40s", tag, ts, r.Message)

	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	_, err := fmt.Fprintln(h.w, line)
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := &terminalHandler{w: h.w, useColor: h.useColor, minLevel: h.minLevel}
	n.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return n
}

func (h *terminalHandler) WithGroup(_ string) slog.Handler { return h }

// NewTTYAwareHandler picks a terminal handler with color enabled if w looks
// like a real terminal (mattn/go-isatty), and wraps w in a colorable writer
// on platforms (Windows) where ANSI codes need translation.
func NewTTYAwareHandler(f *os.File, minLevel slog.Level) slog.Handler {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return NewTerminalHandlerWithLevel(colorable.NewColorable(f), minLevel, true)
	}
	return NewTerminalHandlerWithLevel(f, minLevel, false)
}

var defaultLogger = NewLogger(NewTTYAwareHandler(os.Stderr, slog.LevelInfo))

// SetDefault replaces the process-wide default logger used by the package
// level Info/Warn/Error/etc. helpers.
func SetDefault(l Logger) { defaultLogger = l }

func Trace(msg string, ctx ...interface{}) { defaultLogger.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { defaultLogger.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { defaultLogger.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { defaultLogger.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { defaultLogger.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { defaultLogger.Crit(msg, ctx...) }

// New returns the default logger with ctx bound as persistent attributes,
// mirroring geth's log.New(ctx...) idiom used at package scope
// (e.g. log.New("id", id) in eth/protocols/snap).
func New(ctx ...interface{}) Logger {
	return defaultLogger.With(ctx...)
}
