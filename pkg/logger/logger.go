// Package logger is the zerolog front end shared by every binary. Fields
// attached to a context travel with the request and are written on each
// entry emitted with that context.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const FormatConsole = "console"

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack adds a stack trace to warnings as well as errors.
	WarnStack bool
	// Format is "json" (default) or "console".
	Format string
	Output io.Writer
}

type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()

	return &Logger{base: base, warnStack: opts.WarnStack}
}

// ParseLevel maps a config string to a level, falling back to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.event(ctx, zerolog.DebugLevel).Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.event(ctx, zerolog.InfoLevel).Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	e := l.event(ctx, zerolog.WarnLevel)
	if l.warnStack {
		e = e.Str("stack", stack())
	}
	e.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	e := l.event(ctx, zerolog.ErrorLevel)
	if err != nil {
		e = e.Err(err)
	}
	e.Str("stack", stack()).Msg(msg)
}

// event returns nil when the level is filtered out; zerolog treats a nil
// event as a no-op.
func (l *Logger) event(ctx context.Context, level zerolog.Level) *zerolog.Event {
	e := l.base.WithLevel(level)
	if e == nil {
		return nil
	}
	for _, f := range fieldsFrom(ctx) {
		e = e.Interface(f.key, f.value)
	}
	return e
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
