// Package logger builds the application slog.Logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls handler format, level and sinks.
type Options struct {
	Level  string
	Format string
	// File enables a rotated log file next to stdout when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Sentry forwards error records to the initialised sentry hub.
	Sentry bool
}

// Logger carries the slog logger together with its adjustable level.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *lumberjack.Logger
}

// New builds a Logger: format handler, masking, and an optional Sentry fan-out.
func New(opts Options) *Logger {
	return newWithWriter(opts, os.Stdout)
}

func newWithWriter(opts Options, stdout io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))

	var out io.Writer = stdout
	var file *lumberjack.Logger
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, file)
	}

	var base slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		base = tint.NewHandler(out, &tint.Options{
			Level:       level,
			TimeFormat:  time.RFC3339,
			NoColor:     file != nil || !colorTerminal(stdout),
			ReplaceAttr: highlightErrors,
		})
	} else {
		base = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}

	handler := slog.Handler(NewMaskingHandler(base))
	if opts.Sentry {
		sentryHandler := slogsentry.Option{Level: slog.LevelError}.NewSentryHandler()
		handler = slogmulti.Fanout(handler, NewMaskingHandler(sentryHandler))
	}

	return &Logger{Logger: slog.New(handler), level: level, file: file}
}

func colorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) && os.Getenv("TERM") != "dumb"
}

// highlightErrors paints error values red in text output.
func highlightErrors(_ []string, attr slog.Attr) slog.Attr {
	if _, ok := attr.Value.Any().(error); ok {
		return tint.Attr(9, attr)
	}
	return attr
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(raw string) {
	l.level.Set(ParseLevel(raw))
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close flushes the rotated file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
