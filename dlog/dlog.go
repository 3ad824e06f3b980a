// Package dlog implements dhstore's leveled logger: four levels
// (Warn/Info/Debug/Trace), ANSI-colored when the destination is a
// terminal, with Trace-level calls additionally able to dump an
// arbitrary Go value via go-spew. There is no structured/JSON mode;
// dhstore is a CLI tool, not a long-running service, so a
// human-readable stream is what its operators actually read.
package dlog

import (
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

// Level is a logger verbosity threshold, ordered from quietest to
// loudest.
type Level int

const (
	Warn Level = iota
	Info
	Debug
	Trace
)

// ParseLevel maps a config/flag string to a Level, defaulting to Warn
// for an unrecognized value.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return Trace
	case "debug":
		return Debug
	case "info":
		return Info
	default:
		return Warn
	}
}

var levelColor = map[Level]string{
	Warn:  ansi.ColorCode("red+b"),
	Info:  ansi.ColorCode("cyan"),
	Debug: ansi.ColorCode("yellow"),
	Trace: ansi.ColorCode("black+h"),
}

var levelName = map[Level]string{
	Warn:  "WARN",
	Info:  "INFO",
	Debug: "DEBUG",
	Trace: "TRACE",
}

// Logger writes leveled messages to a single destination, one
// fmt.Fprintf call per message. It holds no lock of its own, so it
// does not serialize concurrent callers.
type Logger struct {
	out      io.Writer
	level    Level
	colorize bool
}

// New builds a Logger writing to w at the given threshold level. If w
// is *os.File and refers to a terminal, output is wrapped with
// go-colorable (for consistent ANSI handling across platforms) and
// colorized; otherwise it is plain text.
func New(w io.Writer, level Level) *Logger {
	colorize := false
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = colorable.NewColorable(f)
		colorize = true
	}
	return &Logger{out: w, level: level, colorize: colorize}
}

// NewStderr builds a Logger writing to os.Stderr at level.
func NewStderr(level Level) *Logger {
	return New(os.Stderr, level)
}

func (l *Logger) emit(level Level, format string, args ...interface{}) {
	if l == nil || level > l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.colorize {
		fmt.Fprintf(l.out, "%s[%s]%s %s\n", levelColor[level], levelName[level], ansi.Reset, msg)
		return
	}
	fmt.Fprintf(l.out, "[%s] %s\n", levelName[level], msg)
}

// Warn logs at Warn level: always visible unless logging is disabled
// entirely.
func (l *Logger) Warn(format string, args ...interface{}) { l.emit(Warn, format, args...) }

// Info logs at Info level: high-level operation milestones (bootstrap
// counts, GC summaries).
func (l *Logger) Info(format string, args ...interface{}) { l.emit(Info, format, args...) }

// Debug logs at Debug level: per-object/per-blob operational detail.
func (l *Logger) Debug(format string, args ...interface{}) { l.emit(Debug, format, args...) }

// Trace logs at Trace level with a go-spew dump of v appended, for the
// rare case where seeing the full structure of a decoded object is
// worth the noise.
func (l *Logger) Trace(v interface{}, format string, args ...interface{}) {
	if l == nil || Trace > l.level {
		return
	}
	l.emit(Trace, "%s\n%s", fmt.Sprintf(format, args...), spew.Sdump(v))
}
