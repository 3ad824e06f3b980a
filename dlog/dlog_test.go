package dlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, Trace, ParseLevel("trace"))
	assert.Equal(t, Debug, ParseLevel("debug"))
	assert.Equal(t, Info, ParseLevel("info"))
	assert.Equal(t, Warn, ParseLevel("warn"))
	assert.Equal(t, Warn, ParseLevel("nonsense"))
}

func TestLoggerRespectsThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Info)

	l.Debug("should not appear")
	assert.Empty(t, buf.String())

	l.Warn("disk is %s", "full")
	assert.Contains(t, buf.String(), "[WARN] disk is full")
}

func TestLoggerNotColorizedForNonTerminalWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Trace)
	assert.False(t, l.colorize)

	l.Info("hello %d", 1)
	out := buf.String()
	assert.Equal(t, "[INFO] hello 1\n", out)
	assert.False(t, strings.Contains(out, "\x1b["))
}

func TestTraceDumpsValue(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Trace)

	type thing struct{ Name string }
	l.Trace(thing{Name: "leaf"}, "decoded object")

	out := buf.String()
	assert.Contains(t, out, "[TRACE] decoded object")
	assert.Contains(t, out, "leaf")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Warn("no destination")
		l.Trace(42, "no destination")
	})
}
