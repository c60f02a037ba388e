package testutil

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLogger captures log output for validation in tests.
//
// It satisfies both secretcache.Logger and the leveled method set of
// internal/logging.Logger, so it can stand in wherever the cache logs. Tests
// use it to prove that payload values never reach log lines.
//
// Example usage:
//
//	logger := testutil.NewTestLogger(t)
//	c, _ := secretcache.New(remote, backend, cipher, secretcache.WithLogger(logger))
//	_, _ = c.GetSecret(ctx, "prod/db")
//	logger.AssertNotContains(t, "hunter2")
type TestLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
	debug  bool
}

// NewTestLogger creates a TestLogger that captures every level, including
// debug.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()
	return &TestLogger{debug: true}
}

// NewQuietTestLogger creates a TestLogger that drops debug messages.
func NewQuietTestLogger(t *testing.T) *TestLogger {
	t.Helper()
	return &TestLogger{}
}

func (l *TestLogger) write(marker, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(&l.buffer, "%s %s\n", marker, fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *TestLogger) Info(format string, args ...interface{}) { l.write("✓", format, args...) }

// Warn logs a warning message.
func (l *TestLogger) Warn(format string, args ...interface{}) { l.write("⚠", format, args...) }

// Error logs an error message.
func (l *TestLogger) Error(format string, args ...interface{}) { l.write("✗", format, args...) }

// Debug logs a debug message if debug capture is enabled.
func (l *TestLogger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.write("[DEBUG]", format, args...)
}

// GetOutput returns everything captured so far.
func (l *TestLogger) GetOutput() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buffer.String()
}

// Clear drops the captured output.
func (l *TestLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buffer.Reset()
}

// AssertContains asserts that the log output contains substr.
func (l *TestLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, l.GetOutput(), substr, "Expected log output to contain %q", substr)
}

// AssertNotContains asserts that the log output does NOT contain substr.
func (l *TestLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, l.GetOutput(), substr, "Expected log output to NOT contain %q", substr)
}

// AssertLogCount asserts how many lines were logged at level
// ("info", "warn", "error" or "debug").
func (l *TestLogger) AssertLogCount(t *testing.T, level string, count int) {
	t.Helper()

	markers := map[string]string{
		"info":  "✓ ",
		"warn":  "⚠ ",
		"error": "✗ ",
		"debug": "[DEBUG] ",
	}
	marker, ok := markers[level]
	if !ok {
		t.Fatalf("Unknown log level: %s", level)
	}

	got := 0
	for _, line := range strings.Split(l.GetOutput(), "\n") {
		if strings.HasPrefix(line, marker) {
			got++
		}
	}
	assert.Equal(t, count, got, "Expected %d %s log lines", count, level)
}
