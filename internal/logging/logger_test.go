package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger(debug bool) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWithWriter(&buf, debug, true), &buf
}

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	secret := Secret("hunter2")

	tests := []struct {
		name   string
		format string
	}{
		{name: "%s", format: "%s"},
		{name: "%v", format: "%v"},
		{name: "%+v", format: "%+v"},
		{name: "%#v", format: "%#v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := fmt.Sprintf(tt.format, secret)
			assert.Equal(t, "[REDACTED]", out)
		})
	}
}

func TestLoggerSecretRedaction(t *testing.T) {
	t.Parallel()
	logger, buf := newBufferLogger(true)

	logger.Info("Connecting with password %s", Secret("s3cr3t-value"))
	logger.Warn("Token %v rejected", Secret("tok-123456"))
	logger.Error("Key %s invalid", Secret("key-abcdef"))
	logger.Debug("Payload %s", Secret("payload-xyz"))

	out := buf.String()
	for _, s := range []string{"s3cr3t-value", "tok-123456", "key-abcdef", "payload-xyz"} {
		assert.NotContains(t, out, s)
	}
	assert.Equal(t, 4, strings.Count(out, "[REDACTED]"))
}

func TestLoggerDebugMode(t *testing.T) {
	t.Parallel()

	quiet, quietBuf := newBufferLogger(false)
	quiet.Debug("hidden %d", 1)
	assert.Empty(t, quietBuf.String())
	assert.False(t, quiet.IsDebug())

	loud, loudBuf := newBufferLogger(true)
	loud.Debug("shown %d", 2)
	assert.Equal(t, "[DEBUG] shown 2\n", loudBuf.String())
	assert.True(t, loud.IsDebug())
}

func TestLoggerLevels(t *testing.T) {
	t.Parallel()
	logger, buf := newBufferLogger(false)

	logger.Info("cached %s", "prod/db")
	logger.Warn("refreshing %s", "prod/db")
	logger.Error("fetch failed for %s", "prod/db")

	assert.Equal(t, "✓ cached prod/db\n⚠ refreshing prod/db\n✗ fetch failed for prod/db\n", buf.String())
}

func TestLoggerColorOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, false)
	logger.Warn("careful")
	assert.Equal(t, "\033[33m⚠\033[0m careful\n", buf.String())
}

func TestRedactFunction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		secrets []string
		want    string
	}{
		{
			name:    "single secret",
			input:   "password=hunter22",
			secrets: []string{"hunter22"},
			want:    "password=[REDACTED]",
		},
		{
			name:    "multiple occurrences",
			input:   "a=tok1234 b=tok1234",
			secrets: []string{"tok1234"},
			want:    "a=[REDACTED] b=[REDACTED]",
		},
		{
			name:    "short values are left alone",
			input:   "id=abc",
			secrets: []string{"abc", ""},
			want:    "id=abc",
		},
		{
			name:    "dsn password",
			input:   "postgres://app:pa55word@db:5432/cache",
			secrets: []string{"pa55word"},
			want:    "postgres://app:[REDACTED]@db:5432/cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Redact(tt.input, tt.secrets))
		})
	}
}
