package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := NewLogger(&Config{Level: DebugLevel, Output: &bytes.Buffer{}})
		ctx := ContextWithLogger(context.Background(), expected)
		assert.Equal(t, expected, FromContext(ctx))
	})

	t.Run("Should return default logger when nothing is stored", func(t *testing.T) {
		require.NotNil(t, FromContext(context.Background()))
	})

	t.Run("Should return default logger when wrong type is stored", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerCtxKey, "not a logger")
		assert.Equal(t, GetDefault(), FromContext(ctx))
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write JSON key-values", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})
		l.With("session", "abc").Info("record stored", "fields", 15)
		out := buf.String()
		assert.Contains(t, out, `"msg":"record stored"`)
		assert.Contains(t, out, `"session":"abc"`)
		assert.Contains(t, out, `"fields":15`)
	})

	t.Run("Should drop messages below level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: WarnLevel, Output: &buf})
		l.Info("hidden")
		assert.Empty(t, buf.String())
	})
}

func TestLogLevelConversion(t *testing.T) {
	cases := map[LogLevel]int{DebugLevel: -4, InfoLevel: 0, WarnLevel: 4, ErrorLevel: 8, "WARN": 4, "bogus": 0}
	for lvl, want := range cases {
		assert.Equal(t, want, int(lvl.ToCharmlogLevel()), "level %s", lvl)
	}
}
