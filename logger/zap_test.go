package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLoggerFrom(zap.New(core))

	l.Info("challenge received", map[string]any{
		"network": "base",
		"status":  402,
		"err":     errors.New("boom"),
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "challenge received", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "base", ctx["network"])
	assert.EqualValues(t, 402, ctx["status"])
	assert.Equal(t, "boom", ctx["err"])
}

func TestZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewZapLoggerFrom(zap.New(core))

	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	l.Warn("shown", nil)
	l.Error("shown", nil)

	assert.Equal(t, 2, logs.Len())
}

func TestNewZapLogger_UnknownLevel(t *testing.T) {
	l := NewZapLogger("verbose")
	require.NotNil(t, l)
	l.Info("ok", nil)
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopLogger{}, OrNoop(nil))

	l := NewZapLoggerFrom(zap.NewNop())
	assert.Same(t, l, OrNoop(l))
}
