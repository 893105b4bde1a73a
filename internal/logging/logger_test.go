package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextLoggingAttachesRunID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	ctx, id := WithRunID(context.Background())
	logger.With("league", "GB1").InfoContext(ctx, "sync finished", "matches", 10, "err", errors.New("boom"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, id, fields["run_id"])
	assert.Equal(t, "GB1", fields["league"])
	assert.EqualValues(t, 10, fields["matches"])
	assert.Equal(t, "boom", fields["err"])
}

func TestOddArgumentsDoNotPanic(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	logger.Warn("dangling", "key")
	logger.Warn("non-string key", 42, "value")

	require.Equal(t, 2, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap(), "key")
	assert.Contains(t, logs.All()[1].ContextMap(), "arg")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("whatever"))
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Info("no logger configured")
		logger.With("k", "v").Error("still fine")
	})
	assert.Empty(t, RunID(context.Background()))
}
