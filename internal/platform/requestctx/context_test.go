package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerDefaultsToNop(t *testing.T) {
	assert.NotNil(t, Logger(context.Background()))
	assert.NotNil(t, Logger(WithLogger(context.Background(), nil)))
}

func TestLoggerRoundTrip(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	Logger(ctx).Info("checkout.completed", Fields(map[string]any{"orders": 2, "clientID": "client_1"})...)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "client_1", entries[0].ContextMap()["clientID"])
		assert.EqualValues(t, 2, entries[0].ContextMap()["orders"])
		assert.Equal(t, "clientID", entries[0].Context[0].Key)
	}
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", Sampled: true})
	info, ok := Trace(ctx)
	assert.True(t, ok)
	assert.True(t, info.Sampled)
	assert.Equal(t, "abc", TraceID(ctx))
}
