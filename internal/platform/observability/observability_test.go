package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tailor-market/api/internal/platform/requestctx"
)

func newRouter(logger *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Trace("tailor-prod"))
	r.Use(InjectLogger(logger))
	r.Use(RequestLogger())
	r.Use(Recoverer())
	return r
}

func TestRequestLogger_LogsCompletionWithRoute(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newRouter(zap.New(core))
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		requestctx.Logger(r.Context()).Info("handler ran")
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord_1", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	entries := logs.All()
	require.Len(t, entries, 2)

	handler := entries[0].ContextMap()
	assert.Equal(t, "handler ran", entries[0].Message)
	assert.NotEmpty(t, handler["request_id"])
	assert.Equal(t, "105445aa7843bc8bf206b12000100000", handler["trace_id"])
	assert.Equal(t, "projects/tailor-prod/traces/105445aa7843bc8bf206b12000100000", handler["logging.googleapis.com/trace"])

	done := entries[1]
	assert.Equal(t, "request completed", done.Message)
	assert.Equal(t, zapcore.WarnLevel, done.Level)
	assert.Equal(t, "/api/v1/orders/{orderId}", done.ContextMap()["route"])
	assert.EqualValues(t, http.StatusNotFound, done.ContextMap()["status"])
}

func TestRecoverer_WritesEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newRouter(zap.New(core))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal_server_error", body["error"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestParseCloudTraceContext(t *testing.T) {
	sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	require.True(t, ok)
	assert.True(t, sc.IsSampled())
	assert.True(t, sc.IsRemote())
	assert.Equal(t, "0000000000000001", sc.SpanID().String())
	assert.Equal(t, "105445aa7843bc8bf206b12000100000/1;o=1", formatCloudTraceContext(sc))

	for _, header := range []string{"", "nope", "105445aa7843bc8bf206b12000100000/abc", "xyz/1;o=1", "105445aa7843bc8bf206b12000100000/0"} {
		_, ok := parseCloudTraceContext(header)
		assert.False(t, ok, header)
	}
}

func TestServiceLogger_PrefersRequestLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.InfoLevel)
	reqCore, reqLogs := observer.New(zapcore.InfoLevel)
	log := ServiceLogger(zap.New(baseCore), "checkout")

	log(context.Background(), "checkout.completed", map[string]any{"orders": 1})
	log(requestctx.WithLogger(context.Background(), zap.New(reqCore)), "checkout.failed", map[string]any{"error": "boom"})

	require.Equal(t, 1, baseLogs.Len())
	assert.Equal(t, "checkout", baseLogs.All()[0].LoggerName)
	require.Equal(t, 1, reqLogs.Len())
	assert.Equal(t, zapcore.WarnLevel, reqLogs.All()[0].Level)
	assert.Equal(t, "boom", reqLogs.All()[0].ContextMap()["error"])
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("chatty")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

