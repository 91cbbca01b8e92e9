package idempotency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailor-market/api/internal/platform/auth"
)

func newCountingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"call":%d,"body":%s}`, n, body)
	})
}

func serve(t *testing.T, h http.Handler, uid, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(HeaderName, key)
	}
	if uid != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareReplaysCompletedResponse(t *testing.T) {
	var calls int32
	h := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusCreated))

	first := serve(t, h, "user-1", "key-1", `{"a":1}`)
	second := serve(t, h, "user-1", "key-1", `{"a":1}`)

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(replayHeaderName))
	assert.Empty(t, first.Header().Get(replayHeaderName))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
}

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	var calls int32
	h := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusCreated))

	serve(t, h, "user-1", "", `{}`)
	serve(t, h, "user-1", "", `{}`)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMiddlewareScopesKeysPerUser(t *testing.T) {
	var calls int32
	h := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusCreated))

	serve(t, h, "user-1", "shared", `{}`)
	rec := serve(t, h, "user-2", "shared", `{}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMiddlewareRejectsReusedKeyWithDifferentBody(t *testing.T) {
	var calls int32
	h := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusCreated))

	serve(t, h, "user-1", "key-1", `{"a":1}`)
	rec := serve(t, h, "user-1", "key-1", `{"a":2}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "idempotency_key_reused")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMiddlewareReleasesKeyOnServerError(t *testing.T) {
	var calls int32
	h := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusServiceUnavailable))

	serve(t, h, "user-1", "key-1", `{}`)
	rec := serve(t, h, "user-1", "key-1", `{}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get(replayHeaderName))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMiddlewareStoresClientErrors(t *testing.T) {
	var calls int32
	h := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusBadRequest))

	serve(t, h, "user-1", "key-1", `{}`)
	rec := serve(t, h, "user-1", "key-1", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(replayHeaderName))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMiddlewareRejectsInFlightKey(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h := Middleware(store, WithClock(func() time.Time { return now }))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while the key is in flight")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	fingerprint := requestFingerprint(req, "user-1", []byte(`{}`))
	_, state, err := store.Reserve(context.Background(), "user-1:key-1", fingerprint, now, time.Hour)
	require.NoError(t, err)
	require.Equal(t, StateAcquired, state)

	rec := serve(t, h, "user-1", "key-1", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "idempotency_in_progress")
}

func TestMiddlewareExpiredKeyRunsAgain(t *testing.T) {
	var calls int32
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h := Middleware(NewMemoryStore(),
		WithTTL(time.Minute),
		WithClock(func() time.Time { return now }),
	)(newCountingHandler(&calls, http.StatusCreated))

	serve(t, h, "user-1", "key-1", `{}`)
	now = now.Add(2 * time.Minute)
	rec := serve(t, h, "user-1", "key-1", `{}`)

	assert.Empty(t, rec.Header().Get(replayHeaderName))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMiddlewareStoreFailure(t *testing.T) {
	h := Middleware(failingStore{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when the store fails")
	}))

	rec := serve(t, h, "user-1", "key-1", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddlewareRejectsOversizedKey(t *testing.T) {
	var calls int32
	h := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusCreated))

	rec := serve(t, h, "user-1", strings.Repeat("k", maxKeyLength+1), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

type failingStore struct{}

func (failingStore) Reserve(context.Context, string, string, time.Time, time.Duration) (Record, State, error) {
	return Record{}, 0, errors.New("store down")
}

func (failingStore) Complete(context.Context, string, Record) error { return nil }

func (failingStore) Release(context.Context, string) error { return nil }
