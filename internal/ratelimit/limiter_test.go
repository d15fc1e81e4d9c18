package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmaster/internal/logging"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)

	// Другой ключ считается отдельно.
	res, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Новое окно.
	now = now.Add(time.Minute)
	res, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestMemoryLimiter_Defaults(t *testing.T) {
	l := NewMemoryLimiter(0, 0)
	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestMiddleware_RejectsAfterLimit(t *testing.T) {
	l := NewMemoryLimiter(100, 15*time.Minute)
	h := Middleware(l, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 100; i++ {
		rec := send()
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
	last := send()
	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "100", last.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "0", last.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
	assert.Equal(t, TooManyRequestsMessage, body["error"])
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (*Result, error) {
	return nil, errors.New("redis down")
}

func TestMiddleware_FailsOpen(t *testing.T) {
	h := Middleware(brokenLimiter{}, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	assert.Equal(t, "192.168.1.5", ClientIP(req))

	req.RemoteAddr = "192.168.1.5"
	assert.Equal(t, "192.168.1.5", ClientIP(req))
}

// TestRedisLimiter требует живой Redis (REDIS_ADDR), иначе пропускается.
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	l := NewRedisLimiter(client, "taskmaster:test:", 2, time.Minute)
	key := "ip-" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { _ = l.Reset(ctx, key) })

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1-i, res.Remaining)
	}
	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.ResetAt.After(time.Now()))
}
