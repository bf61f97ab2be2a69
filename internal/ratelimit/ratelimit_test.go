package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_SecondRequestReturns429(t *testing.T) {
	handler := PerSecond(1, 1).Middleware(okHandler())

	req1 := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req1.RemoteAddr = "1.2.3.4:12345"
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)
	require.Equal(t, http.StatusOK, rr1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req2.RemoteAddr = "1.2.3.4:12345"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)

	assert.Equal(t, http.StatusTooManyRequests, rr2.Code)
	assert.Equal(t, "1", rr2.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, rr2.Body.String())
}

func TestMiddleware_DisabledWhenZero(t *testing.T) {
	handler := PerSecond(0, 0).Middleware(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "1.2.3.4:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, "request %d", i)
	}
}

func TestMiddleware_DifferentIPsIndependent(t *testing.T) {
	handler := PerSecond(1, 1).Middleware(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, addr)
	}
}

func TestPerMinuteBurst(t *testing.T) {
	l := PerMinute(10, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.1.1.1"), "request %d", i)
	}
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))
}

func TestNilLimiterAllows(t *testing.T) {
	var l *Limiter
	assert.True(t, l.Allow("x"))
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, PerMinute(0, 5))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	l := PerSecond(1000, 1000)
	for i := 0; i < sweepEvery-1; i++ {
		l.get(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	assert.Equal(t, sweepEvery-1, l.Len())

	// get never spends a token, so every bucket is full when the sweep runs
	l.get("10.9.9.9")
	assert.Equal(t, 0, l.Len())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:443"
	assert.Equal(t, "9.9.9.9", ClientIP(req))

	// A spoofed header must not mint a fresh bucket.
	req.Header.Set("X-Forwarded-For", "5.6.7.8, 10.0.0.1")
	req.Header.Set("X-Real-IP", "5.6.7.8")
	assert.Equal(t, "9.9.9.9", ClientIP(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", ClientIP(req))
}
