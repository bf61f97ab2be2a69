// Package ratelimit is a process-local per-key token bucket. State is lost on
// restart and is not shared between instances, so it only throttles; it never
// enforces quotas.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/orbitha/orbitha/internal/httpx"
)

const sweepEvery = 1000

// Limiter hands out one token bucket per key.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	counter  atomic.Int64
}

// New returns nil when limit is not positive; a nil Limiter allows everything.
func New(limit rate.Limit, burst int) *Limiter {
	if limit <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = max(1, int(limit))
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// PerSecond builds a limiter refilling rps tokens per second.
func PerSecond(rps, burst int) *Limiter {
	return New(rate.Limit(rps), burst)
}

// PerMinute builds a limiter refilling n tokens per minute.
func PerMinute(n, burst int) *Limiter {
	if n <= 0 {
		return nil
	}
	return New(rate.Every(time.Minute/time.Duration(n)), burst)
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.get(key).Allow()
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}

	if l.counter.Add(1)%sweepEvery == 0 {
		l.sweep()
	}
	return lim
}

// sweep drops idle keys, recognisable by a full bucket. Callers hold mu.
func (l *Limiter) sweep() {
	for key, lim := range l.limiters {
		if lim.Tokens() >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
}

// Middleware throttles by client IP. A nil Limiter returns next unchanged.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			httpx.WriteError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP is the host part of RemoteAddr. Forwarding headers are never read
// here; behind a trusted proxy, middleware.RealIP rewrites RemoteAddr first.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
