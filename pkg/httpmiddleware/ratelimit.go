package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RateLimitConfig bounds how fast a single client may drive the portal.
type RateLimitConfig struct {
	// Limit is the number of requests a client gets per window.
	Limit int
	// Window is the length of the sliding window.
	Window time.Duration
	// ClientKey derives the throttling key from a request. When nil, the
	// client IP is used, trusting forwarding headers from the front proxy.
	ClientKey func(*http.Request) string
}

// clientWindow holds one client's request counts for the current window and
// the one before it. The pair approximates a true sliding window without
// keeping per-request timestamps.
type clientWindow struct {
	prev      int
	curr      int
	prevStart time.Time
	currStart time.Time
}

type limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientWindow
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.ClientKey == nil {
		cfg.ClientKey = clientIP
	}
	return &limiter{cfg: cfg, clients: make(map[string]*clientWindow)}
}

// take records one request for key and reports whether it fits the limit.
// When it does not, retryIn says how long until the window frees up.
func (l *limiter) take(key string, now time.Time) (retryIn time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cw, found := l.clients[key]
	if !found {
		cw = &clientWindow{currStart: now}
		l.clients[key] = cw
	}

	if now.Sub(cw.currStart) >= l.cfg.Window {
		cw.prev, cw.prevStart = cw.curr, cw.currStart
		cw.curr = 0
		cw.currStart = now.Truncate(l.cfg.Window)
		if now.Sub(cw.prevStart) >= 2*l.cfg.Window {
			cw.prev = 0
		}
	}

	// Weight the previous window by how much of it still overlaps the
	// sliding window ending now.
	carry := 1 - now.Sub(cw.currStart).Seconds()/l.cfg.Window.Seconds()
	if carry < 0 {
		carry = 0
	}
	weighted := float64(cw.prev)*carry + float64(cw.curr)

	if weighted >= float64(l.cfg.Limit) {
		retryIn = cw.currStart.Add(l.cfg.Window).Sub(now)
		if retryIn < 0 {
			retryIn = 0
		}
		return retryIn, false
	}
	cw.curr++
	return 0, true
}

// sweep drops clients that have been quiet for two full windows.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, cw := range l.clients {
		if now.Sub(cw.currStart) >= 2*l.cfg.Window {
			delete(l.clients, key)
		}
	}
}

func (l *limiter) startSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(2 * l.cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.sweep(now)
			}
		}
	}()
}

// RateLimit returns a middleware enforcing a per-client sliding window
// limit. Throttled requests get 429 with a Retry-After header and a short
// plain-text body; no portal page is rendered for them.
//
// This variant never evicts idle clients. Use RateLimitWithCleanup for a
// long-running server.
func RateLimit(cfg RateLimitConfig) Middleware {
	return limitMiddleware(newLimiter(cfg))
}

// RateLimitWithCleanup is RateLimit plus a background sweep that evicts
// clients quiet for two windows. The sweep stops when ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	l.startSweep(ctx)
	return limitMiddleware(l)
}

func limitMiddleware(l *limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.cfg.ClientKey(r)
			retryIn, ok := l.take(key, time.Now())
			if !ok {
				zctx.From(r.Context()).Warn("Client throttled",
					zap.String("client", key),
					zap.String("path", r.URL.Path),
					zap.Duration("retry_in", retryIn),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryIn.Seconds()))))
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys the limiter by client address: the first X-Forwarded-For
// hop, then X-Real-IP, then the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
