package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(t *testing.T, h http.Handler, addr string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/shop/manufacturers", nil)
	req.RemoteAddr = addr
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_WithinLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Limit: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		rec := hit(t, h, "198.51.100.7:40000")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d is within the limit", i+1)
	}
}

func TestRateLimit_Throttled(t *testing.T) {
	h := Wrap(okHandler(),
		InjectLogger(zap.NewNop()),
		RateLimit(RateLimitConfig{Limit: 2, Window: time.Minute}),
	)

	for range 2 {
		require.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7:40000").Code)
	}

	rec := hit(t, h, "198.51.100.7:40000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many requests")
}

func TestRateLimit_PerClient(t *testing.T) {
	h := RateLimit(RateLimitConfig{Limit: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7:40000").Code)
	assert.Equal(t, http.StatusOK, hit(t, h, "198.51.100.8:40000").Code, "another client has its own budget")
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "198.51.100.7:50000").Code, "same client, any port")
}

func TestRateLimit_SessionKey(t *testing.T) {
	cfg := RateLimitConfig{
		Limit:  1,
		Window: time.Minute,
		ClientKey: func(r *http.Request) string {
			c, err := r.Cookie("portal_session")
			if err != nil {
				return ""
			}
			return c.Value
		},
	}
	h := RateLimit(cfg)(okHandler())

	asSession := func(v string) func(*http.Request) {
		return func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "portal_session", Value: v})
		}
	}

	assert.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7:40000", asSession("sess-a")).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "198.51.100.8:40000", asSession("sess-a")).Code,
		"the key follows the session, not the address")
	assert.Equal(t, http.StatusOK, hit(t, h, "198.51.100.7:40000", asSession("sess-b")).Code)
}

func TestRateLimit_ForwardedFor(t *testing.T) {
	h := RateLimit(RateLimitConfig{Limit: 1, Window: time.Minute})(okHandler())

	forwarded := func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.50, 10.0.0.2")
	}

	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.2:1111", forwarded).Code)
	rec := hit(t, h, "10.0.0.3:2222", forwarded)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "the first forwarded hop identifies the client")
}

func TestLimiter_WindowSlides(t *testing.T) {
	l := newLimiter(RateLimitConfig{Limit: 2, Window: time.Minute})
	base := time.Unix(1756710000, 0).Truncate(time.Minute)

	_, ok := l.take("c", base)
	require.True(t, ok)
	_, ok = l.take("c", base.Add(time.Second))
	require.True(t, ok)

	retryIn, ok := l.take("c", base.Add(2*time.Second))
	require.False(t, ok)
	assert.Greater(t, retryIn, time.Duration(0))

	// Two full windows later the old counts no longer weigh in.
	_, ok = l.take("c", base.Add(2*time.Minute))
	assert.True(t, ok)
}

func TestLimiter_SweepEvictsQuietClients(t *testing.T) {
	l := newLimiter(RateLimitConfig{Limit: 5, Window: time.Minute})
	now := time.Now()

	_, ok := l.take("quiet", now)
	require.True(t, ok)
	l.sweep(now.Add(2*time.Minute + time.Second))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.clients)
}
