package ratelimit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestMiddleware_RejectsOverLimit passes the first request and rejects the second.
func TestMiddleware_RejectsOverLimit(t *testing.T) {
	t.Parallel()

	l := NewLimiter(1, time.Hour, 1)
	defer l.Close()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "Write-Host 1")
	})
	h := Middleware(l, next)

	request := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "192.0.2.10:51234"

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec
	}

	rec := request()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Write-Host 1", rec.Body.String())
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	require.Empty(t, rec.Header().Get("Retry-After"))

	rec = request()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, RejectedMessage, rec.Body.String())
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

// TestClientIP strips the port and tolerates bare addresses.
func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)

	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", ClientIP(req))

	req.RemoteAddr = "192.0.2.1"
	require.Equal(t, "192.0.2.1", ClientIP(req))
}
