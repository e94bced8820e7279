package ratelimit

import (
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/oshokin/installer-endpoint/internal/api/http/installer"
	"github.com/oshokin/installer-endpoint/internal/logger"
)

// RejectedMessage is the body written with a 429 response.
const RejectedMessage = "# ERROR: rate limit exceeded\n"

// Middleware limits requests per client IP before calling next.
func Middleware(l *Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := l.Allow(ClientIP(r))
		WriteHeaders(w.Header(), result)

		if result.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		logger.WarnKV(r.Context(), "Rate limit exceeded", "retry_after", result.RetryAfter)

		installer.SetHeaders(w.Header())
		w.WriteHeader(http.StatusTooManyRequests)

		_, _ = io.WriteString(w, RejectedMessage)
	})
}

// WriteHeaders sets the X-RateLimit-* headers, plus Retry-After when rejected.
func WriteHeaders(header http.Header, result Result) {
	header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

	if !result.Allowed {
		header.Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
}

// ClientIP returns the host part of the request's remote address.
// Forwarding headers are ignored since they are client controlled.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
