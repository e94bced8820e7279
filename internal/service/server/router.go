package server

import (
	"net/http"
	"time"

	"github.com/oshokin/installer-endpoint/internal/api/http/installer"
	"github.com/oshokin/installer-endpoint/internal/api/http/ratelimit"
	"github.com/oshokin/installer-endpoint/internal/logger"
)

// newRouter mounts the installer endpoint on route for every HTTP method.
// A nil limiter disables rate limiting.
func newRouter(route string, repo installer.Repository, limiter *ratelimit.Limiter) http.Handler {
	var handler http.Handler = installer.NewHandler(repo)
	if limiter != nil {
		handler = ratelimit.Middleware(limiter, handler)
	}

	mux := http.NewServeMux()
	mux.Handle(route, handler)

	return accessLog(mux)
}

// accessLog attaches request fields to the context logger and logs one line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := logger.WithKV(r.Context(),
			"method", r.Method,
			"path", r.URL.Path,
			"ip", ratelimit.ClientIP(r),
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.InfoKV(ctx, "Request served",
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
			"user_agent", r.UserAgent(),
		)
	})
}

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter

	// status is the first status code written.
	status int
	// bytes counts body bytes written.
	bytes int
	// wroteHeader reports whether WriteHeader was already called.
	wroteHeader bool
}

// WriteHeader records the status before forwarding it.
func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}

	r.ResponseWriter.WriteHeader(status)
}

// Write counts body bytes.
func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true

	n, err := r.ResponseWriter.Write(b)
	r.bytes += n

	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
