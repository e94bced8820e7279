package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/installer-endpoint/internal/api/http/ratelimit"
	repository "github.com/oshokin/installer-endpoint/internal/repository/script"
)

// newTestRepo writes content to install.ps1 in a temp dir and returns a repository for it.
func newTestRepo(t *testing.T, content string) *repository.FileRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "install.ps1")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return repository.NewFileRepository(path)
}

// TestRouter_MountsOnRoute serves the script only under the configured route.
func TestRouter_MountsOnRoute(t *testing.T) {
	t.Parallel()

	h := newRouter("/scripts/itraffic", newTestRepo(t, "Write-Host 1"), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scripts/itraffic?x=1", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Write-Host 1", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", http.NoBody))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestRouter_RootCatchesAll serves the script for any path when mounted on "/".
func TestRouter_RootCatchesAll(t *testing.T) {
	t.Parallel()

	h := newRouter("/", newTestRepo(t, "Write-Host 2"), nil)

	for _, target := range []string{"/", "/install", "/a/b/c"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code, target)
		require.Equal(t, "Write-Host 2", rec.Body.String(), target)
	}
}

// TestRouter_RateLimited applies the limiter when one is configured.
func TestRouter_RateLimited(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLimiter(1, time.Hour, 1)
	defer limiter.Close()

	h := newRouter("/", newTestRepo(t, "Write-Host 3"), limiter)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// TestStatusRecorder keeps the first status and counts bytes.
func TestStatusRecorder(t *testing.T) {
	t.Parallel()

	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	rec.WriteHeader(http.StatusNotFound)
	_, err := rec.Write([]byte("# ERROR\n"))
	require.NoError(t, err)

	require.Equal(t, http.StatusNotFound, rec.status)
	require.Equal(t, 8, rec.bytes)
	require.NotNil(t, rec.Unwrap())
}
