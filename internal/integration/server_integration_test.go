package integration

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/installer-endpoint/internal/config"
)

// readBody reads and closes the response body.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}

// TestServer_ServesScriptOverHTTP fetches the script and then observes its removal.
func TestServer_ServesScriptOverHTTP(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "install.ps1")
	require.NoError(t, os.WriteFile(scriptPath, []byte(`Write-Host "hello"`), 0o600))

	addr := reservePort(t)
	startServer(t, &config.Config{
		ListenAddress: addr,
		Route:         "/scripts/itraffic",
		ScriptDir:     dir,
	})

	url := "http://" + addr + "/scripts/itraffic"

	resp := get(t, http.MethodGet, url)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	require.Equal(t, "no-cache, must-revalidate", resp.Header.Get("Cache-Control"))
	require.Equal(t, "Sat, 26 Jul 1997 05:00:00 GMT", resp.Header.Get("Expires"))
	require.Equal(t, `Write-Host "hello"`, readBody(t, resp))

	resp = get(t, http.MethodPost, url)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `Write-Host "hello"`, readBody(t, resp))

	require.NoError(t, os.Remove(scriptPath))

	resp = get(t, http.MethodGet, url)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "# ERROR: install.ps1 not found\n", readBody(t, resp))
}

// TestServer_RateLimit rejects a client that exceeds its burst.
func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "install.ps1"), []byte("Write-Host 1"), 0o600))

	addr := reservePort(t)
	startServer(t, &config.Config{
		ListenAddress: addr,
		ScriptDir:     dir,
		RateLimit:     1,
		RateBurst:     2,
	})

	url := "http://" + addr + "/"

	for range 2 {
		resp := get(t, http.MethodGet, url)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		readBody(t, resp)
	}

	resp := get(t, http.MethodGet, url)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.Equal(t, "# ERROR: rate limit exceeded\n", readBody(t, resp))
}
