package installer

import (
	"context"
	"errors"
	"io"
	"net/http"

	domain "github.com/oshokin/installer-endpoint/internal/domain/script"
	"github.com/oshokin/installer-endpoint/internal/logger"
)

const (
	// ContentType is sent with every response of the endpoint.
	ContentType = "text/plain; charset=utf-8"
	// CacheControl disables caching by clients and proxies.
	CacheControl = "no-cache, must-revalidate"
	// Expires is a fixed date in the past that reinforces CacheControl.
	Expires = "Sat, 26 Jul 1997 05:00:00 GMT"
)

// Repository abstracts reading the script the handler depends on.
type Repository interface {
	Load(ctx context.Context) (*domain.Script, error)
	Name() string
}

// Handler serves the script bytes on every request, whatever the method.
type Handler struct {
	// repo reads the script from disk on each request.
	repo Repository
}

// NewHandler wires the provided repository into an http.Handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{
		repo: repo,
	}
}

// SetHeaders writes the plain-text, no-cache header set shared by all responses.
func SetHeaders(header http.Header) {
	header.Set("Content-Type", ContentType)
	header.Set("Cache-Control", CacheControl)
	header.Set("Expires", Expires)
}

// ServeHTTP writes the script content, a 404 when the file is missing,
// or a 500 when it exists but cannot be read.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	SetHeaders(w.Header())

	s, err := h.repo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		logger.WarnKV(ctx, "Script not found", "script", h.repo.Name())
		writeText(ctx, w, http.StatusNotFound, domain.NotFoundMessage(h.repo.Name()))

		return
	default:
		logger.ErrorKV(ctx, "Failed to read script", "script", h.repo.Name(), "error", err)
		writeText(ctx, w, http.StatusInternalServerError, domain.UnreadableMessage(h.repo.Name()))

		return
	}

	w.WriteHeader(http.StatusOK)

	if _, err = w.Write(s.Content); err != nil {
		logger.DebugKV(ctx, "Client went away while writing script", "error", err)
		return
	}

	logger.DebugKV(ctx, "Script served", "script", s.Name, "bytes", s.Size())
}

// writeText writes a one-line plain-text body with the given status.
func writeText(ctx context.Context, w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)

	if _, err := io.WriteString(w, body); err != nil {
		logger.DebugKV(ctx, "Client went away while writing error", "error", err)
	}
}
