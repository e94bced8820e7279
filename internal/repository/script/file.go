package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	domain "github.com/oshokin/installer-endpoint/internal/domain/script"
)

// FileRepository reads the script from a fixed path on disk.
type FileRepository struct {
	// path is the filesystem location of the script.
	path string
}

// NewFileRepository creates a repository reading the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the cleaned path the repository reads from.
func (r *FileRepository) Path() string {
	return r.path
}

// Name returns the file name of the script.
func (r *FileRepository) Name() string {
	return filepath.Base(r.path)
}

// Load reads the whole script from disk.
// It returns domain.ErrNotFound when the file is absent and wraps
// domain.ErrUnreadable for any other failure.
func (r *FileRepository) Load(ctx context.Context) (*domain.Script, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}

		return nil, fmt.Errorf("%w: read script file: %w", domain.ErrUnreadable, err)
	}

	return &domain.Script{
		Name:    r.Name(),
		Path:    r.path,
		Content: contents,
	}, nil
}

// Exists reports whether a regular file at the script path can be opened for
// reading, so it agrees with what Load would do for the same file.
func (r *FileRepository) Exists(_ context.Context) (bool, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return false, nil
		}

		return false, fmt.Errorf("open script file: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat script file: %w", err)
	}

	return info.Mode().IsRegular(), nil
}
