package script

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the script file does not exist.
	ErrNotFound = errors.New("script not found")
	// ErrUnreadable is returned when the script exists but cannot be read.
	ErrUnreadable = errors.New("script unreadable")
)

// Script is a static file served byte for byte.
type Script struct {
	// Name is the file name, e.g. install.ps1.
	Name string
	// Path is the full filesystem path the content was read from.
	Path string
	// Content holds the raw bytes exactly as stored on disk.
	Content []byte
}

// Size returns the content length in bytes.
func (s *Script) Size() int {
	if s == nil {
		return 0
	}

	return len(s.Content)
}

// NotFoundMessage is the plain-text body written when the named script is missing.
func NotFoundMessage(name string) string {
	return fmt.Sprintf("# ERROR: %s not found\n", name)
}

// UnreadableMessage is the plain-text body written when the named script cannot be read.
func UnreadableMessage(name string) string {
	return fmt.Sprintf("# ERROR: unable to read %s\n", name)
}
