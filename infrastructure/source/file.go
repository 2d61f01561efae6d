package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ahrav/go-aipi/internal/ports"
)

// FileSource reads a dataset from the local filesystem. Its version is
// derived from the file's modification time and size, so an unchanged file
// is not read again.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: filepath.Clean(path)}
}

// Location returns the file path.
func (f *FileSource) Location() string { return f.path }

// Fetch reads the file unless knownVersion still matches it.
func (f *FileSource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	if err := ctx.Err(); err != nil {
		return ports.Payload{}, ports.NewSourceError("Fetch", f.path, err)
	}

	info, err := os.Stat(f.path)
	if err != nil {
		return ports.Payload{}, f.wrap(err)
	}
	if info.IsDir() {
		return ports.Payload{}, ports.NewSourceError("Fetch", f.path,
			fmt.Errorf("%w: is a directory", ports.ErrInvalidResponse))
	}

	version := fmt.Sprintf("file:%d-%d", info.ModTime().UnixNano(), info.Size())
	if knownVersion != "" && knownVersion == version {
		return ports.Payload{Version: version, NotModified: true, Location: f.path}, nil
	}

	body, err := os.ReadFile(f.path)
	if err != nil {
		return ports.Payload{}, f.wrap(err)
	}
	return ports.Payload{Body: body, Version: version, Location: f.path}, nil
}

func (f *FileSource) wrap(err error) error {
	// A missing file will not appear by retrying; other I/O failures might
	// be transient.
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return ports.NewSourceError("Fetch", f.path, err)
	}
	return ports.NewSourceError("Fetch", f.path, fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err))
}
