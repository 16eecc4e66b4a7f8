// Package blob fetches the corpus table from object storage or the local filesystem.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FileSource reads the corpus from a local file. Useful for development and for the
// corpus subcommand.
type FileSource struct {
	Path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch opens the file.
func (s *FileSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open corpus file: %w", err)
	}
	return f, nil
}

// String describes the source for logs.
func (s *FileSource) String() string {
	return "file://" + s.Path
}
