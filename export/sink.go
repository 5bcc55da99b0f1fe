package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Sink stores an exported object under key and returns where it was written.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) (location string, err error)
	fmt.Stringer
}

// Notifier announces a finished run.
type Notifier interface {
	Notify(ctx context.Context, summary *Summary) error
}

// FileSink writes objects below a directory of an afero filesystem.
type FileSink struct {
	fs  afero.Fs
	dir string
}

var _ Sink = (*FileSink)(nil)

// NewFileSink returns a sink writing below dir. A nil fs means the OS
// filesystem.
func NewFileSink(fs afero.Fs, dir string) *FileSink {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &FileSink{fs: fs, dir: dir}
}

// Put writes data to dir/key, creating parent directories as needed.
func (s *FileSink) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Join(s.dir, filepath.FromSlash(key))

	if err := s.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := afero.WriteFile(s.fs, name, data, os.FileMode(0o644)); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return name, nil
}

func (s *FileSink) String() string {
	return "file:" + s.dir
}
