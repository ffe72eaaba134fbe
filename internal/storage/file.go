package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the document in a local file.
type FileStore struct {
	path string
}

// NewFileStore constructs a file backend for path.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("users file path is required")
	}
	return &FileStore{path: path}, nil
}

// Prepare creates the parent directory.
func (f *FileStore) Prepare(ctx context.Context) error {
	return os.MkdirAll(filepath.Dir(f.path), 0o755)
}

func (f *FileStore) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrAbsent
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the file atomically through a temporary file in the same
// directory.
func (f *FileStore) Write(ctx context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (f *FileStore) Name() string {
	return "file:" + f.path
}
