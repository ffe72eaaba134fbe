package storage

import (
	"context"
	"errors"
	"io"
)

// ErrAbsent is returned by Read when no document has been written yet.
var ErrAbsent = errors.New("document absent")

// Backend holds one raw registry document.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Name() string
}

// Preparer is implemented by backends that need one-time setup, such as
// creating a bucket or directory.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Storage wraps a Backend with a stable API.
type Storage struct {
	backend Backend
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// Read returns the current document, or ErrAbsent.
func (s *Storage) Read(ctx context.Context) ([]byte, error) {
	return s.backend.Read(ctx)
}

// Write replaces the document in full.
func (s *Storage) Write(ctx context.Context, data []byte) error {
	return s.backend.Write(ctx, data)
}

// Name describes the backend and document location.
func (s *Storage) Name() string {
	return s.backend.Name()
}

// Prepare runs the backend's one-time setup, if it has any.
func (s *Storage) Prepare(ctx context.Context) error {
	if p, ok := s.backend.(Preparer); ok {
		return p.Prepare(ctx)
	}
	return nil
}

// Close releases backend connections, if it holds any.
func (s *Storage) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
