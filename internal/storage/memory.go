package storage

import (
	"context"
	"sync"
)

// Memory keeps the document in process memory.
type Memory struct {
	mu      sync.Mutex
	data    []byte
	present bool
	writes  int
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return nil, ErrAbsent
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *Memory) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data[:0:0], data...)
	m.present = true
	m.writes++
	return nil
}

func (m *Memory) Name() string {
	return "memory"
}

// Writes returns how many times the document has been written.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
