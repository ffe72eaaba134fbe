package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/acp-registry/apiserver/internal/metrics"
	"github.com/acp-registry/apiserver/internal/storage"
	"github.com/acp-registry/apiserver/types"
)

//go:generate mockgen -source=registry.go -destination=mocks/mocks.go -package=mocks DocumentStorage

// DocumentStorage reads and writes the raw registry document.
// Read returns storage.ErrAbsent when nothing has been written yet.
type DocumentStorage interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Registry loads and persists the registry document. It performs no locking:
// every call is an independent read or write against the storage.
type Registry struct {
	storage      DocumentStorage
	logger       *slog.Logger
	metrics      *metrics.Metrics
	strictDecode bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrictDecode makes a malformed document a StorageError instead of
// being read as an empty document.
func WithStrictDecode(strict bool) Option {
	return func(r *Registry) {
		r.strictDecode = strict
	}
}

// WithMetrics records storage timings on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry constructs a Registry over the given storage.
func NewRegistry(docs DocumentStorage, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{storage: docs, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadDocument returns the persisted document. A missing document yields an
// empty one. Content that is not JSON also yields an empty one unless strict
// decoding is enabled. JSON of the wrong shape is always a StorageError.
func (r *Registry) LoadDocument(ctx context.Context) (types.Document, error) {
	start := time.Now()
	data, err := r.storage.Read(ctx)
	if errors.Is(err, storage.ErrAbsent) {
		r.metrics.ObserveStorage("read", start, nil)
		return types.NewDocument(), nil
	}
	r.metrics.ObserveStorage("read", start, err)
	if err != nil {
		return types.Document{}, &StorageError{Op: "load", Err: err}
	}

	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Content that parses as JSON but not as a document would be
		// overwritten by the next mutation, so it is never masked.
		if r.strictDecode || json.Valid(data) {
			return types.Document{}, &StorageError{Op: "decode", Err: err}
		}
		r.logger.WarnContext(ctx, "registry document is malformed, treating as empty", "error", err)
		return types.NewDocument(), nil
	}
	doc.Normalize()
	return doc, nil
}

// ListActive returns the active users in approval order.
func (r *Registry) ListActive(ctx context.Context) ([]types.ActiveUser, error) {
	doc, err := r.LoadDocument(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Active, nil
}

// ListPending returns the pending users in submission order.
func (r *Registry) ListPending(ctx context.Context) ([]types.PendingUser, error) {
	doc, err := r.LoadDocument(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Pending, nil
}

// PersistDocument overwrites the stored document with doc.
func (r *Registry) PersistDocument(ctx context.Context, doc types.Document) error {
	doc.Normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}

	start := time.Now()
	err = r.storage.Write(ctx, data)
	r.metrics.ObserveStorage("write", start, err)
	if err != nil {
		return &StorageError{Op: "persist", Err: err}
	}
	return nil
}

// EnsureDocument writes an empty document when none exists yet.
func (r *Registry) EnsureDocument(ctx context.Context) error {
	_, err := r.storage.Read(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrAbsent) {
		return &StorageError{Op: "load", Err: err}
	}
	r.logger.InfoContext(ctx, "initialising empty registry document")
	return r.PersistDocument(ctx, types.NewDocument())
}
