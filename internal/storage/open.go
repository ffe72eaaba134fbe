package storage

import (
	"context"
	"fmt"

	"github.com/acp-registry/apiserver/config"
	"github.com/acp-registry/apiserver/internal/db"
)

// Backend names accepted in config.StorageConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendGist     = "gist"
	BackendMinio    = "minio"
	BackendGCS      = "gcs"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// Open builds the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg config.Config) (*Storage, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	return NewStorage(backend), nil
}

func openBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	document := cfg.Storage.Document

	switch cfg.Storage.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		return NewFileStore(cfg.Storage.File)
	case BackendGist:
		return NewGistStore(cfg.Gist, document, nil)
	case BackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return NewObjectDocument(client, document)
	case BackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return NewObjectDocument(client, document)
	case BackendPostgres:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(conn, document)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return store, nil
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, document)
	case BackendMongo:
		return NewMongoStore(ctx, cfg.Mongo, document)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
