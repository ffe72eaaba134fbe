package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// PostgresStore keeps the document as one row of registry_documents.
type PostgresStore struct {
	db   *sql.DB
	name string
}

// NewPostgresStore constructs a Postgres backend for the document called name.
// The table is created by the migrate command.
func NewPostgresStore(db *sql.DB, name string) (*PostgresStore, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("document name is required")
	}
	return &PostgresStore{db: db, name: name}, nil
}

func (p *PostgresStore) Read(ctx context.Context) ([]byte, error) {
	const query = `
		SELECT content
		FROM registry_documents
		WHERE name = $1`
	var content string
	if err := p.db.QueryRowContext(ctx, query, p.name).Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAbsent
		}
		return nil, err
	}
	return []byte(content), nil
}

func (p *PostgresStore) Write(ctx context.Context, data []byte) error {
	const query = `
		INSERT INTO registry_documents (name, content, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at`
	_, err := p.db.ExecContext(ctx, query, p.name, string(data), time.Now().UTC())
	return err
}

func (p *PostgresStore) Name() string {
	return "postgres:registry_documents/" + p.name
}

// Close closes the database pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
