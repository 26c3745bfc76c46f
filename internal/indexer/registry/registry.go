// Package registry records every published index build in PostgreSQL so the
// indexer can skip unchanged books and operators can audit what was served.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

// Build is one published artifact.
type Build struct {
	ID          string    `json:"id"`
	Book        string    `json:"book"`
	Fingerprint string    `json:"fingerprint"`
	ArtifactKey string    `json:"artifact_key"`
	DocCount    int       `json:"doc_count"`
	TokenCount  int       `json:"token_count"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Schema is applied by Migrate.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS index_builds (
		id           UUID PRIMARY KEY,
		book         TEXT NOT NULL,
		fingerprint  TEXT NOT NULL,
		artifact_key TEXT NOT NULL,
		doc_count    INTEGER NOT NULL,
		token_count  INTEGER NOT NULL,
		size_bytes   BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS index_builds_book_created_idx ON index_builds (book, created_at DESC)`,
}

type Registry struct {
	db *postgres.Client
}

func New(db *postgres.Client) *Registry {
	return &Registry{db: db}
}

// Migrate creates the table and index when missing.
func (r *Registry) Migrate(ctx context.Context) error {
	if err := r.db.Migrate(ctx, Schema...); err != nil {
		return fmt.Errorf("migrating build registry: %w", err)
	}
	return nil
}

// Latest returns the newest build of book, or nil when there is none.
func (r *Registry) Latest(ctx context.Context, book string) (*Build, error) {
	row := r.db.DB.QueryRowContext(ctx, `
		SELECT id, book, fingerprint, artifact_key, doc_count, token_count, size_bytes, created_at
		FROM index_builds
		WHERE book = $1
		ORDER BY created_at DESC
		LIMIT 1`, book)
	var b Build
	err := row.Scan(&b.ID, &b.Book, &b.Fingerprint, &b.ArtifactKey, &b.DocCount, &b.TokenCount, &b.SizeBytes, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest build of %s: %w", book, err)
	}
	return &b, nil
}

// Record inserts b.
func (r *Registry) Record(ctx context.Context, b Build) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO index_builds (id, book, fingerprint, artifact_key, doc_count, token_count, size_bytes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			b.ID, b.Book, b.Fingerprint, b.ArtifactKey, b.DocCount, b.TokenCount, b.SizeBytes, b.CreatedAt)
		if err != nil {
			return fmt.Errorf("recording build %s: %w", b.ID, err)
		}
		return nil
	})
}

// History lists the most recent builds of book, newest first.
func (r *Registry) History(ctx context.Context, book string, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, book, fingerprint, artifact_key, doc_count, token_count, size_bytes, created_at
		FROM index_builds
		WHERE book = $1
		ORDER BY created_at DESC
		LIMIT $2`, book, limit)
	if err != nil {
		return nil, fmt.Errorf("querying build history of %s: %w", book, err)
	}
	defer rows.Close()
	var out []Build
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.ID, &b.Book, &b.Fingerprint, &b.ArtifactKey, &b.DocCount, &b.TokenCount, &b.SizeBytes, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning build row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
