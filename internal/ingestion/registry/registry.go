// Package registry records indexed documents in PostgreSQL so operators can
// see what the in-memory index was built from.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS indexed_documents (
	name        TEXT PRIMARY KEY,
	size_bytes  BIGINT NOT NULL,
	term_count  INTEGER NOT NULL,
	indexed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type Document struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	TermCount int       `json:"term_count"`
	IndexedAt time.Time `json:"indexed_at"`
}

type Registry struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Registry {
	return &Registry{
		db:     db,
		logger: slog.Default().With("component", "document-registry"),
	}
}

func (r *Registry) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating indexed_documents table: %w", err)
	}
	return nil
}

// Record inserts doc. It reports false when a row with the same name
// already exists.
func (r *Registry) Record(ctx context.Context, doc Document) (bool, error) {
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now().UTC()
	}
	var inserted bool
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO indexed_documents (name, size_bytes, term_count, indexed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING`,
			doc.Name, doc.SizeBytes, doc.TermCount, doc.IndexedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("recording document %s: %w", doc.Name, err)
	}
	if !inserted {
		r.logger.Warn("document already registered", "name", doc.Name)
	}
	return inserted, nil
}

// List returns every registered document, oldest first.
func (r *Registry) List(ctx context.Context) ([]Document, error) {
	rows, err := r.db.DB.QueryContext(ctx,
		`SELECT name, size_bytes, term_count, indexed_at
		FROM indexed_documents
		ORDER BY indexed_at, name`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Name, &d.SizeBytes, &d.TermCount, &d.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Truncate removes every row. The index is rebuilt from scratch on each
// start, so the registry is cleared alongside it.
func (r *Registry) Truncate(ctx context.Context) error {
	if _, err := r.db.DB.ExecContext(ctx, `TRUNCATE indexed_documents`); err != nil {
		return fmt.Errorf("truncating indexed_documents: %w", err)
	}
	return nil
}
