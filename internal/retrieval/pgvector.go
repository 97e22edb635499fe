package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/xiaot623/ragbook/internal/domain"
)

// PGVectorIndex stores passages in PostgreSQL with the pgvector extension.
type PGVectorIndex struct {
	db   *sql.DB
	dims int
}

// NewPGVectorIndex connects to dsn and ensures the chunk table exists.
func NewPGVectorIndex(ctx context.Context, dsn string, dims int) (*PGVectorIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	idx := &PGVectorIndex{db: db, dims: dims}
	if err := idx.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PGVectorIndex) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.dims),
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_source ON document_chunks(source)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate document_chunks")
		}
	}
	return nil
}

// Close closes the database connection.
func (p *PGVectorIndex) Close() error {
	return p.db.Close()
}

func (p *PGVectorIndex) Upsert(ctx context.Context, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt := `
		INSERT INTO document_chunks (id, source, text, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			source = EXCLUDED.source,
			text = EXCLUDED.text,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`
	for _, passage := range passages {
		if len(passage.Vector) != p.dims {
			return errors.Errorf("passage %s has %d dimensions, want %d", passage.ID, len(passage.Vector), p.dims)
		}
		metadata, err := json.Marshal(passage.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to encode metadata")
		}
		if _, err := tx.ExecContext(ctx, stmt,
			passage.ID, passage.Source, passage.Text, string(metadata), pgvector.NewVector(passage.Vector),
		); err != nil {
			return errors.Wrap(err, "failed to upsert document chunk")
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit document chunks")
}

func (p *PGVectorIndex) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	// <=> is cosine distance, so similarity is 1 - distance.
	query := `
		SELECT id, source, text, metadata, 1 - (embedding <=> $1) AS score
		FROM document_chunks
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	hits := []domain.RetrievalHit{}
	for rows.Next() {
		var hit domain.RetrievalHit
		var metadata sql.NullString
		if err := rows.Scan(&hit.ID, &hit.Source, &hit.Text, &metadata, &hit.Score); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		if metadata.Valid && metadata.String != "" && metadata.String != "null" {
			if err := json.Unmarshal([]byte(metadata.String), &hit.Metadata); err != nil {
				return nil, errors.Wrap(err, "failed to decode metadata")
			}
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

func (p *PGVectorIndex) DeleteBySource(ctx context.Context, source string) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE source = $1`, source)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete document chunks")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
