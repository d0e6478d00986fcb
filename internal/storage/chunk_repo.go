package storage

import (
	"context"
	"fmt"
)

// ChunkRecord is one embedded chunk row. EmbeddingVector holds the pgvector
// literal; nil leaves the column NULL.
type ChunkRecord struct {
	ChunkID          string
	IndexID          string
	ChunkIndex       int
	Page             int
	Text             string
	EmbeddingVersion string
	EmbeddingVector  *string
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) UpsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO document_chunks (chunk_id, index_id, chunk_index, page, text, embedding_version, embedding)
VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $7::text IS NULL THEN NULL ELSE $7::vector END)
ON CONFLICT (chunk_id)
DO UPDATE SET
  text = EXCLUDED.text,
  embedding_version = EXCLUDED.embedding_version,
  embedding = COALESCE(EXCLUDED.embedding, document_chunks.embedding)`,
			c.ChunkID, c.IndexID, c.ChunkIndex, c.Page, c.Text, c.EmbeddingVersion, c.EmbeddingVector,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

// DeleteIndex removes every chunk written under the given index id. Used both
// when a replaced handle's rows are reclaimed and as compensation when an
// ingest fails after partial writes.
func (r *ChunkRepo) DeleteIndex(ctx context.Context, indexID string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM document_chunks WHERE index_id=$1`, indexID); err != nil {
		return fmt.Errorf("delete index %s: %w", indexID, err)
	}
	return nil
}
