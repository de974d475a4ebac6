package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/veldt-ai/veldt/internal/domain"
)

// ChunkIndexRepository stores chunk embeddings in pgvector and answers
// similarity queries scoped to one knowledge base.
type ChunkIndexRepository struct {
	pool *pgxpool.Pool
}

func NewChunkIndexRepository(pool *pgxpool.Pool) *ChunkIndexRepository {
	return &ChunkIndexRepository{pool: pool}
}

// ReplaceDocumentChunks swaps the stored chunk set for one document inside a
// single transaction, so readers never observe a partially ingested document.
// An empty record set clears the document from the index.
func (r *ChunkIndexRepository) ReplaceDocumentChunks(ctx context.Context, knowledgeBaseID, documentID string, records []domain.ChunkRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE knowledge_base_id = $1 AND document_id = $2`,
		knowledgeBaseID, documentID,
	)
	if err != nil {
		return err
	}

	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		tags := rec.Tags
		if tags == nil {
			tags = []string{}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO knowledge_chunks
				(knowledge_base_id, document_id, source_document, chunk_index, content, tags, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			knowledgeBaseID,
			documentID,
			rec.SourceDocument,
			rec.ChunkIndex,
			rec.Content,
			tags,
			pgvector.NewVector(rec.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Search returns up to topK chunks ordered by ascending cosine distance to the
// query vector, ties broken by insertion order. The relevance score exposed to
// callers is 1 - distance clamped to [0,1]. A non-empty tagFilter restricts
// results to chunks whose tag set intersects it.
func (r *ChunkIndexRepository) Search(ctx context.Context, knowledgeBaseID string, vector []float32, topK int, tagFilter []string) ([]domain.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}

	vec := pgvector.NewVector(vector)

	var query string
	var args []any

	if len(tagFilter) > 0 {
		query = `
			SELECT id, knowledge_base_id, document_id, source_document, chunk_index, content, tags, created_at,
			       GREATEST(0.0, LEAST(1.0, 1.0 - (embedding <=> $1))) AS score
			FROM knowledge_chunks
			WHERE knowledge_base_id = $2 AND tags && $3::text[]
			ORDER BY embedding <=> $1, id
			LIMIT $4`
		args = []any{vec, knowledgeBaseID, tagFilter, topK}
	} else {
		query = `
			SELECT id, knowledge_base_id, document_id, source_document, chunk_index, content, tags, created_at,
			       GREATEST(0.0, LEAST(1.0, 1.0 - (embedding <=> $1))) AS score
			FROM knowledge_chunks
			WHERE knowledge_base_id = $2
			ORDER BY embedding <=> $1, id
			LIMIT $3`
		args = []any{vec, knowledgeBaseID, topK}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, topK)
	for rows.Next() {
		var c domain.ScoredChunk
		if err := rows.Scan(
			&c.ID, &c.KnowledgeBaseID, &c.DocumentID, &c.SourceDocument,
			&c.ChunkIndex, &c.Content, &c.Tags, &c.CreatedAt, &c.Score,
		); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// DeleteByDocument removes all chunks for one document.
func (r *ChunkIndexRepository) DeleteByDocument(ctx context.Context, knowledgeBaseID, documentID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE knowledge_base_id = $1 AND document_id = $2`,
		knowledgeBaseID, documentID,
	)
	return err
}

// CountByKnowledgeBase returns the number of indexed chunks in a knowledge base.
func (r *ChunkIndexRepository) CountByKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_chunks WHERE knowledge_base_id = $1`,
		knowledgeBaseID,
	).Scan(&count)
	return count, err
}
