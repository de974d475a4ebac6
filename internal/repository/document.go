package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/pagination"
	"github.com/veldt-ai/veldt/internal/service"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, knowledge_base_id, file_name, file_type, storage_key, raw_content,
	status, error_message, chunk_count, tag_count, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.KnowledgeBaseID, d.FileName, d.FileType,
		nullableString(d.StorageKey), nullableString(d.RawContent),
		d.Status, nullableString(d.ErrorMessage), d.ChunkCount, d.TagCount,
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	)
	return scanDocumentRow(row)
}

func (r *DocumentRepository) ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE knowledge_base_id = $1 ORDER BY created_at DESC`,
		knowledgeBaseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (r *DocumentRepository) ListByKnowledgeBaseWithCursor(ctx context.Context, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*service.DocumentPage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents
			 WHERE knowledge_base_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			knowledgeBaseID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents
			 WHERE knowledge_base_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			knowledgeBaseID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	return pagination.NewPage(docs, limit, func(d *domain.Document) (string, time.Time) {
		return d.ID, d.CreatedAt
	}), nil
}

// SetProcessing transitions a document to processing and clears any previous
// error. Pending, done and error documents may all re-enter processing, so
// re-ingestion stays possible.
func (r *DocumentRepository) SetProcessing(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, error_message = NULL, updated_at = $2
		 WHERE id = $3`,
		domain.DocumentStatusProcessing, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) MarkDone(ctx context.Context, id string, chunkCount, tagCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, error_message = NULL, chunk_count = $2, tag_count = $3, updated_at = $4
		 WHERE id = $5`,
		domain.DocumentStatusDone, chunkCount, tagCount, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) MarkError(ctx context.Context, id string, message string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, error_message = $2, updated_at = $3
		 WHERE id = $4`,
		domain.DocumentStatusError, message, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ClaimPending atomically moves up to limit pending documents into processing
// and returns them. SKIP LOCKED keeps concurrent workers from claiming the
// same document twice.
func (r *DocumentRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM documents
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE documents
		 SET status = $3,
		     error_message = NULL,
		     updated_at = $4
		 FROM cte
		 WHERE documents.id = cte.id
		 RETURNING documents.id, documents.knowledge_base_id, documents.file_name, documents.file_type,
		           documents.storage_key, documents.raw_content, documents.status, documents.error_message,
		           documents.chunk_count, documents.tag_count, documents.created_at, documents.updated_at`,
		domain.DocumentStatusPending, limit, domain.DocumentStatusProcessing, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocumentRows(rows)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// CountByStatus returns per-status document counts for a knowledge base.
func (r *DocumentRepository) CountByStatus(ctx context.Context, knowledgeBaseID string) (map[domain.DocumentStatus]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM documents
		 WHERE knowledge_base_id = $1 GROUP BY status`,
		knowledgeBaseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.DocumentStatus]int)
	for rows.Next() {
		var status domain.DocumentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanDocumentRow(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var storageKey, rawContent, errorMessage pgtype.Text
	err := row.Scan(
		&d.ID, &d.KnowledgeBaseID, &d.FileName, &d.FileType, &storageKey, &rawContent,
		&d.Status, &errorMessage, &d.ChunkCount, &d.TagCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if storageKey.Valid {
		d.StorageKey = storageKey.String
	}
	if rawContent.Valid {
		d.RawContent = rawContent.String
	}
	if errorMessage.Valid {
		d.ErrorMessage = errorMessage.String
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		var storageKey, rawContent, errorMessage pgtype.Text
		if err := rows.Scan(
			&d.ID, &d.KnowledgeBaseID, &d.FileName, &d.FileType, &storageKey, &rawContent,
			&d.Status, &errorMessage, &d.ChunkCount, &d.TagCount, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if storageKey.Valid {
			d.StorageKey = storageKey.String
		}
		if rawContent.Valid {
			d.RawContent = rawContent.String
		}
		if errorMessage.Valid {
			d.ErrorMessage = errorMessage.String
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}
