package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-ai/veldt/internal/domain"
)

type KnowledgeBaseRepository struct {
	db dbtx
}

func NewKnowledgeBaseRepository(pool *pgxpool.Pool) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: pool}
}

func NewKnowledgeBaseRepositoryWithTx(tx pgx.Tx) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: tx}
}

func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_bases (id, assistant_id, name, created_at)
		 VALUES ($1, $2, $3, $4)`,
		kb.ID, kb.AssistantID, kb.Name, kb.CreatedAt,
	)
	return err
}

func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	err := r.db.QueryRow(ctx,
		`SELECT id, assistant_id, name, created_at FROM knowledge_bases WHERE id = $1`,
		id,
	).Scan(&kb.ID, &kb.AssistantID, &kb.Name, &kb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepository) GetByAssistantID(ctx context.Context, assistantID string) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	err := r.db.QueryRow(ctx,
		`SELECT id, assistant_id, name, created_at FROM knowledge_bases WHERE assistant_id = $1`,
		assistantID,
	).Scan(&kb.ID, &kb.AssistantID, &kb.Name, &kb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	return &kb, nil
}

// EnsureForAssistant returns the assistant's knowledge base, creating it on
// first use. ON CONFLICT keeps concurrent first uploads from racing.
func (r *KnowledgeBaseRepository) EnsureForAssistant(ctx context.Context, assistantID, name string) (*domain.KnowledgeBase, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_bases (id, assistant_id, name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (assistant_id) DO NOTHING`,
		uuid.NewString(), assistantID, name, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	return r.GetByAssistantID(ctx, assistantID)
}

func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_bases WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeBaseNotFound
	}
	return nil
}
