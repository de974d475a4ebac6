package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-ai/veldt/internal/domain"
)

type AssistantRepository struct {
	pool *pgxpool.Pool
}

func NewAssistantRepository(pool *pgxpool.Pool) *AssistantRepository {
	return &AssistantRepository{pool: pool}
}

func (r *AssistantRepository) Create(ctx context.Context, assistant *domain.Assistant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO assistants (id, teammate_id, name, system_prompt, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		assistant.ID, assistant.TeammateID, assistant.Name, assistant.SystemPrompt, assistant.CreatedAt,
	)
	return err
}

func (r *AssistantRepository) GetByID(ctx context.Context, id string) (*domain.Assistant, error) {
	var a domain.Assistant
	err := r.pool.QueryRow(ctx,
		`SELECT id, teammate_id, name, system_prompt, created_at
		 FROM assistants WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.TeammateID, &a.Name, &a.SystemPrompt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssistantNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByTeammateID returns the teammate's assistant. Each teammate has exactly
// one.
func (r *AssistantRepository) GetByTeammateID(ctx context.Context, teammateID string) (*domain.Assistant, error) {
	var a domain.Assistant
	err := r.pool.QueryRow(ctx,
		`SELECT id, teammate_id, name, system_prompt, created_at
		 FROM assistants WHERE teammate_id = $1`,
		teammateID,
	).Scan(&a.ID, &a.TeammateID, &a.Name, &a.SystemPrompt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssistantNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AssistantRepository) Update(ctx context.Context, assistant *domain.Assistant) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE assistants SET name = $1, system_prompt = $2 WHERE id = $3`,
		assistant.Name, assistant.SystemPrompt, assistant.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAssistantNotFound
	}
	return nil
}

func (r *AssistantRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM assistants WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAssistantNotFound
	}
	return nil
}
