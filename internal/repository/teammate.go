package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-ai/veldt/internal/domain"
)

// TeammateRepository persists teammates with their routing policy stored as
// typed columns.
type TeammateRepository struct {
	pool *pgxpool.Pool
}

func NewTeammateRepository(pool *pgxpool.Pool) *TeammateRepository {
	return &TeammateRepository{pool: pool}
}

func (r *TeammateRepository) Create(ctx context.Context, teammate *domain.Teammate) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO teammates (id, workspace_id, name, default_mode, top_k, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		teammate.ID, teammate.WorkspaceID, teammate.Name,
		teammate.Routing.DefaultMode, teammate.Routing.TopK, teammate.CreatedAt,
	)
	return err
}

func (r *TeammateRepository) GetByID(ctx context.Context, id string) (*domain.Teammate, error) {
	var t domain.Teammate
	err := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, name, default_mode, top_k, created_at
		 FROM teammates WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.WorkspaceID, &t.Name, &t.Routing.DefaultMode, &t.Routing.TopK, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTeammateNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TeammateRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Teammate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, name, default_mode, top_k, created_at
		 FROM teammates WHERE workspace_id = $1 ORDER BY created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teammates []*domain.Teammate
	for rows.Next() {
		var t domain.Teammate
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.Name, &t.Routing.DefaultMode, &t.Routing.TopK, &t.CreatedAt); err != nil {
			return nil, err
		}
		teammates = append(teammates, &t)
	}
	return teammates, rows.Err()
}

func (r *TeammateRepository) Update(ctx context.Context, teammate *domain.Teammate) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE teammates SET name = $1, default_mode = $2, top_k = $3 WHERE id = $4`,
		teammate.Name, teammate.Routing.DefaultMode, teammate.Routing.TopK, teammate.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTeammateNotFound
	}
	return nil
}

func (r *TeammateRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM teammates WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTeammateNotFound
	}
	return nil
}

// GetTenantID resolves the owning tenant for authorization checks.
func (r *TeammateRepository) GetTenantID(ctx context.Context, teammateID string) (string, error) {
	var tenantID string
	err := r.pool.QueryRow(ctx,
		`SELECT w.tenant_id
		 FROM teammates t
		 JOIN workspaces w ON w.id = t.workspace_id
		 WHERE t.id = $1`,
		teammateID,
	).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTeammateNotFound
		}
		return "", err
	}
	return tenantID, nil
}
