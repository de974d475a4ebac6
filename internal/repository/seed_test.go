//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/veldt-ai/veldt/internal/domain"
)

// seededChain holds one row per level of the ownership hierarchy, created in
// foreign key order.
type seededChain struct {
	Tenant        *domain.Tenant
	Workspace     *domain.Workspace
	Teammate      *domain.Teammate
	Assistant     *domain.Assistant
	KnowledgeBase *domain.KnowledgeBase
}

func seedChain(ctx context.Context, t *testing.T, pool *pgxpool.Pool) *seededChain {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)

	tenant := &domain.Tenant{ID: uuid.NewString(), Name: "Seed Tenant " + uuid.NewString(), CreatedAt: now}
	require.NoError(t, NewTenantRepository(pool).Create(ctx, tenant))

	workspace := &domain.Workspace{ID: uuid.NewString(), TenantID: tenant.ID, Name: "Seed Workspace", CreatedAt: now}
	require.NoError(t, NewWorkspaceRepository(pool).Create(ctx, workspace))

	teammate := &domain.Teammate{
		ID:          uuid.NewString(),
		WorkspaceID: workspace.ID,
		Name:        "Seed Teammate",
		Routing:     domain.DefaultRoutingPolicy(),
		CreatedAt:   now,
	}
	require.NoError(t, NewTeammateRepository(pool).Create(ctx, teammate))

	assistant := &domain.Assistant{
		ID:         uuid.NewString(),
		TeammateID: teammate.ID,
		Name:       "Seed Assistant",
		CreatedAt:  now,
	}
	require.NoError(t, NewAssistantRepository(pool).Create(ctx, assistant))

	kb := &domain.KnowledgeBase{
		ID:          uuid.NewString(),
		AssistantID: assistant.ID,
		Name:        "Seed Knowledge Base",
		CreatedAt:   now,
	}
	require.NoError(t, NewKnowledgeBaseRepository(pool).Create(ctx, kb))

	return &seededChain{
		Tenant:        tenant,
		Workspace:     workspace,
		Teammate:      teammate,
		Assistant:     assistant,
		KnowledgeBase: kb,
	}
}

func seedDocument(ctx context.Context, t *testing.T, pool *pgxpool.Pool, kbID string, status domain.DocumentStatus, createdAt time.Time) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:              uuid.NewString(),
		KnowledgeBaseID: kbID,
		FileName:        "seed.txt",
		FileType:        "text/plain",
		RawContent:      "seed content",
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	require.NoError(t, NewDocumentRepository(pool).Create(ctx, doc))
	return doc
}
