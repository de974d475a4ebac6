//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/testutil"
)

func TestTeammateRepository_RoutingPolicyRoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewTeammateRepository(pool)

	teammate := &domain.Teammate{
		ID:          uuid.NewString(),
		WorkspaceID: chain.Workspace.ID,
		Name:        "Research Bot",
		Routing:     domain.RoutingPolicy{DefaultMode: domain.InferenceModeReasoning, TopK: 12},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, teammate))

	retrieved, err := repo.GetByID(ctx, teammate.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InferenceModeReasoning, retrieved.Routing.DefaultMode)
	assert.Equal(t, 12, retrieved.Routing.TopK)
}

func TestTeammateRepository_Create_TopKConstraint(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewTeammateRepository(pool)

	teammate := &domain.Teammate{
		ID:          uuid.NewString(),
		WorkspaceID: chain.Workspace.ID,
		Name:        "Out of Range",
		Routing:     domain.RoutingPolicy{DefaultMode: domain.InferenceModeFast, TopK: 51},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	err := repo.Create(ctx, teammate)
	assert.Error(t, err)
}

func TestTeammateRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewTeammateRepository(pool)

	teammate := chain.Teammate
	teammate.Routing = domain.RoutingPolicy{DefaultMode: domain.InferenceModeReasoning, TopK: 3}
	require.NoError(t, repo.Update(ctx, teammate))

	retrieved, err := repo.GetByID(ctx, teammate.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InferenceModeReasoning, retrieved.Routing.DefaultMode)
	assert.Equal(t, 3, retrieved.Routing.TopK)
}

func TestTeammateRepository_ListByWorkspace(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewTeammateRepository(pool)

	second := &domain.Teammate{
		ID:          uuid.NewString(),
		WorkspaceID: chain.Workspace.ID,
		Name:        "Second Teammate",
		Routing:     domain.DefaultRoutingPolicy(),
		CreatedAt:   time.Now().UTC().Add(time.Second).Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, second))

	teammates, err := repo.ListByWorkspace(ctx, chain.Workspace.ID)
	require.NoError(t, err)
	assert.Len(t, teammates, 2)
	assert.Equal(t, second.ID, teammates[0].ID)
	assert.Equal(t, chain.Teammate.ID, teammates[1].ID)
}

func TestTeammateRepository_GetTenantID(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewTeammateRepository(pool)

	tenantID, err := repo.GetTenantID(ctx, chain.Teammate.ID)
	require.NoError(t, err)
	assert.Equal(t, chain.Tenant.ID, tenantID)

	_, err = repo.GetTenantID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrTeammateNotFound)
}

func TestAssistantRepository_GetByTeammateID(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewAssistantRepository(pool)

	retrieved, err := repo.GetByTeammateID(ctx, chain.Teammate.ID)
	require.NoError(t, err)
	assert.Equal(t, chain.Assistant.ID, retrieved.ID)

	_, err = repo.GetByTeammateID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrAssistantNotFound)
}

func TestAssistantRepository_Create_SecondAssistantRejected(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewAssistantRepository(pool)

	duplicate := &domain.Assistant{
		ID:         uuid.NewString(),
		TeammateID: chain.Teammate.ID,
		Name:       "Second Assistant",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	err := repo.Create(ctx, duplicate)
	assert.Error(t, err)
}

func TestAssistantRepository_Update_SystemPrompt(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewAssistantRepository(pool)

	assistant := chain.Assistant
	assistant.SystemPrompt = "Answer only from the provided context."
	require.NoError(t, repo.Update(ctx, assistant))

	retrieved, err := repo.GetByID(ctx, assistant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Answer only from the provided context.", retrieved.SystemPrompt)
}

func TestKnowledgeBaseRepository_EnsureForAssistant(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chain := seedChain(ctx, t, pool)
	repo := NewKnowledgeBaseRepository(pool)

	// Already exists for the seeded assistant, so ensure returns the same row.
	kb, err := repo.EnsureForAssistant(ctx, chain.Assistant.ID, "ignored")
	require.NoError(t, err)
	assert.Equal(t, chain.KnowledgeBase.ID, kb.ID)

	// A fresh assistant gets one created on first use.
	teammate := &domain.Teammate{
		ID:          uuid.NewString(),
		WorkspaceID: chain.Workspace.ID,
		Name:        "Fresh Teammate",
		Routing:     domain.DefaultRoutingPolicy(),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, NewTeammateRepository(pool).Create(ctx, teammate))

	assistant := &domain.Assistant{
		ID:         uuid.NewString(),
		TeammateID: teammate.ID,
		Name:       "Fresh Assistant",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, NewAssistantRepository(pool).Create(ctx, assistant))

	_, err = repo.GetByAssistantID(ctx, assistant.ID)
	assert.ErrorIs(t, err, domain.ErrKnowledgeBaseNotFound)

	created, err := repo.EnsureForAssistant(ctx, assistant.ID, "Fresh Assistant Knowledge")
	require.NoError(t, err)
	assert.Equal(t, assistant.ID, created.AssistantID)
	assert.Equal(t, "Fresh Assistant Knowledge", created.Name)

	again, err := repo.EnsureForAssistant(ctx, assistant.ID, "different name")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Fresh Assistant Knowledge", again.Name)
}
