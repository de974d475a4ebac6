package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veldt-ai/veldt/internal/domain"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *domain.Workspace) error
	GetByID(ctx context.Context, id string) (*domain.Workspace, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Workspace, error)
	Update(ctx context.Context, workspace *domain.Workspace) error
	Delete(ctx context.Context, id string) error
}

type TeammateRepository interface {
	Create(ctx context.Context, teammate *domain.Teammate) error
	GetByID(ctx context.Context, id string) (*domain.Teammate, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Teammate, error)
	Update(ctx context.Context, teammate *domain.Teammate) error
	Delete(ctx context.Context, id string) error
	GetTenantID(ctx context.Context, teammateID string) (string, error)
}

type AssistantRepository interface {
	Create(ctx context.Context, assistant *domain.Assistant) error
	GetByID(ctx context.Context, id string) (*domain.Assistant, error)
	GetByTeammateID(ctx context.Context, teammateID string) (*domain.Assistant, error)
	Update(ctx context.Context, assistant *domain.Assistant) error
	Delete(ctx context.Context, id string) error
}

// TenancyService manages the workspace/teammate/assistant hierarchy under a
// tenant. Tenants themselves are managed by AuthService since they anchor API
// keys.
type TenancyService struct {
	workspaces WorkspaceRepository
	teammates  TeammateRepository
	assistants AssistantRepository
	uuidGen    UUIDGenerator
}

func NewTenancyService(
	workspaces WorkspaceRepository,
	teammates TeammateRepository,
	assistants AssistantRepository,
	uuidGen UUIDGenerator,
) *TenancyService {
	return &TenancyService{
		workspaces: workspaces,
		teammates:  teammates,
		assistants: assistants,
		uuidGen:    uuidGen,
	}
}

func (s *TenancyService) CreateWorkspace(ctx context.Context, tenantID, name string) (*domain.Workspace, error) {
	workspace := &domain.Workspace{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateWorkspace(workspace); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid workspace", err)
	}
	if err := s.workspaces.Create(ctx, workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

func (s *TenancyService) GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error) {
	return s.workspaces.GetByID(ctx, id)
}

func (s *TenancyService) ListWorkspaces(ctx context.Context, tenantID string) ([]*domain.Workspace, error) {
	return s.workspaces.ListByTenant(ctx, tenantID)
}

// CreateTeammate creates a teammate with its assistant in one call. Every
// teammate routes queries to exactly one assistant, so they are born together.
func (s *TenancyService) CreateTeammate(ctx context.Context, workspaceID, name string, routing *domain.RoutingPolicy) (*domain.Teammate, *domain.Assistant, error) {
	if _, err := s.workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, nil, err
	}

	policy := domain.DefaultRoutingPolicy()
	if routing != nil {
		policy = *routing
	}

	teammate := &domain.Teammate{
		ID:          s.uuidGen.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		Routing:     policy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := domain.ValidateTeammate(teammate); err != nil {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid teammate", err)
	}
	if err := s.teammates.Create(ctx, teammate); err != nil {
		return nil, nil, err
	}

	assistant := &domain.Assistant{
		ID:         s.uuidGen.NewString(),
		TeammateID: teammate.ID,
		Name:       name,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.assistants.Create(ctx, assistant); err != nil {
		return nil, nil, err
	}

	return teammate, assistant, nil
}

func (s *TenancyService) GetTeammate(ctx context.Context, id string) (*domain.Teammate, error) {
	return s.teammates.GetByID(ctx, id)
}

func (s *TenancyService) ListTeammates(ctx context.Context, workspaceID string) ([]*domain.Teammate, error) {
	return s.teammates.ListByWorkspace(ctx, workspaceID)
}

// UpdateRoutingPolicy replaces a teammate's routing policy after validation.
func (s *TenancyService) UpdateRoutingPolicy(ctx context.Context, teammateID string, policy domain.RoutingPolicy) (*domain.Teammate, error) {
	if err := domain.ValidateRoutingPolicy(policy); err != nil {
		return nil, err
	}

	teammate, err := s.teammates.GetByID(ctx, teammateID)
	if err != nil {
		return nil, err
	}

	teammate.Routing = policy
	if err := s.teammates.Update(ctx, teammate); err != nil {
		return nil, err
	}
	return teammate, nil
}

func (s *TenancyService) GetAssistant(ctx context.Context, id string) (*domain.Assistant, error) {
	return s.assistants.GetByID(ctx, id)
}

func (s *TenancyService) GetAssistantForTeammate(ctx context.Context, teammateID string) (*domain.Assistant, error) {
	return s.assistants.GetByTeammateID(ctx, teammateID)
}

// SetInstruction upserts an assistant's system prompt.
func (s *TenancyService) SetInstruction(ctx context.Context, assistantID, systemPrompt string) (*domain.Assistant, error) {
	assistant, err := s.assistants.GetByID(ctx, assistantID)
	if err != nil {
		return nil, err
	}

	assistant.SystemPrompt = systemPrompt
	if err := s.assistants.Update(ctx, assistant); err != nil {
		return nil, err
	}
	return assistant, nil
}

// TenantForTeammate resolves a teammate's owning tenant for authorization.
func (s *TenancyService) TenantForTeammate(ctx context.Context, teammateID string) (string, error) {
	return s.teammates.GetTenantID(ctx, teammateID)
}
