package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veldt-ai/veldt/internal/api/middleware"
	"github.com/veldt-ai/veldt/internal/domain"
)

type MockTenancyService struct {
	mock.Mock
}

func (m *MockTenancyService) CreateWorkspace(ctx context.Context, tenantID, name string) (*domain.Workspace, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockTenancyService) GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockTenancyService) ListWorkspaces(ctx context.Context, tenantID string) ([]*domain.Workspace, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Workspace), args.Error(1)
}

func (m *MockTenancyService) CreateTeammate(ctx context.Context, workspaceID, name string, routing *domain.RoutingPolicy) (*domain.Teammate, *domain.Assistant, error) {
	args := m.Called(ctx, workspaceID, name, routing)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Teammate), args.Get(1).(*domain.Assistant), args.Error(2)
}

func (m *MockTenancyService) GetTeammate(ctx context.Context, id string) (*domain.Teammate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Teammate), args.Error(1)
}

func (m *MockTenancyService) ListTeammates(ctx context.Context, workspaceID string) ([]*domain.Teammate, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Teammate), args.Error(1)
}

func (m *MockTenancyService) UpdateRoutingPolicy(ctx context.Context, teammateID string, policy domain.RoutingPolicy) (*domain.Teammate, error) {
	args := m.Called(ctx, teammateID, policy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Teammate), args.Error(1)
}

func (m *MockTenancyService) GetAssistant(ctx context.Context, id string) (*domain.Assistant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assistant), args.Error(1)
}

func (m *MockTenancyService) GetAssistantForTeammate(ctx context.Context, teammateID string) (*domain.Assistant, error) {
	args := m.Called(ctx, teammateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assistant), args.Error(1)
}

func (m *MockTenancyService) SetInstruction(ctx context.Context, assistantID, systemPrompt string) (*domain.Assistant, error) {
	args := m.Called(ctx, assistantID, systemPrompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assistant), args.Error(1)
}

func (m *MockTenancyService) TenantForTeammate(ctx context.Context, teammateID string) (string, error) {
	args := m.Called(ctx, teammateID)
	return args.String(0), args.Error(1)
}

func requestWithTenantID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.TenantIDKey, "tenant-456")
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newTestWorkspace() *domain.Workspace {
	return &domain.Workspace{
		ID:        "ws-1",
		TenantID:  "tenant-456",
		Name:      "Support",
		CreatedAt: time.Now().UTC(),
	}
}

func newTestTeammate() *domain.Teammate {
	return &domain.Teammate{
		ID:          "tm-1",
		WorkspaceID: "ws-1",
		Name:        "Ada",
		Routing:     domain.DefaultRoutingPolicy(),
		CreatedAt:   time.Now().UTC(),
	}
}

func newTestAssistant() *domain.Assistant {
	return &domain.Assistant{
		ID:         "as-1",
		TeammateID: "tm-1",
		Name:       "Ada",
		CreatedAt:  time.Now().UTC(),
	}
}

func TestTenancyResponses_TimestampsKeepOffset(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, loc)

	ws := newTestWorkspace()
	ws.CreatedAt = created
	assert.Equal(t, "2026-03-14T09:30:00+02:00", workspaceToResponse(ws).CreatedAt)

	tm := newTestTeammate()
	tm.CreatedAt = created
	assert.Equal(t, "2026-03-14T09:30:00+02:00", teammateToResponse(tm).CreatedAt)

	a := newTestAssistant()
	a.CreatedAt = created.UTC()
	assert.Equal(t, "2026-03-14T07:30:00Z", assistantToResponse(a).CreatedAt)
}

func TestTenancyHandler_CreateWorkspace_Success(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	mockSvc.On("CreateWorkspace", mock.Anything, "tenant-456", "Support").Return(newTestWorkspace(), nil)

	body := `{"name":"Support"}`
	req := requestWithTenantID(http.MethodPost, "/workspaces", []byte(body))
	w := httptest.NewRecorder()

	handler.CreateWorkspace(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ws-1", data["id"])
	mockSvc.AssertExpectations(t)
}

func TestTenancyHandler_CreateWorkspace_Unauthorized(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	body := `{"name":"Support"}`
	req := httptest.NewRequest(http.MethodPost, "/workspaces", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.CreateWorkspace(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTenancyHandler_GetWorkspace_ForeignTenant(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	foreign := newTestWorkspace()
	foreign.TenantID = "tenant-other"
	mockSvc.On("GetWorkspace", mock.Anything, "ws-1").Return(foreign, nil)

	req := requestWithTenantID(http.MethodGet, "/workspaces/ws-1", nil)
	req = withURLParam(req, "id", "ws-1")
	w := httptest.NewRecorder()

	handler.GetWorkspace(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestTenancyHandler_CreateTeammate_Success(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	mockSvc.On("GetWorkspace", mock.Anything, "ws-1").Return(newTestWorkspace(), nil)
	mockSvc.On("CreateTeammate", mock.Anything, "ws-1", "Ada", (*domain.RoutingPolicy)(nil)).
		Return(newTestTeammate(), newTestAssistant(), nil)

	body := `{"workspace_id":"ws-1","name":"Ada"}`
	req := requestWithTenantID(http.MethodPost, "/teammates", []byte(body))
	w := httptest.NewRecorder()

	handler.CreateTeammate(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "tm-1", data["id"])
	assert.Equal(t, "as-1", data["assistant_id"])
	assert.Equal(t, "fast", data["default_mode"])
	mockSvc.AssertExpectations(t)
}

func TestTenancyHandler_CreateTeammate_CustomRouting(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	mockSvc.On("GetWorkspace", mock.Anything, "ws-1").Return(newTestWorkspace(), nil)
	mockSvc.On("CreateTeammate", mock.Anything, "ws-1", "Ada", mock.MatchedBy(func(p *domain.RoutingPolicy) bool {
		return p != nil && p.DefaultMode == domain.InferenceModeReasoning && p.TopK == 10
	})).Return(newTestTeammate(), newTestAssistant(), nil)

	body := `{"workspace_id":"ws-1","name":"Ada","routing":{"default_mode":"reasoning","top_k":10}}`
	req := requestWithTenantID(http.MethodPost, "/teammates", []byte(body))
	w := httptest.NewRecorder()

	handler.CreateTeammate(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestTenancyHandler_CreateTeammate_MissingWorkspaceID(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	body := `{"name":"Ada"}`
	req := requestWithTenantID(http.MethodPost, "/teammates", []byte(body))
	w := httptest.NewRecorder()

	handler.CreateTeammate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "workspace_id is required")
}

func TestTenancyHandler_UpdateRouting_Success(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	updated := newTestTeammate()
	updated.Routing = domain.RoutingPolicy{DefaultMode: domain.InferenceModeReasoning, TopK: 7}
	mockSvc.On("TenantForTeammate", mock.Anything, "tm-1").Return("tenant-456", nil)
	mockSvc.On("UpdateRoutingPolicy", mock.Anything, "tm-1", domain.RoutingPolicy{
		DefaultMode: domain.InferenceModeReasoning,
		TopK:        7,
	}).Return(updated, nil)

	body := `{"default_mode":"reasoning","top_k":7}`
	req := requestWithTenantID(http.MethodPut, "/teammates/tm-1/routing", []byte(body))
	req = withURLParam(req, "id", "tm-1")
	w := httptest.NewRecorder()

	handler.UpdateRouting(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "reasoning", data["default_mode"])
	assert.Equal(t, float64(7), data["top_k"])
	mockSvc.AssertExpectations(t)
}

func TestTenancyHandler_UpdateRouting_ForeignTenant(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	mockSvc.On("TenantForTeammate", mock.Anything, "tm-1").Return("tenant-other", nil)

	body := `{"default_mode":"reasoning","top_k":7}`
	req := requestWithTenantID(http.MethodPut, "/teammates/tm-1/routing", []byte(body))
	req = withURLParam(req, "id", "tm-1")
	w := httptest.NewRecorder()

	handler.UpdateRouting(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertNotCalled(t, "UpdateRoutingPolicy", mock.Anything, mock.Anything, mock.Anything)
}

func TestTenancyHandler_SetInstruction_Success(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	updated := newTestAssistant()
	updated.SystemPrompt = "You are a support assistant."
	mockSvc.On("GetAssistant", mock.Anything, "as-1").Return(newTestAssistant(), nil)
	mockSvc.On("TenantForTeammate", mock.Anything, "tm-1").Return("tenant-456", nil)
	mockSvc.On("SetInstruction", mock.Anything, "as-1", "You are a support assistant.").Return(updated, nil)

	body := `{"system_prompt":"You are a support assistant."}`
	req := requestWithTenantID(http.MethodPut, "/assistants/as-1/instruction", []byte(body))
	req = withURLParam(req, "id", "as-1")
	w := httptest.NewRecorder()

	handler.SetInstruction(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "You are a support assistant.", data["system_prompt"])
	mockSvc.AssertExpectations(t)
}

func TestTenancyHandler_SetInstruction_AssistantNotFound(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	mockSvc.On("GetAssistant", mock.Anything, "as-999").Return(nil, domain.ErrAssistantNotFound)

	body := `{"system_prompt":"prompt"}`
	req := requestWithTenantID(http.MethodPut, "/assistants/as-999/instruction", []byte(body))
	req = withURLParam(req, "id", "as-999")
	w := httptest.NewRecorder()

	handler.SetInstruction(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestTenancyHandler_ListTeammates_Success(t *testing.T) {
	mockSvc := new(MockTenancyService)
	handler := NewTenancyHandler(mockSvc)

	mockSvc.On("GetWorkspace", mock.Anything, "ws-1").Return(newTestWorkspace(), nil)
	mockSvc.On("ListTeammates", mock.Anything, "ws-1").Return([]*domain.Teammate{newTestTeammate()}, nil)

	req := requestWithTenantID(http.MethodGet, "/teammates?workspace_id=ws-1", nil)
	w := httptest.NewRecorder()

	handler.ListTeammates(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].([]interface{})
	assert.Len(t, data, 1)
	mockSvc.AssertExpectations(t)
}
