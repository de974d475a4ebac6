package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-ai/veldt/internal/api"
	"github.com/veldt-ai/veldt/internal/api/middleware"
	"github.com/veldt-ai/veldt/internal/domain"
)

type TenancyService interface {
	CreateWorkspace(ctx context.Context, tenantID, name string) (*domain.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error)
	ListWorkspaces(ctx context.Context, tenantID string) ([]*domain.Workspace, error)
	CreateTeammate(ctx context.Context, workspaceID, name string, routing *domain.RoutingPolicy) (*domain.Teammate, *domain.Assistant, error)
	GetTeammate(ctx context.Context, id string) (*domain.Teammate, error)
	ListTeammates(ctx context.Context, workspaceID string) ([]*domain.Teammate, error)
	UpdateRoutingPolicy(ctx context.Context, teammateID string, policy domain.RoutingPolicy) (*domain.Teammate, error)
	GetAssistant(ctx context.Context, id string) (*domain.Assistant, error)
	SetInstruction(ctx context.Context, assistantID, systemPrompt string) (*domain.Assistant, error)
	TenantForTeammate(ctx context.Context, teammateID string) (string, error)
}

type TenancyHandler struct {
	svc TenancyService
}

func NewTenancyHandler(svc TenancyService) *TenancyHandler {
	return &TenancyHandler{svc: svc}
}

type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

type WorkspaceResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type RoutingPolicyRequest struct {
	DefaultMode string `json:"default_mode"`
	TopK        int    `json:"top_k"`
}

type CreateTeammateRequest struct {
	WorkspaceID string                `json:"workspace_id"`
	Name        string                `json:"name"`
	Routing     *RoutingPolicyRequest `json:"routing,omitempty"`
}

type TeammateResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	AssistantID string `json:"assistant_id,omitempty"`
	DefaultMode string `json:"default_mode"`
	TopK        int    `json:"top_k"`
	CreatedAt   string `json:"created_at"`
}

type SetInstructionRequest struct {
	SystemPrompt string `json:"system_prompt"`
}

type AssistantResponse struct {
	ID           string `json:"id"`
	TeammateID   string `json:"teammate_id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	CreatedAt    string `json:"created_at"`
}

func workspaceToResponse(ws *domain.Workspace) *WorkspaceResponse {
	return &WorkspaceResponse{
		ID:        ws.ID,
		TenantID:  ws.TenantID,
		Name:      ws.Name,
		CreatedAt: ws.CreatedAt.Format(time.RFC3339),
	}
}

func teammateToResponse(tm *domain.Teammate) *TeammateResponse {
	return &TeammateResponse{
		ID:          tm.ID,
		WorkspaceID: tm.WorkspaceID,
		Name:        tm.Name,
		DefaultMode: string(tm.Routing.DefaultMode),
		TopK:        tm.Routing.TopK,
		CreatedAt:   tm.CreatedAt.Format(time.RFC3339),
	}
}

func assistantToResponse(a *domain.Assistant) *AssistantResponse {
	return &AssistantResponse{
		ID:           a.ID,
		TeammateID:   a.TeammateID,
		Name:         a.Name,
		SystemPrompt: a.SystemPrompt,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
}

func (h *TenancyHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	workspace, err := h.svc.CreateWorkspace(r.Context(), tenantID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, workspaceToResponse(workspace))
}

func (h *TenancyHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	workspaces, err := h.svc.ListWorkspaces(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*WorkspaceResponse, len(workspaces))
	for i, ws := range workspaces {
		responses[i] = workspaceToResponse(ws)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *TenancyHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	workspace, err := h.svc.GetWorkspace(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if workspace.TenantID != tenantID {
		api.Error(w, http.StatusNotFound, "workspace not found")
		return
	}

	api.Success(w, http.StatusOK, workspaceToResponse(workspace))
}

func (h *TenancyHandler) CreateTeammate(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateTeammateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.WorkspaceID == "" {
		api.Error(w, http.StatusBadRequest, "workspace_id is required")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	workspace, err := h.svc.GetWorkspace(r.Context(), req.WorkspaceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if workspace.TenantID != tenantID {
		api.Error(w, http.StatusNotFound, "workspace not found")
		return
	}

	var routing *domain.RoutingPolicy
	if req.Routing != nil {
		routing = &domain.RoutingPolicy{
			DefaultMode: domain.InferenceMode(req.Routing.DefaultMode),
			TopK:        req.Routing.TopK,
		}
	}

	teammate, assistant, err := h.svc.CreateTeammate(r.Context(), req.WorkspaceID, req.Name, routing)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := teammateToResponse(teammate)
	resp.AssistantID = assistant.ID
	api.Success(w, http.StatusCreated, resp)
}

func (h *TenancyHandler) ListTeammates(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		api.Error(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	workspace, err := h.svc.GetWorkspace(r.Context(), workspaceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if workspace.TenantID != tenantID {
		api.Error(w, http.StatusNotFound, "workspace not found")
		return
	}

	teammates, err := h.svc.ListTeammates(r.Context(), workspaceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*TeammateResponse, len(teammates))
	for i, tm := range teammates {
		responses[i] = teammateToResponse(tm)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *TenancyHandler) GetTeammate(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if !h.authorizeTeammate(w, r, tenantID, id) {
		return
	}

	teammate, err := h.svc.GetTeammate(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, teammateToResponse(teammate))
}

func (h *TenancyHandler) UpdateRouting(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req RoutingPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.authorizeTeammate(w, r, tenantID, id) {
		return
	}

	teammate, err := h.svc.UpdateRoutingPolicy(r.Context(), id, domain.RoutingPolicy{
		DefaultMode: domain.InferenceMode(req.DefaultMode),
		TopK:        req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, teammateToResponse(teammate))
}

func (h *TenancyHandler) GetAssistant(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	assistant, err := h.svc.GetAssistant(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if !h.authorizeTeammate(w, r, tenantID, assistant.TeammateID) {
		return
	}

	api.Success(w, http.StatusOK, assistantToResponse(assistant))
}

func (h *TenancyHandler) SetInstruction(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req SetInstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assistant, err := h.svc.GetAssistant(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if !h.authorizeTeammate(w, r, tenantID, assistant.TeammateID) {
		return
	}

	updated, err := h.svc.SetInstruction(r.Context(), id, req.SystemPrompt)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, assistantToResponse(updated))
}

// authorizeTeammate writes an error response and returns false when the
// teammate does not belong to the caller's tenant. Foreign resources read as
// not found, never as forbidden.
func (h *TenancyHandler) authorizeTeammate(w http.ResponseWriter, r *http.Request, tenantID, teammateID string) bool {
	owner, err := h.svc.TenantForTeammate(r.Context(), teammateID)
	if err != nil {
		api.HandleError(w, err)
		return false
	}
	if owner != tenantID {
		api.Error(w, http.StatusNotFound, "teammate not found")
		return false
	}
	return true
}
