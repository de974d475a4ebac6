package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-ai/veldt/internal/api"
	"github.com/veldt-ai/veldt/internal/api/middleware"
	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/service"
)

// QueryTenancy resolves the teammate, assistant and ownership for a query.
type QueryTenancy interface {
	GetTeammate(ctx context.Context, id string) (*domain.Teammate, error)
	GetAssistantForTeammate(ctx context.Context, teammateID string) (*domain.Assistant, error)
	TenantForTeammate(ctx context.Context, teammateID string) (string, error)
}

// KnowledgeBaseResolver maps an assistant to its knowledge base.
type KnowledgeBaseResolver interface {
	KnowledgeBaseForAssistant(ctx context.Context, assistantID string) (*domain.KnowledgeBase, error)
}

// Answerer runs retrieval-grounded generation for one query.
type Answerer interface {
	Answer(ctx context.Context, input service.AnswerInput) (*domain.InferenceResult, error)
}

type QueryHandler struct {
	tenancy QueryTenancy
	kb      KnowledgeBaseResolver
	router  Answerer
}

func NewQueryHandler(tenancy QueryTenancy, kb KnowledgeBaseResolver, router Answerer) *QueryHandler {
	return &QueryHandler{tenancy: tenancy, kb: kb, router: router}
}

type QueryRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
	TopK  int    `json:"top_k,omitempty"`
}

type QueryResponse struct {
	Answer           string          `json:"answer"`
	ReasoningSteps   []string        `json:"reasoning_steps,omitempty"`
	Sources          []domain.Source `json:"sources"`
	ModelUsed        string          `json:"model_used"`
	Mode             string          `json:"inference_mode"`
	ProcessingTimeMS int64           `json:"processing_time_ms"`
}

// Query answers one question addressed to a teammate. Mode and top_k default
// to the teammate's routing policy when the request leaves them unset.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	teammateID := chi.URLParam(r, "id")
	if teammateID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	owner, err := h.tenancy.TenantForTeammate(r.Context(), teammateID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if owner != tenantID {
		api.Error(w, http.StatusNotFound, "teammate not found")
		return
	}

	teammate, err := h.tenancy.GetTeammate(r.Context(), teammateID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	assistant, err := h.tenancy.GetAssistantForTeammate(r.Context(), teammateID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	mode := teammate.Routing.DefaultMode
	if req.Mode != "" {
		mode = domain.InferenceMode(req.Mode)
	}
	topK := teammate.Routing.TopK
	if req.TopK > 0 {
		topK = req.TopK
	}

	// An assistant with no uploads yet has no knowledge base. Generation still
	// runs; retrieval simply finds nothing.
	knowledgeBaseID := ""
	kb, err := h.kb.KnowledgeBaseForAssistant(r.Context(), assistant.ID)
	if err != nil && !errors.Is(err, domain.ErrKnowledgeBaseNotFound) {
		api.HandleError(w, err)
		return
	}
	if kb != nil {
		knowledgeBaseID = kb.ID
	}

	result, err := h.router.Answer(r.Context(), service.AnswerInput{
		KnowledgeBaseID: knowledgeBaseID,
		SystemPrompt:    assistant.SystemPrompt,
		Query:           req.Query,
		Mode:            mode,
		TopK:            topK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Answer:           result.Answer,
		ReasoningSteps:   result.ReasoningSteps,
		Sources:          result.Sources,
		ModelUsed:        result.ModelUsed,
		Mode:             string(result.Mode),
		ProcessingTimeMS: result.ProcessingTime.Milliseconds(),
	})
}
