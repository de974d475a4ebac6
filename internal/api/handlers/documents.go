package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-ai/veldt/internal/api"
	"github.com/veldt-ai/veldt/internal/api/middleware"
	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/service"
)

type DocumentService interface {
	Upload(ctx context.Context, assistantID string, input service.UploadInput) (*domain.Document, error)
	ProcessPending(ctx context.Context, assistantID string) ([]service.BatchResult, error)
	Status(ctx context.Context, assistantID string) (*service.KnowledgeStatus, error)
	ListDocuments(ctx context.Context, assistantID, cursorToken string, limit int) (*service.DocumentPage, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// AssistantResolver resolves assistant ownership for authorization.
type AssistantResolver interface {
	GetAssistant(ctx context.Context, id string) (*domain.Assistant, error)
	TenantForTeammate(ctx context.Context, teammateID string) (string, error)
}

type DocumentHandler struct {
	svc      DocumentService
	resolver AssistantResolver
}

func NewDocumentHandler(svc DocumentService, resolver AssistantResolver) *DocumentHandler {
	return &DocumentHandler{svc: svc, resolver: resolver}
}

type UploadDocumentRequest struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type,omitempty"`
	// Content carries plain text; ContentBase64 carries binary uploads such
	// as scanned PDFs. Exactly one must be set.
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
}

type DocumentResponse struct {
	ID              string `json:"id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	FileName        string `json:"file_name"`
	FileType        string `json:"file_type"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ChunkCount      int    `json:"chunk_count"`
	TagCount        int    `json:"tag_count"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:              d.ID,
		KnowledgeBaseID: d.KnowledgeBaseID,
		FileName:        d.FileName,
		FileType:        d.FileType,
		Status:          string(d.Status),
		ErrorMessage:    d.ErrorMessage,
		ChunkCount:      d.ChunkCount,
		TagCount:        d.TagCount,
		CreatedAt:       d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       d.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	assistantID := chi.URLParam(r, "id")
	if assistantID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if !h.authorizeAssistant(w, r, tenantID, assistantID) {
		return
	}

	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FileName == "" {
		api.Error(w, http.StatusBadRequest, "file_name is required")
		return
	}
	if req.Content == "" && req.ContentBase64 == "" {
		api.Error(w, http.StatusBadRequest, "content or content_base64 is required")
		return
	}
	if req.Content != "" && req.ContentBase64 != "" {
		api.Error(w, http.StatusBadRequest, "content and content_base64 are mutually exclusive")
		return
	}

	content := []byte(req.Content)
	if req.ContentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid base64 content")
			return
		}
		content = decoded
	}

	doc, err := h.svc.Upload(r.Context(), assistantID, service.UploadInput{
		FileName: req.FileName,
		FileType: req.FileType,
		Content:  content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

func (h *DocumentHandler) ProcessPending(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	assistantID := chi.URLParam(r, "id")
	if assistantID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if !h.authorizeAssistant(w, r, tenantID, assistantID) {
		return
	}

	results, err := h.svc.ProcessPending(r.Context(), assistantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if results == nil {
		results = []service.BatchResult{}
	}
	api.Success(w, http.StatusOK, results)
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	assistantID := chi.URLParam(r, "id")
	if assistantID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if !h.authorizeAssistant(w, r, tenantID, assistantID) {
		return
	}

	status, err := h.svc.Status(r.Context(), assistantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, status)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	assistantID := chi.URLParam(r, "id")
	if assistantID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if !h.authorizeAssistant(w, r, tenantID, assistantID) {
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.ListDocuments(r.Context(), assistantID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *DocumentHandler) authorizeAssistant(w http.ResponseWriter, r *http.Request, tenantID, assistantID string) bool {
	assistant, err := h.resolver.GetAssistant(r.Context(), assistantID)
	if err != nil {
		api.HandleError(w, err)
		return false
	}

	owner, err := h.resolver.TenantForTeammate(r.Context(), assistant.TeammateID)
	if err != nil {
		api.HandleError(w, err)
		return false
	}
	if owner != tenantID {
		api.Error(w, http.StatusNotFound, "assistant not found")
		return false
	}
	return true
}
