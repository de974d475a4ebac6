package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-ai/veldt/internal/api"
	"github.com/veldt-ai/veldt/internal/api/handlers"
	"github.com/veldt-ai/veldt/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	AuthHandler     *handlers.AuthHandler
	TenancyHandler  *handlers.TenancyHandler
	DocumentHandler *handlers.DocumentHandler
	QueryHandler    *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 20 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/workspaces", func(r chi.Router) {
			r.Post("/", cfg.TenancyHandler.CreateWorkspace)
			r.Get("/", cfg.TenancyHandler.ListWorkspaces)
			r.Get("/{id}", cfg.TenancyHandler.GetWorkspace)
		})

		r.Route("/teammates", func(r chi.Router) {
			r.Post("/", cfg.TenancyHandler.CreateTeammate)
			r.Get("/", cfg.TenancyHandler.ListTeammates)
			r.Get("/{id}", cfg.TenancyHandler.GetTeammate)
			r.Put("/{id}/routing", cfg.TenancyHandler.UpdateRouting)
			r.Post("/{id}/query", cfg.QueryHandler.Query)
		})

		r.Route("/assistants", func(r chi.Router) {
			r.Get("/{id}", cfg.TenancyHandler.GetAssistant)
			r.Put("/{id}/instruction", cfg.TenancyHandler.SetInstruction)
			r.Post("/{id}/documents", cfg.DocumentHandler.Upload)
			r.Get("/{id}/documents", cfg.DocumentHandler.List)
			r.Post("/{id}/documents/process", cfg.DocumentHandler.ProcessPending)
			r.Get("/{id}/knowledge/status", cfg.DocumentHandler.Status)
		})
	})

	r.Post("/tenants", cfg.AuthHandler.CreateTenant)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
