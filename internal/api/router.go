package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tokodata/internal/datasvc"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *datasvc.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Collection reads and mutations.
	r.Get("/collections/{name}", h.GetCollection)
	r.Post("/collections/{name}/records", h.CreateRecord)
	r.Put("/collections/{name}/records", h.UpdateRecord)
	r.Delete("/collections/{name}/records", h.DeleteRecord)

	// Cache introspection and control.
	r.Get("/cache", h.Cache)
	r.Post("/cache/prefetch", h.Prefetch)
	r.Delete("/cache/{name}", h.InvalidateCollection)

	// Summaries.
	r.Get("/dashboard", h.Dashboard)
	r.Get("/revenue", h.Revenue)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
