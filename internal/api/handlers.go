package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tokodata/internal/apperr"
	"github.com/starford/tokodata/internal/datasvc"
	"github.com/starford/tokodata/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *datasvc.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *datasvc.Service) *Handler {
	return &Handler{svc: svc}
}

// GetCollection handles GET /api/collections/{name}.
//
//	@Summary		Read one collection through the cache
//	@Tags			collections
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Param			refresh	query		bool	false	"Bypass the freshness window"
//	@Success		200		{object}	CollectionResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name} [get]
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	refresh := r.URL.Query().Get("refresh") == "1" || r.URL.Query().Get("refresh") == "true"

	res, err := h.svc.GetCollection(r.Context(), name, refresh)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("unknown collection"))
		return
	}
	writeJSON(w, http.StatusOK, collectionBody(res))
}

// CreateRecord handles POST /api/collections/{name}/records.
//
//	@Summary		Create a record at the source
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Collection name"
//	@Param			body	body		MutateRequest	true	"Record to create"
//	@Success		201		{object}	MutateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name}/records [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.CreateRecord, http.StatusCreated)
}

// UpdateRecord handles PUT /api/collections/{name}/records.
//
//	@Summary		Update a record at the source
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Collection name"
//	@Param			body	body		MutateRequest	true	"Updated record"
//	@Success		200		{object}	MutateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name}/records [put]
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.UpdateRecord, http.StatusOK)
}

// DeleteRecord handles DELETE /api/collections/{name}/records. The
// body identifies the record the way the source expects.
//
//	@Summary		Delete a record at the source
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Collection name"
//	@Param			body	body		MutateRequest	true	"Record identifier"
//	@Success		200		{object}	MutateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name}/records [delete]
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.DeleteRecord, http.StatusOK)
}

type mutateFunc func(ctx context.Context, name string, payload models.Record) (models.Record, error)

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn mutateFunc, okStatus int) {
	name := chi.URLParam(r, "name")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Record) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("record is required"))
		return
	}

	out, err := fn(r.Context(), name, req.Record)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnknownCollection):
			writeJSON(w, http.StatusNotFound, errorBody("unknown collection"))
		case errors.Is(err, apperr.ErrReadOnlySource):
			writeJSON(w, http.StatusForbidden, errorBody("source is read-only"))
		case errors.Is(err, apperr.ErrTransport), errors.Is(err, apperr.ErrFormat):
			slog.Error("mutation failed", slog.String("collection", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("source unavailable"))
		default:
			slog.Error("mutation failed", slog.String("collection", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, okStatus, MutateResponse{Result: out})
}

// Cache handles GET /api/cache.
//
//	@Summary		Inspect cache contents and freshness
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	CacheResponse
//	@Security		BearerAuth
//	@Router			/cache [get]
func (h *Handler) Cache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Cache())
}

// Prefetch handles POST /api/cache/prefetch.
//
//	@Summary		Warm the cache for every collection
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	PrefetchResponse
//	@Security		BearerAuth
//	@Router			/cache/prefetch [post]
func (h *Handler) Prefetch(w http.ResponseWriter, r *http.Request) {
	statuses := h.svc.Prefetch(r.Context())
	writeJSON(w, http.StatusOK, PrefetchResponse{Collections: statuses})
}

// InvalidateCollection handles DELETE /api/cache/{name}.
//
//	@Summary		Drop the cached copy of one collection
//	@Tags			cache
//	@Param			name	path	string	true	"Collection name"
//	@Success		204		"Cache entry dropped"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cache/{name} [delete]
func (h *Handler) InvalidateCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.svc.InvalidateCollection(name); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("unknown collection"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard handles GET /api/dashboard.
//
//	@Summary		Record counts and total revenue
//	@Tags			summary
//	@Produce		json
//	@Success		200	{object}	DashboardResponse
//	@Security		BearerAuth
//	@Router			/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Dashboard(r.Context()))
}

// Revenue handles GET /api/revenue.
//
//	@Summary		Reconciled revenue summary
//	@Tags			summary
//	@Produce		json
//	@Success		200	{object}	RevenueResponse
//	@Security		BearerAuth
//	@Router			/revenue [get]
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Revenue(r.Context()))
}
