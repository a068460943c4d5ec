package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/parish/internal/infrastructure/http/response"
)

// ResourcesResponse lists the resources that can be paged.
type ResourcesResponse struct {
	Resources []string `json:"resources"`
}

// ListResources returns the listable resource names.
// GET /api/v1
func (h *ListHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	response.OK(w, ResourcesResponse{Resources: h.lister.Resources()})
}

// ListResource returns one page of a resource.
// GET /api/v1/{resource}
func (h *ListHandler) ListResource(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")

	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		slog.WarnContext(r.Context(), "invalid list query via HTTP",
			"resource", resource,
			"query", r.URL.RawQuery,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	result, err := h.lister.List(r.Context(), resource, q)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list resource via HTTP",
			"resource", resource,
			"page", q.Page,
			"page_size", q.PageSize,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, result)
}
