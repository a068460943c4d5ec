package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/parish/internal/application/listing"
	"github.com/rezkam/parish/internal/domain"
)

// Lister is the listing service as seen by the HTTP layer.
type Lister interface {
	List(ctx context.Context, resource string, q listing.Query) (*domain.PageResult, error)
	Resources() []string
}

// ListHandler serves the read-only list endpoints.
type ListHandler struct {
	lister Lister
}

// NewListHandler creates a new HTTP list handler.
func NewListHandler(lister Lister) *ListHandler {
	return &ListHandler{lister: lister}
}

// NewRouter mounts the list routes:
//
//	GET /            resource names
//	GET /{resource}  one page of a resource
func NewRouter(lister Lister) http.Handler {
	h := NewListHandler(lister)

	r := chi.NewRouter()
	r.Get("/", h.ListResources)
	r.Get("/{resource}", h.ListResource)
	return r
}
