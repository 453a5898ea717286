package cashout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns user routes, mounted at /cashouts.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/mine", h.ListMine)
	r.Post("/{id}/cancel", h.CancelMine)

	return r
}

// FinanceRoutes returns operator routes, mounted at /finance/cashouts.
func (h *Handler) FinanceRoutes(authMiddleware, financeMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(financeMiddleware)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/events", h.Events)
	r.Post("/{id}/initiate", h.Initiate)
	r.Post("/{id}/retry", h.Retry)
	r.Post("/{id}/mark", h.Mark)
	r.Post("/{id}/cancel", h.Cancel)

	return r
}
