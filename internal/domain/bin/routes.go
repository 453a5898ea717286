package bin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns bin routes. Reads are public; writes need adminMiddleware.
func (h *Handler) Routes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListActive)
	r.Get("/bounds", h.InBounds)
	r.Get("/nearest", h.Nearest)
	r.Get("/stats", h.Stats)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)
		r.Post("/", h.Upsert)
		r.Delete("/{id}", h.Deactivate)
	})

	return r
}
