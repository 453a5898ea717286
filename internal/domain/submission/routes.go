package submission

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the tourist-facing routes, mounted at /submissions.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/mine", h.ListMine)
	r.Get("/{id}", h.Get)

	return r
}

// ModerationRoutes returns the review routes, mounted at
// /moderation/submissions.
func (h *Handler) ModerationRoutes(authMiddleware, moderatorMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(moderatorMiddleware)

	r.Get("/", h.Queue)
	r.Get("/{id}", h.Review)
	r.Get("/{id}/events", h.Events)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)

	return r
}
