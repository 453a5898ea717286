package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/middleware"
	"github.com/ecobin/ecobin-api/internal/pkg/errorhandler"
	"github.com/ecobin/ecobin-api/internal/pkg/response"
	"github.com/ecobin/ecobin-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Provision makes sure the caller has a users row. Mount after Auth.
func (h *Handler) Provision(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		err := h.service.Ensure(ctx, middleware.GetUserID(ctx), middleware.GetRole(ctx))
		switch {
		case errors.Is(err, ErrUserBanned):
			response.Forbidden(w, "Account is banned")
			return
		case err != nil:
			errorhandler.HandleStorageError(ctx, w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Me returns the caller
// GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, u)
}

// List handles GET /admin/users?role=&page=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	users, total, err := h.service.List(r.Context(), r.URL.Query().Get("role"), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WithMeta(w, users, response.NewMeta(total, page, limit))
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=tourist moderator council finance admin"`
}

// UpdateRole handles PATCH /admin/users/{id}/role
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req UpdateRoleRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.service.UpdateRole(r.Context(), id, req.Role, middleware.GetUserID(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// Ban handles POST /admin/users/{id}/ban
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, true)
}

// Unban handles POST /admin/users/{id}/unban
func (h *Handler) Unban(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, false)
}

func (h *Handler) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	if err := h.service.SetBanned(r.Context(), id, banned, middleware.GetUserID(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, ErrInvalidRole):
		response.BadRequest(w, err.Error())
	default:
		errorhandler.HandleStorageError(r.Context(), w, err)
	}
}

// AdminRoutes mounts under /admin/users.
func (h *Handler) AdminRoutes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminMiddleware)

	r.Get("/", h.List)
	r.Patch("/{id}/role", h.UpdateRole)
	r.Post("/{id}/ban", h.Ban)
	r.Post("/{id}/unban", h.Unban)

	return r
}
