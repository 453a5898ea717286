package fraud

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

// Create raises a flag
// POST /moderation/flags
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	f, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		if errors.Is(err, ErrReasonRequired) {
			response.BadRequest(w, err.Error())
			return
		}
		errorhandler.HandleStorageError(r.Context(), w, err)
		return
	}
	response.Created(w, f)
}

// List returns flags, optionally for one user
// GET /moderation/flags?user_id=&page=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if raw := q.Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid user ID")
			return
		}
		flags, err := h.service.ListByUser(r.Context(), userID)
		if err != nil {
			errorhandler.HandleStorageError(r.Context(), w, err)
			return
		}
		response.OK(w, flags)
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	flags, total, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		errorhandler.HandleStorageError(r.Context(), w, err)
		return
	}
	response.WithMeta(w, flags, response.NewMeta(total, page, limit))
}

// Routes mounts under /moderation/flags; callers apply auth and role checks.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}
