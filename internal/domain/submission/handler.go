package submission

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/domain/fraud"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
	"github.com/ecobin/ecobin-api/internal/middleware"
	"github.com/ecobin/ecobin-api/internal/pkg/errorhandler"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
	"github.com/ecobin/ecobin-api/internal/pkg/response"
	"github.com/ecobin/ecobin-api/internal/pkg/validator"
)

// Handler handles submission HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates submission handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create records a disposal video
// POST /submissions
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

	sub, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, sub)
}

// ListMine returns the caller's submissions
// GET /submissions/mine?page=&limit=
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	subs, total, err := h.service.ListMine(r.Context(), middleware.GetUserID(r.Context()), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WithMeta(w, subs, response.NewMeta(total, page, limit))
}

// Get returns one submission. Tourists only see their own.
// GET /submissions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	sub, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if sub.UserID != middleware.GetUserID(r.Context()) && !isStaff(middleware.GetRole(r.Context())) {
		response.NotFound(w, "Submission not found")
		return
	}
	response.OK(w, sub)
}

// Queue returns submissions awaiting review
// GET /moderation/submissions?page=&limit=
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	items, total, err := h.service.ListForReview(r.Context(), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// Review returns one submission with its video link
// GET /moderation/submissions/{id}
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.GetWithVideo(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, resp)
}

// Approve approves a submission
// POST /moderation/submissions/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req ApproveRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Approve(r.Context(), id, middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, result)
}

// Reject rejects a submission
// POST /moderation/submissions/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Reject(r.Context(), id, middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, result)
}

// Events returns the audit trail
// GET /moderation/submissions/{id}/events
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	events, err := h.service.Events(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, events)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinates):
		response.UnprocessableEntity(w, "INVALID_COORDINATES", "Invalid GPS coordinates")
	case errors.Is(err, ErrVideoNotFound):
		response.UnprocessableEntity(w, "VIDEO_NOT_FOUND", "Video not found in storage")
	case errors.Is(err, ErrInvalidAutoScore), errors.Is(err, ErrReasonRequired), errors.Is(err, fraud.ErrReasonRequired):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Submission not found")
	case errors.Is(err, ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", "Submission cannot move to that status")
	case errors.Is(err, wallet.ErrDuplicateReference):
		response.Conflict(w, "Reward already recorded")
	default:
		errorhandler.HandleStorageError(r.Context(), w, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid submission ID")
		return uuid.Nil, false
	}
	return id, true
}

func paging(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func isStaff(role string) bool {
	switch role {
	case middleware.RoleModerator, middleware.RoleCouncil, middleware.RoleAdmin:
		return true
	}
	return false
}
