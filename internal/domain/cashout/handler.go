package cashout

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/domain/wallet"
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

// Create redeems points
// POST /cashouts
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

	out, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, out)
}

// ListMine returns the caller's requests
// GET /cashouts/mine
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	items, total, err := h.service.ListMine(r.Context(), middleware.GetUserID(r.Context()), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// CancelMine cancels the caller's own request
// POST /cashouts/{id}/cancel
func (h *Handler) CancelMine(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, false)
}

// List returns requests for finance
// GET /finance/cashouts?status=&page=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	f := ListFilter{Page: page, Limit: limit}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		st := Status(strings.ToUpper(raw))
		f.Status = &st
	}

	items, total, err := h.service.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// Get returns one request
// GET /finance/cashouts/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	out, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, out)
}

// Events returns who moved the request and why
// GET /finance/cashouts/{id}/events
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

// Initiate starts the payout
// POST /finance/cashouts/{id}/initiate
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	out, err := h.service.Initiate(r.Context(), id, middleware.GetUserID(r.Context()))
	h.payoutResult(w, r, out, err)
}

// Retry re-sends a failed payout
// POST /finance/cashouts/{id}/retry
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	out, err := h.service.Retry(r.Context(), id, middleware.GetUserID(r.Context()))
	h.payoutResult(w, r, out, err)
}

// Mark records the payout outcome
// POST /finance/cashouts/{id}/mark
func (h *Handler) Mark(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req MarkRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	out, err := h.service.Mark(r.Context(), id, middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, out)
}

// Cancel cancels any request and refunds the points
// POST /finance/cashouts/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, true)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request, staff bool) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	out, err := h.service.Cancel(r.Context(), id, middleware.GetUserID(r.Context()), staff)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, out)
}

func (h *Handler) payoutResult(w http.ResponseWriter, r *http.Request, out *Request, err error) {
	if errors.Is(err, ErrPayoutFailed) {
		errorhandler.LogExternalServiceError(r.Context(), "payout", "/api/v1/payouts", 0, err, "")
		response.BadGateway(w, "Payout provider rejected the request; it has been marked FAILED")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, out)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInsufficientPoints):
		response.UnprocessableEntity(w, "INSUFFICIENT_POINTS", "Not enough points")
	case isClientError(err):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Cashout request not found")
	case errors.Is(err, ErrAlreadyTerminal):
		response.Error(w, http.StatusConflict, "ALREADY_TERMINAL", "Cashout request is already final")
	case errors.Is(err, ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", "Cashout request cannot move to that status")
	case errors.Is(err, wallet.ErrInsufficientCash), errors.Is(err, wallet.ErrDuplicateReference):
		errorhandler.HandleError(r.Context(), w, http.StatusConflict, "WALLET_CONFLICT", "Wallet state does not allow this change", err)
	default:
		errorhandler.HandleStorageError(r.Context(), w, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid cashout ID")
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
