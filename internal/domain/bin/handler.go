package bin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/pkg/errorhandler"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
	"github.com/ecobin/ecobin-api/internal/pkg/response"
	"github.com/ecobin/ecobin-api/internal/pkg/validator"
)

// Handler handles bin registry HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates bin handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListActive lists active bins
// GET /bins
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	bins, err := h.service.ListActive(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, bins)
}

// InBounds lists active bins inside a lat/lng box
// GET /bins/bounds?min_lat=&min_lng=&max_lat=&max_lng=
func (h *Handler) InBounds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minLat, err1 := strconv.ParseFloat(q.Get("min_lat"), 64)
	minLng, err2 := strconv.ParseFloat(q.Get("min_lng"), 64)
	maxLat, err3 := strconv.ParseFloat(q.Get("max_lat"), 64)
	maxLng, err4 := strconv.ParseFloat(q.Get("max_lng"), 64)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		response.BadRequest(w, "min_lat, min_lng, max_lat and max_lng are required numbers")
		return
	}

	bins, err := h.service.FindInBounds(r.Context(), geo.Box{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, bins)
}

// Nearest finds the closest active bin
// GET /bins/nearest?lat=&lng=&max_distance=
func (h *Handler) Nearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		response.BadRequest(w, "lat and lng are required numbers")
		return
	}

	maxDistance := DefaultSearchRadiusMeters
	if raw := q.Get("max_distance"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			response.BadRequest(w, "max_distance must be a positive number")
			return
		}
		maxDistance = v
	}

	nearest, err := h.service.FindNearest(r.Context(), geo.Point{Lat: lat, Lng: lng}, maxDistance)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if nearest == nil {
		response.OK(w, NearestResponse{Found: false})
		return
	}
	response.OK(w, NearestResponse{Found: true, Bin: nearest.Bin, DistanceMeters: nearest.DistanceMeters})
}

// Stats returns coverage statistics
// GET /bins/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CoverageStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, stats)
}

// Upsert creates or updates a bin (admin only)
// POST /bins
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	b, err := h.service.Upsert(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, b)
}

// Deactivate deactivates a bin (admin only)
// DELETE /bins/{id}
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid bin ID")
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinates):
		response.UnprocessableEntity(w, "INVALID_COORDINATES", "Invalid GPS coordinates")
	case errors.Is(err, ErrInvalidRadius), errors.Is(err, ErrNameRequired):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrBinNotFound):
		response.NotFound(w, "Bin not found")
	default:
		errorhandler.HandleStorageError(r.Context(), w, err)
	}
}
