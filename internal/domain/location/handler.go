package location

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecobin/ecobin-api/internal/pkg/errorhandler"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
	"github.com/ecobin/ecobin-api/internal/pkg/response"
)

// ValidateRequest carries raw GPS coordinates. Range checks happen in the
// validator so out-of-range input yields a zero score instead of a 422.
type ValidateRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type Handler struct {
	validator *Validator
}

func NewHandler(v *Validator) *Handler {
	return &Handler{validator: v}
}

// Validate scores a coordinate
// POST /locations/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		response.ValidationError(w, map[string]string{"latitude": "This field is required", "longitude": "This field is required"})
		return
	}

	res, err := h.validator.Validate(r.Context(), geo.Point{Lat: *req.Latitude, Lng: *req.Longitude})
	if err != nil {
		errorhandler.HandleStorageError(r.Context(), w, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/validate", h.Validate)
	return r
}
