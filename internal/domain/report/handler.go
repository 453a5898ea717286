package report

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ecobin/ecobin-api/internal/pkg/errorhandler"
	"github.com/ecobin/ecobin-api/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Council returns submission and coverage aggregates
// GET /reports/council?from=&to=
func (h *Handler) Council(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	rep, err := h.service.Council(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, rep)
}

// Finance returns cashout aggregates
// GET /reports/finance?from=&to=
func (h *Handler) Finance(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	rep, err := h.service.Finance(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, rep)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrInvalidPeriod) {
		response.BadRequest(w, err.Error())
		return
	}
	errorhandler.HandleStorageError(r.Context(), w, err)
}

// parsePeriod accepts RFC 3339 timestamps or plain dates.
func parsePeriod(w http.ResponseWriter, r *http.Request) (Period, bool) {
	var p Period
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"from", &p.From}, {"to", &p.To}} {
		raw := r.URL.Query().Get(f.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			t, err = time.Parse(time.DateOnly, raw)
		}
		if err != nil {
			response.BadRequest(w, "Invalid "+f.name+" date")
			return Period{}, false
		}
		*f.dst = t
	}
	return p, true
}

// Routes mounts under /reports. Council data is open to council and
// moderators; finance data to finance.
func (h *Handler) Routes(authMiddleware, councilMiddleware, financeMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.With(councilMiddleware).Get("/council", h.Council)
	r.With(financeMiddleware).Get("/finance", h.Finance)
	return r
}
