package submission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/middleware"
)

// asUser injects an identity the way the auth middleware would.
func asUser(userID uuid.UUID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), userID, role)))
		})
	}
}

func passThrough(next http.Handler) http.Handler { return next }

func newTestRouter(svc *Service, userID uuid.UUID, role string) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Mount("/submissions", h.Routes(asUser(userID, role)))
	r.Mount("/moderation/submissions", h.ModerationRoutes(asUser(userID, role), passThrough))
	return r
}

func do(router http.Handler, method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateHandler(t *testing.T) {
	store := newMemStore()
	user := uuid.New()
	router := newTestRouter(newTestService(store, verdict(0.4)), user, middleware.RoleTourist)

	w := do(router, http.MethodPost, "/submissions",
		`{"latitude":10.0003,"longitude":76,"recorded_at":"2026-03-01T11:00:00Z","storage_key":"videos/a.mp4"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Data Submission `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.UserID != user || body.Data.Status != StatusNeedsReview {
		t.Fatalf("unexpected body %+v", body.Data)
	}
}

func TestCreateHandlerValidation(t *testing.T) {
	router := newTestRouter(newTestService(newMemStore(), verdict(0.4)), uuid.New(), middleware.RoleTourist)

	cases := []struct {
		body string
		want int
	}{
		{`{`, http.StatusBadRequest},
		{`{"latitude":10,"longitude":76,"recorded_at":"2026-03-01T11:00:00Z"}`, http.StatusUnprocessableEntity},
		{`{"latitude":95,"longitude":76,"recorded_at":"2026-03-01T11:00:00Z","storage_key":"k"}`, http.StatusUnprocessableEntity},
		{`{"latitude":10,"longitude":76,"recorded_at":"2026-03-01T11:00:00Z","storage_key":"k","auto_score":2}`, http.StatusUnprocessableEntity},
		{`{"latitude":10,"longitude":76,"recorded_at":"2026-03-01T11:00:00Z","storage_key":"k","auto_score":0.5}`, http.StatusCreated},
	}
	for _, c := range cases {
		if w := do(router, http.MethodPost, "/submissions", c.body); w.Code != c.want {
			t.Fatalf("%s: expected %d, got %d: %s", c.body, c.want, w.Code, w.Body.String())
		}
	}
}

func TestApproveHandlerConflictOnSecondCall(t *testing.T) {
	store := newMemStore()
	sub := seed(store, StatusNeedsReview, nil)
	router := newTestRouter(newTestService(store, verdict(0.4)), uuid.New(), middleware.RoleModerator)

	url := "/moderation/submissions/" + sub.ID.String() + "/approve"
	if w := do(router, http.MethodPost, url, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w := do(router, http.MethodPost, url, `{"reason":"again"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INVALID_TRANSITION") {
		t.Fatalf("expected INVALID_TRANSITION code, got %s", w.Body.String())
	}
}

func TestRejectHandlerRequiresReason(t *testing.T) {
	store := newMemStore()
	sub := seed(store, StatusNeedsReview, nil)
	router := newTestRouter(newTestService(store, verdict(0.4)), uuid.New(), middleware.RoleModerator)

	url := "/moderation/submissions/" + sub.ID.String() + "/reject"
	if w := do(router, http.MethodPost, url, `{"reason":"   "}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if w := do(router, http.MethodPost, url, `{"reason":"not a bin"}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetHandlerHidesOtherUsersSubmissions(t *testing.T) {
	store := newMemStore()
	sub := seed(store, StatusNeedsReview, nil)

	stranger := newTestRouter(newTestService(store, verdict(0.4)), uuid.New(), middleware.RoleTourist)
	if w := do(stranger, http.MethodGet, "/submissions/"+sub.ID.String(), ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for stranger, got %d", w.Code)
	}

	owner := newTestRouter(newTestService(store, verdict(0.4)), sub.UserID, middleware.RoleTourist)
	if w := do(owner, http.MethodGet, "/submissions/"+sub.ID.String(), ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", w.Code)
	}

	council := newTestRouter(newTestService(store, verdict(0.4)), uuid.New(), middleware.RoleCouncil)
	if w := do(council, http.MethodGet, "/submissions/"+sub.ID.String(), ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for council, got %d", w.Code)
	}
}

func TestModerationHandlerBadID(t *testing.T) {
	router := newTestRouter(newTestService(newMemStore(), verdict(0.4)), uuid.New(), middleware.RoleModerator)
	if w := do(router, http.MethodGet, "/moderation/submissions/nope/events", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := do(router, http.MethodGet, "/moderation/submissions/"+uuid.NewString()+"/events", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

