package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp
}

func TestErrorWithErrorHidesTraceByDefault(t *testing.T) {
	ExposeTraces(false)
	w := httptest.NewRecorder()
	ErrorWithError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "retry", errors.New("dial tcp: refused"))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	resp := decode(t, w)
	if resp.Success || resp.Error == nil || resp.Error.ErrorTrace != "" {
		t.Fatalf("unexpected body: %+v", resp.Error)
	}
}

func TestErrorWithErrorExposesTraceWhenEnabled(t *testing.T) {
	ExposeTraces(true)
	defer ExposeTraces(false)

	w := httptest.NewRecorder()
	ErrorWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom", errors.New("root cause"))

	if got := decode(t, w).Error.ErrorTrace; got != "root cause" {
		t.Fatalf("expected trace, got %q", got)
	}
}

func TestUnprocessableEntityCarriesCode(t *testing.T) {
	w := httptest.NewRecorder()
	UnprocessableEntity(w, "INVALID_TRANSITION", "not allowed")

	resp := decode(t, w)
	if w.Code != http.StatusUnprocessableEntity || resp.Error.Code != "INVALID_TRANSITION" {
		t.Fatalf("unexpected response %d %+v", w.Code, resp.Error)
	}
}

func TestNewMeta(t *testing.T) {
	cases := []struct {
		total, page, limit int
		want               Meta
	}{
		{0, 1, 20, Meta{Total: 0, Page: 1, Limit: 20, Pages: 0}},
		{41, 1, 20, Meta{Total: 41, Page: 1, Limit: 20, Pages: 3, HasNext: true}},
		{41, 3, 20, Meta{Total: 41, Page: 3, Limit: 20, Pages: 3, HasPrev: true}},
		{5, 1, 0, Meta{Total: 5, Page: 1, Limit: 0, Pages: 0}},
	}
	for _, tc := range cases {
		if got := NewMeta(tc.total, tc.page, tc.limit); got != tc.want {
			t.Errorf("NewMeta(%d, %d, %d) = %+v, want %+v", tc.total, tc.page, tc.limit, got, tc.want)
		}
	}
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	body := `{"reason":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst struct {
		Reason string `json:"reason"`
	}
	if err := DecodeJSON(req.Body, &dst); err == nil {
		t.Fatal("expected error for truncated body")
	}
}
