package payout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testRequest() Request {
	return Request{
		CashoutID:   uuid.New(),
		UserID:      uuid.New(),
		Amount:      decimal.RequireFromString("12.50"),
		Currency:    "INR",
		Method:      "upi",
		Destination: "tourist@upi",
	}
}

func TestInitiatePayoutSuccess(t *testing.T) {
	req := testRequest()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/payouts" || r.Header.Get("Authorization") != "Bearer merchant" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Idempotency-Key") != req.CashoutID.String() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var body Request
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Amount.Equal(req.Amount) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"transaction_id": "txn-42", "status": "accepted"})
	}))
	defer srv.Close()

	txn, err := NewClient(Config{BaseURL: srv.URL + "/", MerchantKey: "merchant"}).InitiatePayout(context.Background(), req)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if txn != "txn-42" {
		t.Fatalf("expected txn-42, got %s", txn)
	}
}

func TestInitiatePayoutRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`invalid destination`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL, MerchantKey: "m"}).InitiatePayout(context.Background(), testRequest())
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestInitiatePayoutServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewClient(Config{BaseURL: srv.URL, MerchantKey: "m"}).InitiatePayout(context.Background(), testRequest()); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestInitiatePayoutValidatesConfig(t *testing.T) {
	if _, err := NewClient(Config{}).InitiatePayout(context.Background(), testRequest()); err == nil {
		t.Fatalf("expected config error")
	}

	req := testRequest()
	req.Amount = decimal.Zero
	if _, err := NewClient(Config{BaseURL: "http://x", MerchantKey: "m"}).InitiatePayout(context.Background(), req); err == nil {
		t.Fatalf("expected amount validation error")
	}
}

func TestSandbox(t *testing.T) {
	req := testRequest()
	txn, err := Sandbox{}.InitiatePayout(context.Background(), req)
	if err != nil || txn != "sandbox-"+req.CashoutID.String() {
		t.Fatalf("unexpected sandbox result %q %v", txn, err)
	}
}
