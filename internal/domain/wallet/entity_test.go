package wallet

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestApplyReserveSettle(t *testing.T) {
	userID, cashoutID := uuid.New(), uuid.New()
	w := &Wallet{UserID: userID, PointsBalance: 500}
	cash := decimal.RequireFromString("30.00")

	if err := w.Apply(Reserve(userID, 300, cash, cashoutID)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if w.PointsBalance != 200 || !w.CashBalance.Equal(cash) || !w.LockedAmount.Equal(cash) {
		t.Fatalf("unexpected wallet after reserve: %+v", w)
	}

	if err := w.Apply(Settle(userID, cash, cashoutID)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !w.CashBalance.IsZero() || !w.LockedAmount.IsZero() || w.PointsBalance != 200 {
		t.Fatalf("unexpected wallet after settle: %+v", w)
	}
}

func TestApplyRefundRestoresPoints(t *testing.T) {
	userID, cashoutID := uuid.New(), uuid.New()
	w := &Wallet{UserID: userID, PointsBalance: 100}
	cash := decimal.RequireFromString("10")

	_ = w.Apply(Reserve(userID, 100, cash, cashoutID))
	if err := w.Apply(Refund(userID, 100, cash, cashoutID)); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if w.PointsBalance != 100 || !w.CashBalance.IsZero() || !w.LockedAmount.IsZero() {
		t.Fatalf("unexpected wallet after refund: %+v", w)
	}
}

func TestApplyRejectsOverdraftWithoutMutating(t *testing.T) {
	w := &Wallet{PointsBalance: 50}

	err := w.Apply(Reserve(uuid.New(), 51, decimal.NewFromInt(5), uuid.New()))
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
	if w.PointsBalance != 50 || !w.CashBalance.IsZero() || !w.LockedAmount.IsZero() {
		t.Fatalf("wallet mutated on failure: %+v", w)
	}

	if err := w.Apply(Settle(uuid.New(), decimal.NewFromInt(1), uuid.New())); !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}
}

func TestRewardReferencesSubmission(t *testing.T) {
	sub := uuid.New()
	m := Reward(uuid.New(), 120, TransactionTypeSubmissionReward, sub)
	if m.PointsDelta != 120 || m.ReferenceID != sub.String() || !m.CashDelta.IsZero() {
		t.Fatalf("unexpected mutation %+v", m)
	}
}
