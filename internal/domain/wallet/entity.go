package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeSubmissionReward TransactionType = "submission_reward"
	TransactionTypeAutoVerifyReward TransactionType = "auto_verify_reward"
	TransactionTypeCashoutDebit     TransactionType = "cashout_debit"
	TransactionTypeCashoutRefund    TransactionType = "cashout_refund"
	TransactionTypeCashoutSettled   TransactionType = "cashout_settled"
)

// Wallet holds one user's points and the cash reserved for payouts.
type Wallet struct {
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	PointsBalance int64           `db:"points_balance" json:"points_balance"`
	CashBalance   decimal.Decimal `db:"cash_balance" json:"cash_balance"`
	LockedAmount  decimal.Decimal `db:"locked_amount" json:"locked_amount"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is one ledger row. Rows are never updated.
type Transaction struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	PointsDelta int64           `db:"points_delta" json:"points_delta"`
	CashDelta   decimal.Decimal `db:"cash_delta" json:"cash_delta"`
	Type        TransactionType `db:"type" json:"type"`
	ReferenceID *string         `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Mutation is a balance change applied and recorded as one ledger row.
type Mutation struct {
	UserID      uuid.UUID
	PointsDelta int64
	CashDelta   decimal.Decimal
	LockedDelta decimal.Decimal
	Type        TransactionType
	ReferenceID string
}

// Reward credits points for a moderated submission.
func Reward(userID uuid.UUID, points int64, txType TransactionType, submissionID uuid.UUID) Mutation {
	return Mutation{UserID: userID, PointsDelta: points, Type: txType, ReferenceID: submissionID.String()}
}

// Reserve converts points into cash locked for a pending payout.
func Reserve(userID uuid.UUID, points int64, cash decimal.Decimal, cashoutID uuid.UUID) Mutation {
	return Mutation{
		UserID:      userID,
		PointsDelta: -points,
		CashDelta:   cash,
		LockedDelta: cash,
		Type:        TransactionTypeCashoutDebit,
		ReferenceID: cashoutID.String(),
	}
}

// Settle releases locked cash that has been paid out.
func Settle(userID uuid.UUID, cash decimal.Decimal, cashoutID uuid.UUID) Mutation {
	return Mutation{
		UserID:      userID,
		CashDelta:   cash.Neg(),
		LockedDelta: cash.Neg(),
		Type:        TransactionTypeCashoutSettled,
		ReferenceID: cashoutID.String(),
	}
}

// Refund undoes a Reserve.
func Refund(userID uuid.UUID, points int64, cash decimal.Decimal, cashoutID uuid.UUID) Mutation {
	return Mutation{
		UserID:      userID,
		PointsDelta: points,
		CashDelta:   cash.Neg(),
		LockedDelta: cash.Neg(),
		Type:        TransactionTypeCashoutRefund,
		ReferenceID: cashoutID.String(),
	}
}

// Apply changes the balances in place, or leaves w untouched and returns an
// error when any balance would go negative.
func (w *Wallet) Apply(m Mutation) error {
	points := w.PointsBalance + m.PointsDelta
	cash := w.CashBalance.Add(m.CashDelta)
	locked := w.LockedAmount.Add(m.LockedDelta)

	if points < 0 {
		return ErrInsufficientPoints
	}
	if cash.IsNegative() || locked.IsNegative() {
		return ErrInsufficientCash
	}

	w.PointsBalance = points
	w.CashBalance = cash
	w.LockedAmount = locked
	return nil
}
