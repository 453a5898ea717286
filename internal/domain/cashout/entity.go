package cashout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the payout state of a cashout request
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusInitiated Status = "INITIATED"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusNeedsInfo Status = "NEEDS_INFO"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusInitiated, StatusCancelled},
	StatusInitiated: {StatusSucceeded, StatusFailed, StatusNeedsInfo},
	StatusNeedsInfo: {StatusInitiated, StatusSucceeded, StatusFailed, StatusNeedsInfo},
	StatusFailed:    {StatusInitiated, StatusCancelled},
	StatusSucceeded: nil,
	StatusCancelled: nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// markable lists the outcomes an operator may record.
func (s Status) markable() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusNeedsInfo
}

// Request is one payout attempt. PointsUsed and CashAmount are fixed at
// creation and never change.
type Request struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	PointsUsed    int64           `db:"points_used" json:"points_used"`
	CashAmount    decimal.Decimal `db:"cash_amount" json:"cash_amount"`
	Currency      string          `db:"currency" json:"currency"`
	Method        string          `db:"method" json:"method"`
	Destination   string          `db:"destination" json:"destination"`
	Status        Status          `db:"status" json:"status"`
	GatewayTxnID  *string         `db:"gateway_txn_id" json:"gateway_txn_id,omitempty"`
	FailureReason *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	ProcessedBy   *uuid.UUID      `db:"processed_by" json:"processed_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// CashFor converts points at rate, rounded to cents.
func CashFor(points int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(rate).Round(2)
}
