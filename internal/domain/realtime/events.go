package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType identifies payloads pushed to WebSocket clients
type MessageType string

const (
	MessageSubmissionEvent MessageType = "submission_event"
	MessageWalletDelta     MessageType = "wallet_delta"
)

// SubmissionEvent mirrors an audit event for live dashboards.
type SubmissionEvent struct {
	SubmissionID uuid.UUID  `json:"submission_id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	ActorID      *uuid.UUID `json:"actor_id,omitempty"`
	EventType    string     `json:"event_type"`
	Status       string     `json:"status"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// WalletDelta tells a user their balance moved.
type WalletDelta struct {
	UserID        uuid.UUID       `json:"user_id"`
	PointsDelta   int64           `json:"points_delta"`
	CashDelta     decimal.Decimal `json:"cash_delta"`
	PointsBalance int64           `json:"points_balance"`
	Reason        string          `json:"reason"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher emits outbound events after a transition commits.
type Publisher interface {
	PublishSubmissionEvent(ctx context.Context, ev SubmissionEvent) error
	PublishWalletDelta(ctx context.Context, d WalletDelta) error
}

// NopPublisher drops everything.
type NopPublisher struct{}

func (NopPublisher) PublishSubmissionEvent(context.Context, SubmissionEvent) error { return nil }
func (NopPublisher) PublishWalletDelta(context.Context, WalletDelta) error         { return nil }
