package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCreated      EventType = "CREATED"
	EventNeedsReview  EventType = "NEEDS_REVIEW"
	EventAutoVerified EventType = "AUTO_VERIFIED"
	EventApproved     EventType = "APPROVED"
	EventRejected     EventType = "REJECTED"
	EventFlagged      EventType = "FLAGGED"

	CashoutRequested       EventType = "CASHOUT_REQUESTED"
	CashoutPayoutInitiated EventType = "PAYOUT_INITIATED"
	CashoutGatewayAccepted EventType = "GATEWAY_ACCEPTED"
	CashoutGatewayFailed   EventType = "GATEWAY_FAILED"
	CashoutMarked          EventType = "MARKED"
	CashoutCancelled       EventType = "CANCELLED"
)

// Event is an append-only record of something that happened to a submission.
// A nil ActorID means the system acted.
type Event struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	SubmissionID uuid.UUID       `db:"submission_id" json:"submission_id"`
	ActorID      *uuid.UUID      `db:"actor_id" json:"actor_id,omitempty"`
	EventType    EventType       `db:"event_type" json:"event_type"`
	Metadata     json.RawMessage `db:"-" json:"metadata"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// CashoutEvent is an append-only record of one step of a cashout request.
// FromStatus is empty for the creating event.
type CashoutEvent struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	CashoutID  uuid.UUID       `db:"cashout_id" json:"cashout_id"`
	ActorID    *uuid.UUID      `db:"actor_id" json:"actor_id,omitempty"`
	EventType  EventType       `db:"event_type" json:"event_type"`
	FromStatus string          `db:"-" json:"from_status,omitempty"`
	ToStatus   string          `db:"to_status" json:"to_status"`
	Metadata   json.RawMessage `db:"-" json:"metadata"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// NewCashoutEvent builds a cashout event with metadata encoded as JSON.
func NewCashoutEvent(cashoutID uuid.UUID, actorID *uuid.UUID, eventType EventType, from, to string, metadata map[string]interface{}, at time.Time) *CashoutEvent {
	return &CashoutEvent{
		ID:         uuid.New(),
		CashoutID:  cashoutID,
		ActorID:    actorID,
		EventType:  eventType,
		FromStatus: from,
		ToStatus:   to,
		Metadata:   encodeMetadata(metadata),
		CreatedAt:  at,
	}
}

func encodeMetadata(metadata map[string]interface{}) json.RawMessage {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return []byte(`{}`)
	}
	return raw
}

// NewEvent builds an event with metadata encoded as JSON.
func NewEvent(submissionID uuid.UUID, actorID *uuid.UUID, eventType EventType, metadata map[string]interface{}, at time.Time) *Event {
	return &Event{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		ActorID:      actorID,
		EventType:    eventType,
		Metadata:     encodeMetadata(metadata),
		CreatedAt:    at,
	}
}
