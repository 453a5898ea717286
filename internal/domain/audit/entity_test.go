package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewEventEncodesMetadata(t *testing.T) {
	actor := uuid.New()
	e := NewEvent(uuid.New(), &actor, EventApproved, map[string]interface{}{"prior_status": "NEEDS_REVIEW", "points": 137}, time.Now())

	var meta map[string]interface{}
	if err := json.Unmarshal(e.Metadata, &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["prior_status"] != "NEEDS_REVIEW" || meta["points"] != float64(137) {
		t.Fatalf("unexpected metadata %v", meta)
	}
	if e.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
}

func TestNewEventNilMetadataIsEmptyObject(t *testing.T) {
	e := NewEvent(uuid.New(), nil, EventCreated, nil, time.Now())
	if string(e.Metadata) != "{}" {
		t.Fatalf("expected {}, got %s", e.Metadata)
	}
}

func TestNewCashoutEventKeepsStatuses(t *testing.T) {
	e := NewCashoutEvent(uuid.New(), nil, CashoutGatewayFailed, "INITIATED", "FAILED", map[string]interface{}{"reason": "timeout"}, time.Now())
	if e.FromStatus != "INITIATED" || e.ToStatus != "FAILED" || e.ActorID != nil {
		t.Fatalf("unexpected event %+v", e)
	}
	if string(e.Metadata) != `{"reason":"timeout"}` {
		t.Fatalf("unexpected metadata %s", e.Metadata)
	}
}
