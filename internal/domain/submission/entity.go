package submission

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Status is the moderation state of a submission
type Status string

const (
	StatusQueued       Status = "QUEUED"
	StatusNeedsReview  Status = "NEEDS_REVIEW"
	StatusAutoVerified Status = "AUTO_VERIFIED"
	StatusApproved     Status = "APPROVED"
	StatusRejected     Status = "REJECTED"
)

// transitions lists every legal move. Anything absent is rejected.
var transitions = map[Status][]Status{
	StatusQueued:       {StatusNeedsReview, StatusAutoVerified, StatusApproved, StatusRejected},
	StatusNeedsReview:  {StatusApproved, StatusRejected},
	StatusAutoVerified: {StatusRejected},
	StatusApproved:     nil,
	StatusRejected:     nil,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Submission is one geotagged disposal video.
// RejectionReason is set exactly when Status is REJECTED.
type Submission struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	Latitude        float64    `db:"latitude" json:"latitude"`
	Longitude       float64    `db:"longitude" json:"longitude"`
	RecordedAt      time.Time  `db:"recorded_at" json:"recorded_at"`
	StorageKey      string     `db:"storage_key" json:"storage_key"`
	AutoScore       *float64   `db:"auto_score" json:"auto_score,omitempty"`
	LocationScore   *float64   `db:"location_score" json:"location_score,omitempty"`
	BinID           *uuid.UUID `db:"bin_id" json:"bin_id,omitempty"`
	Status          Status     `db:"status" json:"status"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	PointsAwarded   int64      `db:"points_awarded" json:"points_awarded"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ApprovalPoints is base plus floor(autoScore * bonusMax). A missing score
// earns no bonus; scores are clamped to [0,1].
func ApprovalPoints(base, bonusMax int64, autoScore *float64) int64 {
	if autoScore == nil || math.IsNaN(*autoScore) {
		return base
	}
	score := math.Min(1, math.Max(0, *autoScore))
	return base + int64(math.Floor(score*float64(bonusMax)))
}
