package fraud

import (
	"time"

	"github.com/google/uuid"
)

// Flag records a moderator's suspicion about a user. Flags are not acted
// on here; handling policy lives elsewhere.
type Flag struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	SubmissionID *uuid.UUID `db:"submission_id" json:"submission_id,omitempty"`
	RaisedBy     uuid.UUID  `db:"raised_by" json:"raised_by"`
	Reason       string     `db:"reason" json:"reason"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// CreateRequest raises a flag outside of an approval.
type CreateRequest struct {
	UserID       uuid.UUID  `json:"user_id" validate:"required"`
	SubmissionID *uuid.UUID `json:"submission_id,omitempty"`
	Reason       string     `json:"reason" validate:"required,notblank,max=500"`
}
