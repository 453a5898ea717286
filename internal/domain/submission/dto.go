package submission

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is a tourist's new submission. AutoScore comes from the
// upload pipeline's quality check when it ran.
type CreateRequest struct {
	Latitude   float64   `json:"latitude" validate:"latitude"`
	Longitude  float64   `json:"longitude" validate:"longitude"`
	RecordedAt time.Time `json:"recorded_at" validate:"required"`
	StorageKey string    `json:"storage_key" validate:"required,max=512"`
	AutoScore  *float64  `json:"auto_score,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// FlagInput is one fraud flag raised while approving.
type FlagInput struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

type ApproveRequest struct {
	Reason string      `json:"reason,omitempty" validate:"max=1000"`
	Flags  []FlagInput `json:"flags,omitempty" validate:"omitempty,max=10,dive"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

// Response adds a short-lived video link for reviewers.
type Response struct {
	*Submission
	VideoURL string `json:"video_url,omitempty"`
}

// TransitionResult reports the outcome of a moderation command.
type TransitionResult struct {
	Submission    *Submission `json:"submission"`
	PriorStatus   Status      `json:"prior_status"`
	PointsAwarded int64       `json:"points_awarded"`
	FlagIDs       []uuid.UUID `json:"flag_ids,omitempty"`
}
