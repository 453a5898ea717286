package fraud

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewFlag builds a flag ready for insertion.
func NewFlag(userID uuid.UUID, submissionID *uuid.UUID, raisedBy uuid.UUID, reason string, at time.Time) (*Flag, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return &Flag{
		ID:           uuid.New(),
		UserID:       userID,
		SubmissionID: submissionID,
		RaisedBy:     raisedBy,
		Reason:       reason,
		CreatedAt:    at,
	}, nil
}

func (s *Service) Create(ctx context.Context, raisedBy uuid.UUID, req *CreateRequest) (*Flag, error) {
	f, err := NewFlag(req.UserID, req.SubmissionID, raisedBy, req.Reason, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	log.Info().Str("flag_id", f.ID.String()).Str("user_id", f.UserID.String()).Str("raised_by", raisedBy.String()).Msg("fraud flag raised")
	return f, nil
}

func (s *Service) List(ctx context.Context, page, limit int) ([]*Flag, int, error) {
	return s.repo.List(ctx, limit, (page-1)*limit)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Flag, error) {
	return s.repo.ListByUser(ctx, userID)
}
