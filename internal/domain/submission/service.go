package submission

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/fraud"
	"github.com/ecobin/ecobin-api/internal/domain/location"
	"github.com/ecobin/ecobin-api/internal/domain/realtime"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
	"github.com/ecobin/ecobin-api/internal/pkg/storage"
)

// Config holds the reward and auto-moderation knobs.
type Config struct {
	BaseReward      int64
	QualityBonusMax int64
	// AutoVerifyThreshold is the location score at or above which a new
	// submission is accepted without review.
	AutoVerifyThreshold float64
	// AutoRejectThreshold rejects scores strictly below it; 0 disables.
	AutoRejectThreshold float64
	VideoURLTTL         time.Duration
	// RequireStoredObject fails creation when the video is missing from storage.
	RequireStoredObject bool
}

// LocationChecker scores submission coordinates.
type LocationChecker interface {
	Validate(ctx context.Context, p geo.Point) (*location.Result, error)
}

// Service runs the submission state machine.
type Service struct {
	store     Store
	locations LocationChecker
	videos    storage.ObjectStore
	publisher realtime.Publisher
	cfg       Config
	now       func() time.Time
}

// NewService creates submission service. videos and publisher may be nil.
func NewService(store Store, locations LocationChecker, videos storage.ObjectStore, publisher realtime.Publisher, cfg Config) *Service {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if cfg.VideoURLTTL <= 0 {
		cfg.VideoURLTTL = 15 * time.Minute
	}
	return &Service{
		store:     store,
		locations: locations,
		videos:    videos,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// outbox collects notifications to send once the transaction commits.
type outbox struct {
	events  []realtime.SubmissionEvent
	wallets []realtime.WalletDelta
}

func (o *outbox) event(s *Submission, actorID *uuid.UUID, eventType audit.EventType, at time.Time) {
	o.events = append(o.events, realtime.SubmissionEvent{
		SubmissionID: s.ID,
		OwnerID:      s.UserID,
		ActorID:      actorID,
		EventType:    string(eventType),
		Status:       string(s.Status),
		OccurredAt:   at,
	})
}

func (o *outbox) wallet(m wallet.Mutation, w *wallet.Wallet, at time.Time) {
	o.wallets = append(o.wallets, realtime.WalletDelta{
		UserID:        m.UserID,
		PointsDelta:   m.PointsDelta,
		CashDelta:     m.CashDelta,
		PointsBalance: w.PointsBalance,
		Reason:        string(m.Type),
		ReferenceID:   m.ReferenceID,
		OccurredAt:    at,
	})
}

func (s *Service) flush(ctx context.Context, o *outbox) {
	for _, ev := range o.events {
		if err := s.publisher.PublishSubmissionEvent(ctx, ev); err != nil {
			log.Warn().Err(err).Str("submission_id", ev.SubmissionID.String()).Msg("failed to publish submission event")
		}
	}
	for _, d := range o.wallets {
		if err := s.publisher.PublishWalletDelta(ctx, d); err != nil {
			log.Warn().Err(err).Str("user_id", d.UserID.String()).Msg("failed to publish wallet delta")
		}
	}
}

// Create records a new submission and applies the auto-moderation policy
// in the same unit of work.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*Submission, error) {
	p := geo.Point{Lat: req.Latitude, Lng: req.Longitude}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if req.AutoScore != nil && (*req.AutoScore < 0 || *req.AutoScore > 1) {
		return nil, ErrInvalidAutoScore
	}
	key := strings.TrimSpace(req.StorageKey)

	if s.videos != nil {
		ok, err := s.videos.Exists(ctx, key)
		switch {
		case err != nil && s.cfg.RequireStoredObject:
			return nil, err
		case err != nil:
			log.Warn().Err(err).Str("storage_key", key).Msg("video existence check failed")
		case !ok && s.cfg.RequireStoredObject:
			return nil, ErrVideoNotFound
		case !ok:
			log.Warn().Str("storage_key", key).Msg("video not found in storage")
		}
	}

	verdict, err := s.locations.Validate(ctx, p)
	if err != nil {
		return nil, err
	}

	now := s.now()
	score := verdict.Score
	sub := &Submission{
		ID:            uuid.New(),
		UserID:        userID,
		Latitude:      p.Lat,
		Longitude:     p.Lng,
		RecordedAt:    req.RecordedAt,
		StorageKey:    key,
		AutoScore:     req.AutoScore,
		LocationScore: &score,
		Status:        StatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if verdict.Bin != nil {
		binID := verdict.Bin.ID
		sub.BinID = &binID
	}

	next, eventType := s.policy(score, verdict.IsValid)
	box := &outbox{}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Insert(ctx, sub); err != nil {
			return err
		}
		created := audit.NewEvent(sub.ID, &userID, audit.EventCreated, map[string]interface{}{
			"location_score": score,
			"within_radius":  verdict.WithinRadius,
			"message":        verdict.Message,
		}, now)
		if err := tx.AppendEvent(ctx, created); err != nil {
			return err
		}
		box.event(sub, &userID, audit.EventCreated, now)

		prior := sub.Status
		sub.Status = next
		switch next {
		case StatusAutoVerified:
			sub.PointsAwarded = s.cfg.BaseReward
		case StatusRejected:
			reason := verdict.Message
			sub.RejectionReason = &reason
		}
		if err := tx.UpdateStatus(ctx, sub, prior); err != nil {
			return err
		}

		meta := map[string]interface{}{"prior_status": prior, "location_score": score}
		if sub.RejectionReason != nil {
			meta["reason"] = *sub.RejectionReason
		}
		if sub.PointsAwarded > 0 {
			m := wallet.Reward(userID, sub.PointsAwarded, wallet.TransactionTypeAutoVerifyReward, sub.ID)
			w, err := tx.ApplyWallet(ctx, m)
			if err != nil {
				return err
			}
			meta["points"] = sub.PointsAwarded
			box.wallet(m, w, now)
		}
		if err := tx.AppendEvent(ctx, audit.NewEvent(sub.ID, nil, eventType, meta, now)); err != nil {
			return err
		}
		box.event(sub, nil, eventType, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("submission_id", sub.ID.String()).
		Str("user_id", userID.String()).
		Str("status", string(sub.Status)).
		Float64("location_score", score).
		Msg("submission created")

	s.flush(ctx, box)
	return sub, nil
}

// policy picks the first status. Only a location inside a bin's radius can
// be auto-verified, whatever the threshold.
func (s *Service) policy(score float64, inRadius bool) (Status, audit.EventType) {
	switch {
	case inRadius && score >= s.cfg.AutoVerifyThreshold:
		return StatusAutoVerified, audit.EventAutoVerified
	case score < s.cfg.AutoRejectThreshold:
		return StatusRejected, audit.EventRejected
	default:
		return StatusNeedsReview, audit.EventNeedsReview
	}
}

// Approve credits the owner and records the decision. Approving anything
// but a QUEUED or NEEDS_REVIEW submission fails with ErrInvalidTransition.
func (s *Service) Approve(ctx context.Context, id, moderatorID uuid.UUID, req *ApproveRequest) (*TransitionResult, error) {
	now := s.now()
	reason := strings.TrimSpace(req.Reason)
	for _, f := range req.Flags {
		if strings.TrimSpace(f.Reason) == "" {
			return nil, fraud.ErrReasonRequired
		}
	}

	box := &outbox{}
	var result *TransitionResult

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		sub, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		prior := sub.Status
		if !prior.CanTransitionTo(StatusApproved) {
			return ErrInvalidTransition
		}

		points := ApprovalPoints(s.cfg.BaseReward, s.cfg.QualityBonusMax, sub.AutoScore)
		sub.Status = StatusApproved
		sub.RejectionReason = nil
		sub.PointsAwarded = points
		sub.UpdatedAt = now
		if err := tx.UpdateStatus(ctx, sub, prior); err != nil {
			return err
		}

		m := wallet.Reward(sub.UserID, points, wallet.TransactionTypeSubmissionReward, sub.ID)
		w, err := tx.ApplyWallet(ctx, m)
		if err != nil {
			return err
		}
		box.wallet(m, w, now)

		meta := map[string]interface{}{"prior_status": prior, "points": points}
		if reason != "" {
			meta["reason"] = reason
		}
		if err := tx.AppendEvent(ctx, audit.NewEvent(sub.ID, &moderatorID, audit.EventApproved, meta, now)); err != nil {
			return err
		}
		box.event(sub, &moderatorID, audit.EventApproved, now)

		result = &TransitionResult{Submission: sub, PriorStatus: prior, PointsAwarded: points}
		if len(req.Flags) == 0 {
			return nil
		}

		reasons := make([]string, 0, len(req.Flags))
		for _, in := range req.Flags {
			f, err := fraud.NewFlag(sub.UserID, &sub.ID, moderatorID, in.Reason, now)
			if err != nil {
				return err
			}
			if err := tx.CreateFlag(ctx, f); err != nil {
				return err
			}
			result.FlagIDs = append(result.FlagIDs, f.ID)
			reasons = append(reasons, f.Reason)
		}
		flagged := audit.NewEvent(sub.ID, &moderatorID, audit.EventFlagged, map[string]interface{}{
			"flag_ids": result.FlagIDs,
			"reasons":  reasons,
		}, now)
		if err := tx.AppendEvent(ctx, flagged); err != nil {
			return err
		}
		box.event(sub, &moderatorID, audit.EventFlagged, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("submission_id", id.String()).
		Str("moderator_id", moderatorID.String()).
		Str("prior_status", string(result.PriorStatus)).
		Int64("points", result.PointsAwarded).
		Int("flags", len(result.FlagIDs)).
		Msg("submission approved")

	s.flush(ctx, box)
	return result, nil
}

// Reject closes a submission with a reason. The wallet is never touched,
// including for AUTO_VERIFIED submissions that already earned a reward.
func (s *Service) Reject(ctx context.Context, id, moderatorID uuid.UUID, req *RejectRequest) (*TransitionResult, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	now := s.now()
	box := &outbox{}
	var result *TransitionResult

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		sub, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		prior := sub.Status
		if !prior.CanTransitionTo(StatusRejected) {
			return ErrInvalidTransition
		}

		sub.Status = StatusRejected
		sub.RejectionReason = &reason
		sub.UpdatedAt = now
		if err := tx.UpdateStatus(ctx, sub, prior); err != nil {
			return err
		}

		ev := audit.NewEvent(sub.ID, &moderatorID, audit.EventRejected, map[string]interface{}{
			"prior_status": prior,
			"reason":       reason,
		}, now)
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}
		box.event(sub, &moderatorID, audit.EventRejected, now)

		result = &TransitionResult{Submission: sub, PriorStatus: prior}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("submission_id", id.String()).
		Str("moderator_id", moderatorID.String()).
		Str("prior_status", string(result.PriorStatus)).
		Msg("submission rejected")

	s.flush(ctx, box)
	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Submission, error) {
	return s.store.GetByID(ctx, id)
}

// GetWithVideo adds a presigned link to the stored video.
func (s *Service) GetWithVideo(ctx context.Context, id uuid.UUID) (*Response, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withVideo(ctx, sub), nil
}

func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, page, limit int) ([]*Submission, int, error) {
	return s.store.ListByUser(ctx, userID, limit, (page-1)*limit)
}

// ListForReview returns the moderation queue, oldest first.
func (s *Service) ListForReview(ctx context.Context, page, limit int) ([]*Response, int, error) {
	subs, total, err := s.store.ListByStatus(ctx, []Status{StatusQueued, StatusNeedsReview}, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*Response, len(subs))
	for i, sub := range subs {
		out[i] = s.withVideo(ctx, sub)
	}
	return out, total, nil
}

// Events returns the audit trail, oldest first.
func (s *Service) Events(ctx context.Context, id uuid.UUID) ([]*audit.Event, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

func (s *Service) withVideo(ctx context.Context, sub *Submission) *Response {
	resp := &Response{Submission: sub}
	if s.videos == nil || sub.StorageKey == "" {
		return resp
	}
	url, err := s.videos.PresignGet(ctx, sub.StorageKey, s.cfg.VideoURLTTL)
	if err != nil {
		log.Warn().Err(err).Str("submission_id", sub.ID.String()).Msg("failed to presign video url")
		return resp
	}
	resp.VideoURL = url
	return resp
}
