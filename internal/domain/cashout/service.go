package cashout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/realtime"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
	"github.com/ecobin/ecobin-api/internal/pkg/payout"
)

// resultTxTimeout bounds the transaction that records the provider's
// answer. It runs detached from the caller so a dropped client cannot strand
// a request in INITIATED.
const resultTxTimeout = 10 * time.Second

type Config struct {
	PointsToCashRate decimal.Decimal
	MinPoints        int64
	Currency         string
}

// Service runs the cashout state machine.
type Service struct {
	store     Store
	gateway   payout.Gateway
	publisher realtime.Publisher
	cfg       Config
	now       func() time.Time
}

// NewService creates cashout service. publisher may be nil.
func NewService(store Store, gateway payout.Gateway, publisher realtime.Publisher, cfg Config) *Service {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Service{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create reserves the points and records a PENDING request in one unit of
// work. Two concurrent requests cannot spend the same points.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*Request, error) {
	if req.Points <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	if req.Points < s.cfg.MinPoints {
		return nil, ErrBelowMinimum
	}
	cash := CashFor(req.Points, s.cfg.PointsToCashRate)
	if !cash.IsPositive() {
		return nil, ErrAmountTooSmall
	}

	now := s.now()
	r := &Request{
		ID:          uuid.New(),
		UserID:      userID,
		PointsUsed:  req.Points,
		CashAmount:  cash,
		Currency:    s.cfg.Currency,
		Method:      req.Method,
		Destination: strings.TrimSpace(req.Destination),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var delta *realtime.WalletDelta
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Insert(ctx, r); err != nil {
			return err
		}
		e := audit.NewCashoutEvent(r.ID, &userID, audit.CashoutRequested, "", string(StatusPending), map[string]interface{}{
			"points": r.PointsUsed,
			"cash":   r.CashAmount.String(),
			"method": r.Method,
		}, now)
		if err := tx.AppendEvent(ctx, e); err != nil {
			return err
		}
		m := wallet.Reserve(userID, r.PointsUsed, r.CashAmount, r.ID)
		w, err := tx.ApplyWallet(ctx, m)
		if err != nil {
			return err
		}
		delta = walletDelta(m, w, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("cashout_id", r.ID.String()).
		Str("user_id", userID.String()).
		Int64("points", r.PointsUsed).
		Str("cash", r.CashAmount.String()).
		Msg("cashout requested")

	s.publish(ctx, delta)
	return r, nil
}

// Initiate sends a PENDING request to the payout provider.
func (s *Service) Initiate(ctx context.Context, id, operatorID uuid.UUID) (*Request, error) {
	return s.startPayout(ctx, id, operatorID, StatusPending)
}

// Retry sends a FAILED or NEEDS_INFO request to the provider again.
func (s *Service) Retry(ctx context.Context, id, operatorID uuid.UUID) (*Request, error) {
	return s.startPayout(ctx, id, operatorID, StatusFailed, StatusNeedsInfo)
}

// startPayout records INITIATED, calls the provider outside any
// transaction, then records the provider's answer. A request marked by an
// operator while the call was in flight keeps the operator's status. Once
// INITIATED is committed the rest no longer follows ctx cancellation.
func (s *Service) startPayout(ctx context.Context, id, operatorID uuid.UUID, from ...Status) (*Request, error) {
	var r *Request
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		r, err = tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if !oneOf(r.Status, from) {
			return ErrInvalidTransition
		}

		prior := r.Status
		r.Status = StatusInitiated
		r.FailureReason = nil
		r.ProcessedBy = &operatorID
		r.UpdatedAt = s.now()
		e := audit.NewCashoutEvent(r.ID, &operatorID, audit.CashoutPayoutInitiated, string(prior), string(StatusInitiated), nil, r.UpdatedAt)
		if err := tx.AppendEvent(ctx, e); err != nil {
			return err
		}
		return tx.Update(ctx, r, prior)
	})
	if err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	txnID, gwErr := s.gateway.InitiatePayout(detached, payout.Request{
		CashoutID:   r.ID,
		UserID:      r.UserID,
		Amount:      r.CashAmount,
		Currency:    r.Currency,
		Method:      r.Method,
		Destination: r.Destination,
	})

	resultCtx, cancel := context.WithTimeout(detached, resultTxTimeout)
	defer cancel()
	err = s.store.WithinTx(resultCtx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status != StatusInitiated {
			r = cur
			return nil
		}
		cur.UpdatedAt = s.now()
		var e *audit.CashoutEvent
		if gwErr != nil {
			reason := gwErr.Error()
			cur.Status = StatusFailed
			cur.FailureReason = &reason
			e = audit.NewCashoutEvent(id, nil, audit.CashoutGatewayFailed, string(StatusInitiated), string(StatusFailed),
				map[string]interface{}{"reason": reason}, cur.UpdatedAt)
		} else {
			cur.GatewayTxnID = &txnID
			e = audit.NewCashoutEvent(id, nil, audit.CashoutGatewayAccepted, string(StatusInitiated), string(StatusInitiated),
				map[string]interface{}{"gateway_txn_id": txnID}, cur.UpdatedAt)
		}
		if err := tx.AppendEvent(ctx, e); err != nil {
			return err
		}
		if err := tx.Update(ctx, cur, StatusInitiated); err != nil {
			return err
		}
		r = cur
		return nil
	})
	if err != nil {
		log.Error().Err(err).
			Str("cashout_id", id.String()).
			Str("gateway_txn_id", txnID).
			Bool("gateway_failed", gwErr != nil).
			Msg("failed to record payout result")
		return nil, err
	}

	if gwErr != nil {
		return r, fmt.Errorf("%w: %v", ErrPayoutFailed, gwErr)
	}

	log.Info().
		Str("cashout_id", id.String()).
		Str("operator_id", operatorID.String()).
		Str("gateway_txn_id", txnID).
		Msg("payout initiated")
	return r, nil
}

// Mark records the provider outcome. SUCCEEDED settles the locked cash and
// is final; marking it again fails with ErrAlreadyTerminal.
func (s *Service) Mark(ctx context.Context, id, operatorID uuid.UUID, req *MarkRequest) (*Request, error) {
	if !req.Status.markable() {
		return nil, ErrInvalidStatus
	}
	reason := strings.TrimSpace(req.Reason)
	txnID := strings.TrimSpace(req.GatewayTxnID)

	now := s.now()
	var (
		r     *Request
		delta *realtime.WalletDelta
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		r, err = tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if r.Status != StatusInitiated && r.Status != StatusNeedsInfo {
			return ErrInvalidTransition
		}

		prior := r.Status
		r.Status = req.Status
		r.ProcessedBy = &operatorID
		r.UpdatedAt = now
		if txnID != "" {
			r.GatewayTxnID = &txnID
		}

		switch req.Status {
		case StatusSucceeded:
			r.FailureReason = nil
			r.CompletedAt = &now
			m := wallet.Settle(r.UserID, r.CashAmount, r.ID)
			w, err := tx.ApplyWallet(ctx, m)
			if err != nil {
				return err
			}
			delta = walletDelta(m, w, now)
		case StatusFailed, StatusNeedsInfo:
			if reason != "" {
				r.FailureReason = &reason
			}
		}

		meta := map[string]interface{}{}
		if reason != "" {
			meta["reason"] = reason
		}
		if txnID != "" {
			meta["gateway_txn_id"] = txnID
		}
		e := audit.NewCashoutEvent(r.ID, &operatorID, audit.CashoutMarked, string(prior), string(r.Status), meta, now)
		if err := tx.AppendEvent(ctx, e); err != nil {
			return err
		}
		return tx.Update(ctx, r, prior)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("cashout_id", id.String()).
		Str("operator_id", operatorID.String()).
		Str("status", string(r.Status)).
		Msg("cashout marked")

	s.publish(ctx, delta)
	return r, nil
}

// Cancel refunds the points of a PENDING or FAILED request. Owners may
// cancel their own; staff may cancel any.
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID, staff bool) (*Request, error) {
	now := s.now()
	var (
		r     *Request
		delta *realtime.WalletDelta
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		r, err = tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if !staff && r.UserID != actorID {
			return ErrNotFound
		}
		if r.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if !r.Status.CanTransitionTo(StatusCancelled) {
			return ErrInvalidTransition
		}

		prior := r.Status
		r.Status = StatusCancelled
		r.ProcessedBy = &actorID
		r.UpdatedAt = now
		r.CompletedAt = &now

		e := audit.NewCashoutEvent(r.ID, &actorID, audit.CashoutCancelled, string(prior), string(StatusCancelled),
			map[string]interface{}{"staff": staff}, now)
		if err := tx.AppendEvent(ctx, e); err != nil {
			return err
		}
		m := wallet.Refund(r.UserID, r.PointsUsed, r.CashAmount, r.ID)
		w, err := tx.ApplyWallet(ctx, m)
		if err != nil {
			return err
		}
		delta = walletDelta(m, w, now)
		return tx.Update(ctx, r, prior)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("cashout_id", id.String()).Str("actor_id", actorID.String()).Msg("cashout cancelled")
	s.publish(ctx, delta)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.store.GetByID(ctx, id)
}

// Events returns the cashout's history, oldest first.
func (s *Service) Events(ctx context.Context, id uuid.UUID) ([]*audit.CashoutEvent, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, page, limit int) ([]*Request, int, error) {
	return s.store.ListByUser(ctx, userID, limit, (page-1)*limit)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Request, int, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.store.List(ctx, f.Status, f.Limit, (f.Page-1)*f.Limit)
}

func (s *Service) publish(ctx context.Context, d *realtime.WalletDelta) {
	if d == nil {
		return
	}
	if err := s.publisher.PublishWalletDelta(ctx, *d); err != nil {
		log.Warn().Err(err).Str("user_id", d.UserID.String()).Msg("failed to publish wallet delta")
	}
}

func walletDelta(m wallet.Mutation, w *wallet.Wallet, at time.Time) *realtime.WalletDelta {
	return &realtime.WalletDelta{
		UserID:        m.UserID,
		PointsDelta:   m.PointsDelta,
		CashDelta:     m.CashDelta,
		PointsBalance: w.PointsBalance,
		Reason:        string(m.Type),
		ReferenceID:   m.ReferenceID,
		OccurredAt:    at,
	}
}

func oneOf(s Status, set []Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// isClientError reports errors caused by the request rather than the system.
func isClientError(err error) bool {
	return errors.Is(err, ErrBelowMinimum) ||
		errors.Is(err, ErrAmountTooSmall) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, wallet.ErrInvalidAmount)
}
