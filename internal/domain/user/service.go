package user

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo Repository
	// seen remembers users already provisioned by this process.
	seen sync.Map
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Ensure provisions the user row and rejects banned users. Results are
// remembered per process, so a ban issued on another instance takes effect
// here only after restart.
func (s *Service) Ensure(ctx context.Context, id uuid.UUID, role string) error {
	if _, ok := s.seen.Load(id); ok {
		return nil
	}
	r := Role(role)
	if !IsValidRole(role) {
		r = RoleTourist
	}
	if err := s.repo.Ensure(ctx, id, r); err != nil {
		return err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.IsBanned {
		return ErrUserBanned
	}
	s.seen.Store(id, struct{}{})
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, role string, page, limit int) ([]*User, int, error) {
	var filter *Role
	if role != "" {
		if !IsValidRole(role) {
			return nil, 0, ErrInvalidRole
		}
		r := Role(role)
		filter = &r
	}
	return s.repo.List(ctx, filter, limit, (page-1)*limit)
}

func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role string, actorID uuid.UUID) error {
	if !IsValidRole(role) {
		return ErrInvalidRole
	}
	if err := s.repo.UpdateRole(ctx, id, Role(role)); err != nil {
		return err
	}
	log.Info().Str("user_id", id.String()).Str("role", role).Str("actor_id", actorID.String()).Msg("user role changed")
	return nil
}

func (s *Service) SetBanned(ctx context.Context, id uuid.UUID, banned bool, actorID uuid.UUID) error {
	if err := s.repo.SetBanned(ctx, id, banned); err != nil {
		return err
	}
	if banned {
		s.seen.Delete(id)
	}
	log.Info().Str("user_id", id.String()).Bool("banned", banned).Str("actor_id", actorID.String()).Msg("user ban updated")
	return nil
}
