package wallet

import (
	"context"

	"github.com/google/uuid"
)

// Reader is the read side of the wallet store.
type Reader interface {
	Get(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int, error)
}

type Service struct {
	repo Reader
}

func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.Get(ctx, userID)
}

// ListTransactions pages the ledger. limit is clamped to [1, 100].
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*Transaction, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return s.repo.ListTransactions(ctx, userID, limit, (page-1)*limit)
}
