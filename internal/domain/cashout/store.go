package cashout

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
)

// Store is cashout persistence. WithinTx keeps nothing if fn fails.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Request, int, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]*Request, int, error)
	ListEvents(ctx context.Context, cashoutID uuid.UUID) ([]*audit.CashoutEvent, error)
}

type Tx interface {
	Insert(ctx context.Context, r *Request) error
	LockByID(ctx context.Context, id uuid.UUID) (*Request, error)
	// Update writes r only while the stored status is still from.
	Update(ctx context.Context, r *Request, from Status) error
	ApplyWallet(ctx context.Context, m wallet.Mutation) (*wallet.Wallet, error)
	AppendEvent(ctx context.Context, e *audit.CashoutEvent) error
}
