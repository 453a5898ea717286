package submission

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/fraud"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
)

// Store is the persistence the lifecycle runs on. WithinTx gives all-or-
// nothing semantics: if fn returns an error nothing it did is kept.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Submission, int, error)
	ListByStatus(ctx context.Context, statuses []Status, limit, offset int) ([]*Submission, int, error)
	ListEvents(ctx context.Context, submissionID uuid.UUID) ([]*audit.Event, error)
}

// Tx is the write side, valid only inside WithinTx.
type Tx interface {
	Insert(ctx context.Context, s *Submission) error
	// LockByID returns the row and holds it until the transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	// UpdateStatus writes s only if the stored status still equals from;
	// otherwise it returns ErrInvalidTransition.
	UpdateStatus(ctx context.Context, s *Submission, from Status) error
	ApplyWallet(ctx context.Context, m wallet.Mutation) (*wallet.Wallet, error)
	AppendEvent(ctx context.Context, e *audit.Event) error
	CreateFlag(ctx context.Context, f *fraud.Flag) error
}
