package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ecobin/ecobin-api/internal/pkg/database"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const walletColumns = `user_id, points_balance, cash_balance, locked_amount, updated_at`

func (r *Repository) ensureWallet(ctx context.Context, ext sqlx.ExecerContext, userID uuid.UUID) error {
	_, err := ext.ExecContext(ctx, `
		INSERT INTO user_wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return database.StorageErr("ensure wallet", err)
}

// Get returns the wallet, creating an empty one on first access.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if err := r.ensureWallet(ctx, r.db, userID); err != nil {
		return nil, err
	}

	var w Wallet
	if err := r.db.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM user_wallets WHERE user_id = $1`, userID); err != nil {
		return nil, database.StorageErr("get wallet", err)
	}
	return &w, nil
}

// ListTransactions returns ledger rows newest first, with the total count.
func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`, userID); err != nil {
		return nil, 0, database.StorageErr("count wallet transactions", err)
	}

	items := make([]*Transaction, 0)
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, user_id, points_delta, cash_delta, type, reference_id, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, database.StorageErr("list wallet transactions", err)
	}
	return items, total, nil
}

// LockTx takes the row lock on the user's wallet for the rest of tx.
func (r *Repository) LockTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error) {
	if err := r.ensureWallet(ctx, tx, userID); err != nil {
		return nil, err
	}

	var w Wallet
	err := tx.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM user_wallets WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, database.StorageErr("lock wallet", err)
	}
	return &w, nil
}

// ApplyTx locks the wallet, applies m and appends the ledger row. Balance
// checks happen under the row lock, so concurrent debits serialize.
func (r *Repository) ApplyTx(ctx context.Context, tx *sqlx.Tx, m Mutation) (*Wallet, error) {
	w, err := r.LockTx(ctx, tx, m.UserID)
	if err != nil {
		return nil, err
	}
	if err := w.Apply(m); err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &w.UpdatedAt, `
		UPDATE user_wallets
		SET points_balance = $2, cash_balance = $3, locked_amount = $4, updated_at = now()
		WHERE user_id = $1
		RETURNING updated_at
	`, w.UserID, w.PointsBalance, w.CashBalance, w.LockedAmount)
	if err != nil {
		return nil, database.StorageErr("update wallet", err)
	}

	if err := r.insertTransaction(ctx, tx, m); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *Repository) insertTransaction(ctx context.Context, tx *sqlx.Tx, m Mutation) error {
	var ref interface{}
	if m.ReferenceID != "" {
		ref = m.ReferenceID
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, user_id, points_delta, cash_delta, type, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), m.UserID, m.PointsDelta, m.CashDelta, string(m.Type), ref)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return database.StorageErr("insert wallet transaction", err)
	}
	return nil
}
