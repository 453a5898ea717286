package cashout

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
	"github.com/ecobin/ecobin-api/internal/pkg/database"
)

const requestColumns = `id, user_id, points_used, cash_amount, currency, method, destination, status,
	gateway_txn_id, failure_reason, processed_by, created_at, updated_at, completed_at`

type PostgresStore struct {
	db      *sqlx.DB
	wallets *wallet.Repository
	events  *audit.Repository
}

func NewPostgresStore(db *sqlx.DB, wallets *wallet.Repository, events *audit.Repository) *PostgresStore {
	return &PostgresStore{db: db, wallets: wallets, events: events}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, wallets: s.wallets, events: s.events})
	})
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	var r Request
	err := s.db.GetContext(ctx, &r, `SELECT `+requestColumns+` FROM cashout_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, database.StorageErr("get cashout", err)
	}
	return &r, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM cashout_requests WHERE user_id = $1`, userID); err != nil {
		return nil, 0, database.StorageErr("count user cashouts", err)
	}

	items := make([]*Request, 0)
	err := s.db.SelectContext(ctx, &items, `
		SELECT `+requestColumns+`
		FROM cashout_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, database.StorageErr("list user cashouts", err)
	}
	return items, total, nil
}

// List returns requests oldest first so finance works the backlog in order.
func (s *PostgresStore) List(ctx context.Context, status *Status, limit, offset int) ([]*Request, int, error) {
	var filter interface{}
	if status != nil {
		filter = string(*status)
	}

	var total int
	err := s.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM cashout_requests WHERE ($1::text IS NULL OR status = $1)
	`, filter)
	if err != nil {
		return nil, 0, database.StorageErr("count cashouts", err)
	}

	items := make([]*Request, 0)
	err = s.db.SelectContext(ctx, &items, `
		SELECT `+requestColumns+`
		FROM cashout_requests
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, filter, limit, offset)
	if err != nil {
		return nil, 0, database.StorageErr("list cashouts", err)
	}
	return items, total, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, cashoutID uuid.UUID) ([]*audit.CashoutEvent, error) {
	return s.events.ListByCashout(ctx, cashoutID)
}

type pgTx struct {
	tx      *sqlx.Tx
	wallets *wallet.Repository
	events  *audit.Repository
}

func (t *pgTx) Insert(ctx context.Context, r *Request) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO cashout_requests (`+requestColumns+`)
		VALUES (:id, :user_id, :points_used, :cash_amount, :currency, :method, :destination, :status,
			:gateway_txn_id, :failure_reason, :processed_by, :created_at, :updated_at, :completed_at)
	`, r)
	return database.StorageErr("insert cashout", err)
}

func (t *pgTx) LockByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	var r Request
	err := t.tx.GetContext(ctx, &r, `SELECT `+requestColumns+` FROM cashout_requests WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, database.StorageErr("lock cashout", err)
	}
	return &r, nil
}

func (t *pgTx) Update(ctx context.Context, r *Request, from Status) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE cashout_requests
		SET status = $3, gateway_txn_id = $4, failure_reason = $5, processed_by = $6,
			updated_at = $7, completed_at = $8
		WHERE id = $1 AND status = $2
	`, r.ID, string(from), string(r.Status), r.GatewayTxnID, r.FailureReason, r.ProcessedBy, r.UpdatedAt, r.CompletedAt)
	if err != nil {
		return database.StorageErr("update cashout", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.StorageErr("update cashout rows", err)
	}
	if rows == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (t *pgTx) ApplyWallet(ctx context.Context, m wallet.Mutation) (*wallet.Wallet, error) {
	return t.wallets.ApplyTx(ctx, t.tx, m)
}

func (t *pgTx) AppendEvent(ctx context.Context, e *audit.CashoutEvent) error {
	return t.events.AppendCashoutTx(ctx, t.tx, e)
}
