package submission

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/fraud"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
	"github.com/ecobin/ecobin-api/internal/pkg/database"
)

const submissionColumns = `id, user_id, latitude, longitude, recorded_at, storage_key, auto_score,
	location_score, bin_id, status, rejection_reason, points_awarded, created_at, updated_at`

// PostgresStore implements Store on sqlx, composing the wallet, audit and
// fraud repositories inside one transaction.
type PostgresStore struct {
	db      *sqlx.DB
	wallets *wallet.Repository
	events  *audit.Repository
	flags   fraud.Repository
}

func NewPostgresStore(db *sqlx.DB, wallets *wallet.Repository, events *audit.Repository, flags fraud.Repository) *PostgresStore {
	return &PostgresStore{db: db, wallets: wallets, events: events, flags: flags}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, store: s})
	})
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	var sub Submission
	err := s.db.GetContext(ctx, &sub, `SELECT `+submissionColumns+` FROM video_submissions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, database.StorageErr("get submission", err)
	}
	return &sub, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Submission, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM video_submissions WHERE user_id = $1`, userID); err != nil {
		return nil, 0, database.StorageErr("count user submissions", err)
	}

	items := make([]*Submission, 0)
	err := s.db.SelectContext(ctx, &items, `
		SELECT `+submissionColumns+`
		FROM video_submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, database.StorageErr("list user submissions", err)
	}
	return items, total, nil
}

// ListByStatus returns the oldest matching submissions first, as a review queue.
func (s *PostgresStore) ListByStatus(ctx context.Context, statuses []Status, limit, offset int) ([]*Submission, int, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM video_submissions WHERE status = ANY($1)`, pq.Array(names)); err != nil {
		return nil, 0, database.StorageErr("count submissions by status", err)
	}

	items := make([]*Submission, 0)
	err := s.db.SelectContext(ctx, &items, `
		SELECT `+submissionColumns+`
		FROM video_submissions
		WHERE status = ANY($1)
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, pq.Array(names), limit, offset)
	if err != nil {
		return nil, 0, database.StorageErr("list submissions by status", err)
	}
	return items, total, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, submissionID uuid.UUID) ([]*audit.Event, error) {
	return s.events.ListBySubmission(ctx, submissionID)
}

type pgTx struct {
	tx    *sqlx.Tx
	store *PostgresStore
}

func (t *pgTx) Insert(ctx context.Context, s *Submission) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO video_submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		s.ID,
		s.UserID,
		s.Latitude,
		s.Longitude,
		s.RecordedAt,
		s.StorageKey,
		s.AutoScore,
		s.LocationScore,
		s.BinID,
		string(s.Status),
		s.RejectionReason,
		s.PointsAwarded,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return database.StorageErr("insert submission", err)
}

func (t *pgTx) LockByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	var sub Submission
	err := t.tx.GetContext(ctx, &sub, `SELECT `+submissionColumns+` FROM video_submissions WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, database.StorageErr("lock submission", err)
	}
	return &sub, nil
}

func (t *pgTx) UpdateStatus(ctx context.Context, s *Submission, from Status) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE video_submissions
		SET status = $3, rejection_reason = $4, points_awarded = $5, updated_at = $6
		WHERE id = $1 AND status = $2
	`, s.ID, string(from), string(s.Status), s.RejectionReason, s.PointsAwarded, s.UpdatedAt)
	if err != nil {
		return database.StorageErr("update submission status", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.StorageErr("update submission status rows", err)
	}
	if rows == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (t *pgTx) ApplyWallet(ctx context.Context, m wallet.Mutation) (*wallet.Wallet, error) {
	return t.store.wallets.ApplyTx(ctx, t.tx, m)
}

func (t *pgTx) AppendEvent(ctx context.Context, e *audit.Event) error {
	return t.store.events.AppendTx(ctx, t.tx, e)
}

func (t *pgTx) CreateFlag(ctx context.Context, f *fraud.Flag) error {
	return t.store.flags.CreateTx(ctx, t.tx, f)
}
