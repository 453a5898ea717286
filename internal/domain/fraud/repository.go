package fraud

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecobin/ecobin-api/internal/pkg/database"
)

// Repository defines fraud flag data access
type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, f *Flag) error
	Create(ctx context.Context, f *Flag) error
	List(ctx context.Context, limit, offset int) ([]*Flag, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Flag, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const insertFlag = `
	INSERT INTO fraud_flags (id, user_id, submission_id, raised_by, reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, f *Flag) error {
	_, err := tx.ExecContext(ctx, insertFlag, f.ID, f.UserID, f.SubmissionID, f.RaisedBy, f.Reason, f.CreatedAt)
	return database.StorageErr("insert fraud flag", err)
}

func (r *repository) Create(ctx context.Context, f *Flag) error {
	_, err := r.db.ExecContext(ctx, insertFlag, f.ID, f.UserID, f.SubmissionID, f.RaisedBy, f.Reason, f.CreatedAt)
	return database.StorageErr("insert fraud flag", err)
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]*Flag, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM fraud_flags`); err != nil {
		return nil, 0, database.StorageErr("count fraud flags", err)
	}

	flags := make([]*Flag, 0)
	err := r.db.SelectContext(ctx, &flags, `
		SELECT id, user_id, submission_id, raised_by, reason, created_at
		FROM fraud_flags
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, database.StorageErr("list fraud flags", err)
	}
	return flags, total, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Flag, error) {
	flags := make([]*Flag, 0)
	err := r.db.SelectContext(ctx, &flags, `
		SELECT id, user_id, submission_id, raised_by, reason, created_at
		FROM fraud_flags
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, database.StorageErr("list user fraud flags", err)
	}
	return flags, nil
}
