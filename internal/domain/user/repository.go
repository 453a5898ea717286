package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecobin/ecobin-api/internal/pkg/database"
)

// Repository defines user data access interface
type Repository interface {
	Ensure(ctx context.Context, id uuid.UUID, role Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context, role *Role, limit, offset int) ([]*User, int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, email, role, is_banned, created_at, updated_at`

// Ensure inserts the user if missing. An existing row keeps its role.
func (r *repository) Ensure(ctx context.Context, id uuid.UUID, role Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, role)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, string(role))
	return database.StorageErr("ensure user", err)
}

// GetByID retrieves user by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, database.StorageErr("get user", err)
	}
	return &u, nil
}

func (r *repository) List(ctx context.Context, role *Role, limit, offset int) ([]*User, int, error) {
	var filter interface{}
	if role != nil {
		filter = string(*role)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE ($1::text IS NULL OR role = $1)`, filter); err != nil {
		return nil, 0, database.StorageErr("count users", err)
	}

	users := make([]*User, 0)
	err := r.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1::text IS NULL OR role = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, filter, limit, offset)
	if err != nil {
		return nil, 0, database.StorageErr("list users", err)
	}
	return users, total, nil
}

func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	return r.exec(ctx, "update user role", `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, string(role))
}

func (r *repository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	return r.exec(ctx, "set user banned", `UPDATE users SET is_banned = $2, updated_at = now() WHERE id = $1`, id, banned)
}

func (r *repository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return database.StorageErr(op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.StorageErr(op, err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
